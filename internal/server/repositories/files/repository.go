// Package files persists metadata for encrypted blobs.
package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/server/models"
)

type Repository interface {
	// Create inserts file; the database assigns ID and UploadedAt.
	Create(ctx context.Context, file *models.File) (*models.File, error)
	// GetByID returns the row even when it carries a tombstone.
	GetByID(ctx context.Context, id string) (*models.File, error)
	// ListByUser returns the caller's live files, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.File, error)
	// Tombstone stamps deleted_at if it is not set yet.
	Tombstone(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
	// ListTombstoned returns up to limit rows tombstoned before the cutoff.
	ListTombstoned(ctx context.Context, before time.Time, limit int) ([]*models.File, error)
	// ExistingStoragePaths reports which of paths have a row, tombstoned or not.
	ExistingStoragePaths(ctx context.Context, paths []string) (map[string]bool, error)
}

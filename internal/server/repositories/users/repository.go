// Package users declares the repository contract for identity-system accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/lockbox/internal/server/models"
)

// Repository persists accounts keyed by e-mail.
type Repository interface {
	// Create inserts a new account and fills in its ID and timestamps.
	// A duplicate e-mail yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdatePassword replaces the password hash and marks the e-mail verified.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}

package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/server/models"
)

const selectColumns = `id, user_id, storage_name, original_name, storage_path, size, mime_type,
		encoded_key, encoded_nonce, uploaded_at, deleted_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	f := &models.File{}
	var deletedAt sql.NullTime
	err := s.Scan(&f.ID, &f.UserID, &f.StorageName, &f.OriginalName, &f.StoragePath, &f.Size, &f.MimeType,
		&f.EncodedKey, &f.EncodedNonce, &f.UploadedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		f.DeletedAt = &t
	}
	return f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (user_id, storage_name, original_name, storage_path, size, mime_type, encoded_key, encoded_nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, uploaded_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.StorageName, file.OriginalName, file.StoragePath, file.Size, file.MimeType,
		file.EncodedKey, file.EncodedNonce).Scan(&file.ID, &file.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id = $1`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	query := `SELECT ` + selectColumns + ` FROM files
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY uploaded_at DESC`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListTombstoned(ctx context.Context, before time.Time, limit int) ([]*models.File, error) {
	query := `SELECT ` + selectColumns + ` FROM files
		WHERE deleted_at IS NOT NULL AND deleted_at < $1
		ORDER BY deleted_at
		LIMIT $2`
	return r.list(ctx, query, before, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := []*models.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Tombstone(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE files SET deleted_at = COALESCE(deleted_at, $2) WHERE id = $1`
	return r.execOne(ctx, query, id, at)
}

func (r *PostgresRepository) Purge(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM files WHERE id = $1`, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ExistingStoragePaths(ctx context.Context, paths []string) (map[string]bool, error) {
	found := make(map[string]bool, len(paths))
	if len(paths) == 0 {
		return found, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT storage_path FROM files WHERE storage_path = ANY($1)`, paths)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		found[p] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

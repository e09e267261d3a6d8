package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrCreate relies on the no-op DO UPDATE so that RETURNING yields the
// stored row on conflict; concurrent first requests converge on one value.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, email string, password string) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING email, password_hash, created_at, updated_at
	`
	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, email, password).
		Scan(&c.Email, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, email string) (*models.Credential, error) {
	query := `
		SELECT email, password_hash, created_at, updated_at
		FROM credentials
		WHERE email = $1
	`
	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&c.Email, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

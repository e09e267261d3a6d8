package otps

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, otp *models.OTP) (*models.OTP, error) {
	query := `
		INSERT INTO otps (email, code, password, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, otp.Email, otp.Code, otp.Password, otp.ExpiresAt).
		Scan(&otp.ID, &otp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return otp, nil
}

func (r *PostgresRepository) FindLatestValid(ctx context.Context, email, code string, now time.Time) (*models.OTP, error) {
	query := `
		SELECT id, email, code, password, expires_at, verified, created_at
		FROM otps
		WHERE email = $1 AND code = $2 AND verified = FALSE AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	otp := &models.OTP{}
	err := r.db.QueryRowContext(ctx, query, email, code, now).
		Scan(&otp.ID, &otp.Email, &otp.Code, &otp.Password, &otp.ExpiresAt, &otp.Verified, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return otp, nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	query := `UPDATE otps SET verified = TRUE WHERE id = $1 AND verified = FALSE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) InvalidateOutstanding(ctx context.Context, email string, now time.Time) (int64, error) {
	query := `
		UPDATE otps SET expires_at = $2
		WHERE email = $1 AND verified = FALSE AND expires_at > $2
	`
	res, err := r.db.ExecContext(ctx, query, email, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

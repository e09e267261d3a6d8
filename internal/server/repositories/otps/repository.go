// Package otps persists issued one-time codes.
package otps

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/server/models"
)

type Repository interface {
	// Create inserts otp and fills in its ID and CreatedAt.
	Create(ctx context.Context, otp *models.OTP) (*models.OTP, error)
	// FindLatestValid returns the most recently created record for email and
	// code that is unverified and expires after now, or common.ErrorNotFound.
	FindLatestValid(ctx context.Context, email, code string, now time.Time) (*models.OTP, error)
	// MarkVerified flips verified once. A record that is already verified
	// yields common.ErrorNotFound.
	MarkVerified(ctx context.Context, id string) error
	// InvalidateOutstanding expires every unverified code for email at now.
	InvalidateOutstanding(ctx context.Context, email string, now time.Time) (int64, error)
	// DeleteExpiredBefore removes records whose expiry is earlier than cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

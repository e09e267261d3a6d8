// Package refreshtokens declares the repository contract for the opaque
// refresh tokens issued alongside access tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/server/models"
)

// Repository defines operations for issuing, rotating and revoking refresh tokens.
type Repository interface {
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Consume deletes the token and returns the row it held, so a token can
	// be exchanged at most once. Unknown tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteByUser revokes every token of a user (logout).
	DeleteByUser(ctx context.Context, userID string) error

	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Package credentials stores the per-e-mail password the OTP flow applies to
// identity-system accounts.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/lockbox/internal/server/models"
)

type Repository interface {
	// GetOrCreate returns the credential for email, inserting one with
	// password when none exists yet. An existing credential is never changed.
	GetOrCreate(ctx context.Context, email string, password string) (*models.Credential, error)
	// Get returns common.ErrorNotFound when no credential exists for email.
	Get(ctx context.Context, email string) (*models.Credential, error)
}

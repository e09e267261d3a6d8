package client

import (
	"context"

	"github.com/dmitrijs2005/lockbox/internal/client/config"
	"github.com/dmitrijs2005/lockbox/internal/vault"
)

// Identity is the signed-in user as the server sees it.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Client is the API surface the CLI uses. The client itself is the record
// store; Blobs returns the blob store.
type Client interface {
	vault.RecordStore

	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*config.Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*Identity, error)
	Blobs() vault.BlobStore
}

// SessionStore persists tokens between CLI invocations.
type SessionStore interface {
	Load() (*config.Session, error)
	Save(*config.Session) error
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/files"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/otps"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so the same code runs
// inside or outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	OTPs(db dbx.DBTX) otps.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Files(db dbx.DBTX) files.Repository
}

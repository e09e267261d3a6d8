package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/server/auth"
	"github.com/dmitrijs2005/lockbox/internal/server/models"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/repomanager"
)

// AccountService is the identity system: accounts keyed by e-mail with an
// argon2id-hashed password.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager) *AccountService {
	return &AccountService{db: db, repomanager: m}
}

// AccountExists reports whether email has an account and returns it.
func (s *AccountService) AccountExists(ctx context.Context, email string) (*models.User, bool, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return user, true, nil
}

// CreateAccount tolerates a concurrent creation of the same e-mail by
// returning the account that won.
func (s *AccountService) CreateAccount(ctx context.Context, email, password string, preVerified bool) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash, EmailVerified: preVerified})
	if errors.Is(err, common.ErrorAlreadyExists) {
		user, err = repo.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAuth, err)
	}
	return user, nil
}

func (s *AccountService) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("%w: %v", common.ErrAuth, err)
	}
	return nil
}

// SignIn returns common.ErrAuth for an unknown e-mail or a wrong password.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAuth
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, common.ErrAuth
	}
	return user, nil
}

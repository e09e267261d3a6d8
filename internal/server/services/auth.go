package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/server/auth"
	"github.com/dmitrijs2005/lockbox/internal/server/config"
	"github.com/dmitrijs2005/lockbox/internal/server/models"
	"github.com/dmitrijs2005/lockbox/internal/server/notify"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/repomanager"
)

const codeDigits = 6

// IdentitySystem is the account store the OTP flow provisions into.
type IdentitySystem interface {
	AccountExists(ctx context.Context, email string) (*models.User, bool, error)
	CreateAccount(ctx context.Context, email, password string, preVerified bool) (*models.User, error)
	SetPassword(ctx context.Context, userID, password string) error
	SignIn(ctx context.Context, email, password string) (*models.User, error)
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is the result of a successful code verification.
type Session struct {
	UserID string
	Email  string
	TokenPair
}

// AuthService runs the passwordless sign-in: it issues one-time codes,
// verifies them and mints sessions.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	accounts    IdentitySystem
	dispatcher  notify.Dispatcher
	log         logging.Logger

	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	otpValidityDuration          time.Duration
	invalidatePrevious           bool

	now              func() time.Time
	generateCode     func() (string, error)
	generatePassword func() (string, error)
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, accounts IdentitySystem,
	dispatcher notify.Dispatcher, log logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		accounts:                     accounts,
		dispatcher:                   dispatcher,
		log:                          log,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		otpValidityDuration:          cfg.OTPValidityDuration,
		invalidatePrevious:           cfg.OTPInvalidatePrevious,
		now:                          time.Now,
		generateCode:                 GenerateCode,
		generatePassword:             generateCredentialPassword,
	}
}

// GenerateCode returns a uniformly random 6-digit code, zero padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func generateCredentialPassword() (string, error) {
	return common.MakeRandHexString(32)
}

// NormalizeEmail trims and lower-cases email and rejects anything that is
// not a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid e-mail address", common.ErrValidation)
	}
	return email, nil
}

func validateCode(code string) error {
	if len(code) != codeDigits {
		return fmt.Errorf("%w: code must be %d digits", common.ErrValidation, codeDigits)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: code must be %d digits", common.ErrValidation, codeDigits)
		}
	}
	return nil
}

// RequestCode issues a new code for email and dispatches it. The credential
// password is synthesised on the first request for an e-mail and reused
// afterwards.
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	candidate, err := s.generatePassword()
	if err != nil {
		return fmt.Errorf("failed to generate credential: %w", err)
	}
	code, err := s.generateCode()
	if err != nil {
		return err
	}

	now := s.now()
	otp := &models.OTP{Email: email, Code: code, ExpiresAt: now.Add(s.otpValidityDuration)}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cred, err := s.repomanager.Credentials(tx).GetOrCreate(ctx, email, candidate)
		if err != nil {
			return err
		}
		otp.Password = cred.PasswordHash

		if s.invalidatePrevious {
			if _, err := s.repomanager.OTPs(tx).InvalidateOutstanding(ctx, email, now); err != nil {
				return err
			}
		}

		_, err = s.repomanager.OTPs(tx).Create(ctx, otp)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.log.Info(ctx, "otp issued", "email", email, "otp_id", otp.ID, "expires_at", otp.ExpiresAt)

	if err := s.dispatcher.Send(ctx, notify.NewCodeMessage(email, code, s.otpValidityDuration)); err != nil {
		s.log.Error(ctx, "otp dispatch failed", "email", email, "error", err)
		if errors.Is(err, common.ErrDispatch) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrDispatch, err)
	}
	return nil
}

// VerifyCode consumes the most recent live code matching email, provisions
// the account with the credential password and signs in.
//
// Wrong, expired and already used codes all yield
// common.ErrInvalidOrExpiredOtp.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (*Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validateCode(code); err != nil {
		return nil, err
	}

	var otp *models.OTP
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.OTPs(tx)
		found, err := repo.FindLatestValid(ctx, email, code, s.now())
		if err != nil {
			return err
		}
		otp = found
		return repo.MarkVerified(ctx, found.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpiredOtp
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	password, err := s.resolvePassword(ctx, otp)
	if err != nil {
		return nil, err
	}

	if err := s.provision(ctx, email, password); err != nil {
		return nil, err
	}

	user, err := s.signIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	pair, err := s.generateTokenPair(ctx, s.db, user)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "otp verified", "email", email, "user_id", user.ID)
	return &Session{UserID: user.ID, Email: user.Email, TokenPair: *pair}, nil
}

// resolvePassword prefers the credential row and falls back to the password
// copied onto the code when the row is missing.
func (s *AuthService) resolvePassword(ctx context.Context, otp *models.OTP) (string, error) {
	cred, err := s.repomanager.Credentials(s.db).Get(ctx, otp.Email)
	if err == nil {
		return cred.PasswordHash, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	s.log.Warn(ctx, "credential missing, using password stored with otp", "email", otp.Email, "otp_id", otp.ID)
	return otp.Password, nil
}

func (s *AuthService) provision(ctx context.Context, email, password string) error {
	user, exists, err := s.accounts.AccountExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return s.accounts.SetPassword(ctx, user.ID, password)
	}
	_, err = s.accounts.CreateAccount(ctx, email, password, true)
	return err
}

// signIn retries exactly once after re-creating the account.
func (s *AuthService) signIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.accounts.SignIn(ctx, email, password)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrAuth) {
		return nil, err
	}

	s.log.Warn(ctx, "sign-in after provisioning failed, retrying once", "email", email)
	if _, err := s.accounts.CreateAccount(ctx, email, password, true); err != nil {
		return nil, err
	}
	return s.accounts.SignIn(ctx, email, password)
}

// Refresh exchanges a refresh token for a new pair. The old token is
// consumed in the same transaction.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}
		if token.Expires.Before(s.now()) {
			return common.ErrRefreshTokenExpired
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}

		pair, err = s.generateTokenPair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes every refresh token of the user.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(auth.Identity{UserID: user.ID, Email: user.Email}, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := auth.NewRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	expires := s.now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refreshToken, expires); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Package auth issues and verifies session credentials: HS256 access tokens,
// opaque refresh tokens and argon2id password hashes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer   = "lockbox"
	Audience = "lockbox-api"
)

// Claims carries the standard claims plus the account e-mail.
// The subject is the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity is what an access token proves about its bearer.
type Identity struct {
	UserID string
	Email  string
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.UserID,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email: id.Email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken validates signature, algorithm, issuer, audience and expiry.
// Expired tokens yield common.ErrTokenExpired, anything else
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// NewRefreshToken returns a random opaque token.
func NewRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

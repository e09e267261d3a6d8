// Package common defines shared constants and sentinel errors used across
// client and server layers of lockbox. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Input rejected before any crypto or network work (bad e-mail, bad code, oversized file).
	ErrValidation = errors.New("validation error")

	// Malformed key or nonce material.
	ErrCrypto = errors.New("crypto error")

	// Integrity tag did not verify: tampering, wrong key or wrong nonce.
	ErrAuthenticationFailure = errors.New("authentication failure")

	// Text input is not valid base64/hex.
	ErrFormat = errors.New("format error")

	// No live one-time code matches. Deliberately does not say why.
	ErrInvalidOrExpiredOtp = errors.New("invalid or expired code")

	// Blob or record store operation failed.
	ErrStorage = errors.New("storage error")

	// Identity system rejected the account operation or sign-in.
	ErrAuth = errors.New("authentication error")

	// Notification dispatcher could not deliver the code.
	ErrDispatch = errors.New("failed to send code")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// Package common contains shared constants and sentinel errors used across
// lockbox components.
package common

// AuthorizationHeaderName carries the bearer access token on API requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// MaxUploadSize is the largest plaintext accepted for upload (50 MiB).
const MaxUploadSize = 50 << 20

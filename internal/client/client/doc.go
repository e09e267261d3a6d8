// Package client talks to the lockbox server over JSON/HTTP.
//
// HTTPClient covers the sign-in flow (RequestCode, VerifyCode, Logout, Me)
// and implements vault.RecordStore; Blobs returns its vault.BlobStore, so the
// vault can encrypt and upload through it without knowing about HTTP. Blob bytes never
// pass through the API server: the client asks for a presigned URL and talks
// to object storage directly.
//
// Requests carry the access token from the session store. A 401 triggers one
// refresh with the stored refresh token and one retry; the rotated tokens are
// saved back.
//
// Server errors are mapped to sentinels from internal/common (ErrValidation,
// ErrorNotFound, ErrorForbidden, ErrInvalidOrExpiredOtp, ErrDispatch) or to
// ErrUnauthorized, ErrRateLimited and ErrUnavailable from this package.
package client

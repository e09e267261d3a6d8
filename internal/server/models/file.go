// Package models defines server-side data models persisted in the database.
package models

import "time"

// File describes server-side metadata for an encrypted blob. The ciphertext
// itself lives in object storage under StoragePath.
type File struct {
	// ID is the database-assigned identifier.
	ID string `json:"id"`
	// UserID is the owner of the file.
	UserID string `json:"user_id"`
	// StorageName is the generated, collision-free object name.
	StorageName string `json:"storage_name"`
	// OriginalName is the file name the user uploaded.
	OriginalName string `json:"original_name"`
	// StoragePath is the object-storage key (users/<owner>/<storage name>).
	StoragePath string `json:"storage_path"`
	// Size is the plaintext size in bytes.
	Size int64 `json:"size"`
	// MimeType is the declared or detected media type of the plaintext.
	MimeType string `json:"mime_type"`
	// EncodedKey is base64 of the raw 256-bit file key.
	EncodedKey string `json:"encoded_key"`
	// EncodedNonce is lowercase hex of the 96-bit GCM nonce.
	EncodedNonce string `json:"encoded_nonce"`
	// UploadedAt is set by the database on insert.
	UploadedAt time.Time `json:"uploaded_at"`
	// DeletedAt marks a tombstoned row whose blob removal is in progress.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

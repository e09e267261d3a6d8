// Package models defines the file metadata the client exchanges with the
// lockbox server.
package models

import "time"

// FileRecord describes one encrypted blob. EncodedKey is the base64 form of
// the raw AES key and EncodedNonce the lowercase hex form of the nonce.
type FileRecord struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	StorageName  string     `json:"storage_name"`
	OriginalName string     `json:"original_name"`
	StoragePath  string     `json:"storage_path"`
	Size         int64      `json:"size"`
	MimeType     string     `json:"mime_type"`
	EncodedKey   string     `json:"encoded_key"`
	EncodedNonce string     `json:"encoded_nonce"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// File is a decrypted download.
type File struct {
	Data     []byte
	Filename string
	MimeType string
}

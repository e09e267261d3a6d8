// Package vault runs the client side of file storage: it encrypts before
// anything leaves the machine and decrypts after the ciphertext comes back.
// The server only ever sees ciphertext and the encoded key material in the
// metadata row.
package vault

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/lockbox/internal/client/models"
	"github.com/dmitrijs2005/lockbox/internal/codec"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// BlobStore holds ciphertext at opaque paths.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// RecordStore holds file metadata for the signed-in user.
type RecordStore interface {
	Create(ctx context.Context, rec *models.FileRecord) (*models.FileRecord, error)
	Get(ctx context.Context, id string) (*models.FileRecord, error)
	List(ctx context.Context) ([]*models.FileRecord, error)
	Tombstone(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) error
}

type UploadRequest struct {
	Data     []byte
	Filename string
	// MimeType is detected from Data when empty.
	MimeType string
	OwnerID  string
}

type Service struct {
	blobs   BlobStore
	records RecordStore
	log     logging.Logger
	maxSize int64
	newName func() string
}

func NewService(blobs BlobStore, records RecordStore, log logging.Logger) *Service {
	return &Service{
		blobs:   blobs,
		records: records,
		log:     log.With("module", "vault"),
		maxSize: common.MaxUploadSize,
		newName: uuid.NewString,
	}
}

func (s *Service) validate(req UploadRequest) error {
	if int64(len(req.Data)) > s.maxSize {
		return fmt.Errorf("%w: file is %s, the limit is %s", common.ErrValidation,
			humanize.IBytes(uint64(len(req.Data))), humanize.IBytes(uint64(s.maxSize)))
	}
	if strings.TrimSpace(req.Filename) == "" {
		return fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if req.OwnerID == "" || strings.Contains(req.OwnerID, "/") {
		return fmt.Errorf("%w: invalid owner", common.ErrValidation)
	}
	return nil
}

// Upload encrypts req.Data under a fresh key and nonce, stores the
// ciphertext and then the metadata row. When the row cannot be written the
// blob is removed again; if that fails too both errors are returned and the
// blob is left for the server's orphan sweep.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.FileRecord, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	key, err := cryptox.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	defer key.Wipe()

	nonce, err := cryptox.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}

	ciphertext, err := cryptox.Encrypt(req.Data, key, nonce)
	if err != nil {
		return nil, err
	}

	raw := cryptox.ExportKey(key)
	keyText := codec.EncodeBase64(raw)
	common.WipeByteArray(raw)
	nonceText := codec.EncodeHex(nonce)

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = mimetype.Detect(req.Data).String()
	}

	storagePath := common.StoragePath(req.OwnerID, s.newName())
	if err := s.blobs.Put(ctx, storagePath, ciphertext); err != nil {
		return nil, fmt.Errorf("%w: upload blob: %v", common.ErrStorage, err)
	}

	rec, err := s.records.Create(ctx, &models.FileRecord{
		UserID:       req.OwnerID,
		StorageName:  filepath.Base(storagePath),
		OriginalName: filepath.Base(req.Filename),
		StoragePath:  storagePath,
		Size:         int64(len(req.Data)),
		MimeType:     mimeType,
		EncodedKey:   keyText,
		EncodedNonce: nonceText,
	})
	if err != nil {
		createErr := fmt.Errorf("%w: create record: %v", common.ErrStorage, err)
		if delErr := s.blobs.Delete(ctx, storagePath); delErr != nil {
			s.log.Warn(ctx, "blob left behind after failed upload", "path", storagePath, "error", delErr)
			return nil, errors.Join(createErr, fmt.Errorf("%w: remove blob: %v", common.ErrStorage, delErr))
		}
		return nil, createErr
	}

	s.log.Debug(ctx, "file uploaded", "id", rec.ID, "path", storagePath, "size", rec.Size)
	return rec, nil
}

// Download fetches and decrypts the blob behind rec. A tag mismatch is
// returned as common.ErrAuthenticationFailure and never retried.
func (s *Service) Download(ctx context.Context, rec *models.FileRecord) (*models.File, error) {
	ciphertext, err := s.blobs.Get(ctx, rec.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("%w: download blob: %v", common.ErrStorage, err)
	}

	raw, err := codec.DecodeBase64(rec.EncodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encoded key: %v", common.ErrCrypto, err)
	}
	key, err := cryptox.ImportKey(raw)
	common.WipeByteArray(raw)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	nonce, err := codec.DecodeHex(rec.EncodedNonce)
	if err != nil {
		return nil, fmt.Errorf("%w: encoded nonce: %v", common.ErrCrypto, err)
	}

	plaintext, err := cryptox.Decrypt(ciphertext, key, nonce)
	if err != nil {
		return nil, err
	}

	return &models.File{Data: plaintext, Filename: rec.OriginalName, MimeType: rec.MimeType}, nil
}

// DownloadByID looks the record up first.
func (s *Service) DownloadByID(ctx context.Context, id string) (*models.File, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Download(ctx, rec)
}

// Delete tombstones the row, removes the blob and purges the row. If it
// stops after the tombstone the server janitor finishes the job.
func (s *Service) Delete(ctx context.Context, rec *models.FileRecord) error {
	if err := s.records.Tombstone(ctx, rec.ID); err != nil {
		return fmt.Errorf("tombstone: %w", err)
	}
	if err := s.blobs.Delete(ctx, rec.StoragePath); err != nil {
		return fmt.Errorf("%w: remove blob: %v", common.ErrStorage, err)
	}
	if err := s.records.Purge(ctx, rec.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("purge: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]*models.FileRecord, error) {
	return s.records.List(ctx)
}

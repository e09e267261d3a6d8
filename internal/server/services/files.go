package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/codec"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/server/config"
	"github.com/dmitrijs2005/lockbox/internal/server/models"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const defaultMimeType = "application/octet-stream"

// BlobAuthority grants and revokes access to objects in the blob store.
type BlobAuthority interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// FileService authorises blob access and manages file metadata. Every
// operation is scoped to the calling user.
type FileService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	blobs         BlobAuthority
	maxUploadSize int64
	now           func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs BlobAuthority, cfg *config.Config) *FileService {
	return &FileService{
		db:            db,
		repomanager:   m,
		blobs:         blobs,
		maxUploadSize: cfg.MaxUploadSize,
		now:           time.Now,
	}
}

func (s *FileService) checkPath(userID, storagePath string) error {
	if !common.OwnsPath(userID, storagePath) {
		return fmt.Errorf("%w: path %q is outside %s", common.ErrorForbidden, storagePath, common.OwnerPrefix(userID))
	}
	return nil
}

func (s *FileService) PresignUpload(ctx context.Context, userID, storagePath string) (string, error) {
	if err := s.checkPath(userID, storagePath); err != nil {
		return "", err
	}
	url, err := s.blobs.PresignPut(ctx, storagePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return url, nil
}

func (s *FileService) PresignDownload(ctx context.Context, userID, storagePath string) (string, error) {
	if err := s.checkPath(userID, storagePath); err != nil {
		return "", err
	}
	url, err := s.blobs.PresignGet(ctx, storagePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return url, nil
}

func (s *FileService) DeleteBlob(ctx context.Context, userID, storagePath string) error {
	if err := s.checkPath(userID, storagePath); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, storagePath); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return nil
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

// validateFile checks that the encoded key material is well formed so a
// record can never be stored that is undecryptable by construction.
func (s *FileService) validateFile(userID string, f *models.File) error {
	if err := s.checkPath(userID, f.StoragePath); err != nil {
		return err
	}
	if strings.TrimSpace(f.OriginalName) == "" {
		return validationErr("original name is required")
	}
	if f.Size < 0 || f.Size > s.maxUploadSize {
		return validationErr("size %d is outside 0..%d", f.Size, s.maxUploadSize)
	}
	key, err := codec.DecodeBase64(f.EncodedKey)
	if err != nil {
		return validationErr("encoded key: %v", err)
	}
	if len(key) != cryptox.KeySize {
		return validationErr("key must be %d bytes, got %d", cryptox.KeySize, len(key))
	}
	nonce, err := codec.DecodeHex(f.EncodedNonce)
	if err != nil {
		return validationErr("encoded nonce: %v", err)
	}
	if len(nonce) != cryptox.NonceSize {
		return validationErr("nonce must be %d bytes, got %d", cryptox.NonceSize, len(nonce))
	}
	return nil
}

// CreateFile stores metadata for a blob the caller already uploaded. The
// owner is always the caller.
func (s *FileService) CreateFile(ctx context.Context, userID string, f *models.File) (*models.File, error) {
	if err := s.validateFile(userID, f); err != nil {
		return nil, err
	}

	record := &models.File{
		UserID:       userID,
		StorageName:  path.Base(f.StoragePath),
		OriginalName: f.OriginalName,
		StoragePath:  f.StoragePath,
		Size:         f.Size,
		MimeType:     f.MimeType,
		EncodedKey:   f.EncodedKey,
		EncodedNonce: f.EncodedNonce,
	}
	if record.MimeType == "" {
		record.MimeType = defaultMimeType
	}

	created, err := s.repomanager.Files(s.db).Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return created, nil
}

func (s *FileService) ListFiles(ctx context.Context, userID string) ([]*models.File, error) {
	files, err := s.repomanager.Files(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return files, nil
}

// owned loads a row owned by userID; rows of other users look missing.
func (s *FileService) owned(ctx context.Context, userID, id string) (*models.File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	f, err := s.repomanager.Files(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if f.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

// GetFile hides tombstoned rows.
func (s *FileService) GetFile(ctx context.Context, userID, id string) (*models.File, error) {
	f, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if f.DeletedAt != nil {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

// TombstoneFile is idempotent.
func (s *FileService) TombstoneFile(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repomanager.Files(s.db).Tombstone(ctx, id, s.now()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return nil
}

func (s *FileService) PurgeFile(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repomanager.Files(s.db).Purge(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return nil
}

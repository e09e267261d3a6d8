// Package janitor periodically reconciles the database with the blob store:
// it purges spent codes and refresh tokens, finishes tombstoned deletes and
// removes blobs that never got a metadata row.
package janitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/server/config"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lockbox/internal/server/storage"
)

const (
	tombstoneBatch = 100
	// orphanBatch is how many blob keys one existence query checks.
	orphanBatch = 500
)

type BlobStore interface {
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]storage.Object, error)
}

// Report counts what one pass removed.
type Report struct {
	OTPs          int64
	RefreshTokens int64
	Tombstones    int
	OrphanedBlobs int
}

type Janitor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	log         logging.Logger

	interval     time.Duration
	otpRetention time.Duration
	orphanGrace  time.Duration

	now func() time.Time
}

func New(db *sql.DB, m repomanager.RepositoryManager, blobs BlobStore, log logging.Logger, cfg *config.Config) *Janitor {
	return &Janitor{
		db:           db,
		repomanager:  m,
		blobs:        blobs,
		log:          log.With("component", "janitor"),
		interval:     cfg.JanitorInterval,
		otpRetention: cfg.OTPRetention,
		orphanGrace:  cfg.OrphanGracePeriod,
		now:          time.Now,
	}
}

// Run performs a pass immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.log.Info(ctx, "janitor disabled")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.pass(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			j.log.Info(ctx, "janitor stopped")
			return
		}
	}
}

func (j *Janitor) pass(ctx context.Context) {
	r, err := j.RunOnce(ctx)
	if err != nil {
		j.log.Error(ctx, "janitor pass failed", "error", err)
	}
	j.log.Info(ctx, "janitor pass finished",
		"otps", r.OTPs,
		"refresh_tokens", r.RefreshTokens,
		"tombstones", r.Tombstones,
		"orphaned_blobs", r.OrphanedBlobs)
}

// RunOnce runs every step even when an earlier one fails and returns the
// joined errors.
func (j *Janitor) RunOnce(ctx context.Context) (Report, error) {
	var (
		r    Report
		errs []error
		err  error
	)
	now := j.now()

	if r.OTPs, err = j.repomanager.OTPs(j.db).DeleteExpiredBefore(ctx, now.Add(-j.otpRetention)); err != nil {
		errs = append(errs, fmt.Errorf("purge otps: %w", err))
	}
	if r.RefreshTokens, err = j.repomanager.RefreshTokens(j.db).DeleteExpiredBefore(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("purge refresh tokens: %w", err))
	}
	if r.Tombstones, err = j.finishTombstones(ctx, now); err != nil {
		errs = append(errs, err)
	}
	if r.OrphanedBlobs, err = j.sweepOrphans(ctx, now); err != nil {
		errs = append(errs, err)
	}

	return r, errors.Join(errs...)
}

func (j *Janitor) finishTombstones(ctx context.Context, now time.Time) (int, error) {
	repo := j.repomanager.Files(j.db)
	rows, err := repo.ListTombstoned(ctx, now, tombstoneBatch)
	if err != nil {
		return 0, fmt.Errorf("list tombstones: %w", err)
	}

	var errs []error
	done := 0
	for _, f := range rows {
		if err := j.blobs.Delete(ctx, f.StoragePath); err != nil {
			errs = append(errs, fmt.Errorf("delete blob %s: %w", f.StoragePath, err))
			continue
		}
		if err := repo.Purge(ctx, f.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			errs = append(errs, fmt.Errorf("purge file %s: %w", f.ID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// sweepOrphans lists every object under the blob root (one S3 page per
// thousand keys) and checks the candidates past the grace period against the
// database orphanBatch keys at a time.
func (j *Janitor) sweepOrphans(ctx context.Context, now time.Time) (int, error) {
	objects, err := j.blobs.List(ctx, common.BlobRoot)
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}

	cutoff := now.Add(-j.orphanGrace)
	var candidates []storage.Object
	for _, o := range objects {
		if !o.LastModified.After(cutoff) {
			candidates = append(candidates, o)
		}
	}

	repo := j.repomanager.Files(j.db)

	var errs []error
	removed := 0
	for start := 0; start < len(candidates); start += orphanBatch {
		batch := candidates[start:min(start+orphanBatch, len(candidates))]

		keys := make([]string, len(batch))
		for i, o := range batch {
			keys[i] = o.Key
		}
		known, err := repo.ExistingStoragePaths(ctx, keys)
		if err != nil {
			errs = append(errs, fmt.Errorf("lookup %d blobs: %w", len(keys), err))
			continue
		}

		for _, o := range batch {
			if known[o.Key] {
				continue
			}
			if err := j.blobs.Delete(ctx, o.Key); err != nil {
				errs = append(errs, fmt.Errorf("delete orphan %s: %w", o.Key, err))
				continue
			}
			j.log.Info(ctx, "orphaned blob removed", "key", o.Key, "last_modified", o.LastModified)
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

package janitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/server/config"
	"github.com/dmitrijs2005/lockbox/internal/server/models"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/files"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/otps"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lockbox/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOTPs struct {
	otps.Repository
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakeOTPs) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

type fakeRefresh struct {
	refreshtokens.Repository
	cutoff time.Time
	n      int64
}

func (f *fakeRefresh) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, nil
}

type fakeFiles struct {
	files.Repository
	tombstoned []*models.File
	known      map[string]bool
	purged     []string
	listErr    error
	existsErr  error
	lookups    []int
}

func (f *fakeFiles) ListTombstoned(_ context.Context, _ time.Time, limit int) ([]*models.File, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.tombstoned) > limit {
		return f.tombstoned[:limit], nil
	}
	return f.tombstoned, nil
}

func (f *fakeFiles) Purge(_ context.Context, id string) error {
	f.purged = append(f.purged, id)
	return nil
}

func (f *fakeFiles) ExistingStoragePaths(_ context.Context, paths []string) (map[string]bool, error) {
	f.lookups = append(f.lookups, len(paths))
	if f.existsErr != nil {
		return nil, f.existsErr
	}
	out := map[string]bool{}
	for _, p := range paths {
		if f.known[p] {
			out[p] = true
		}
	}
	return out, nil
}

type fakeManager struct {
	repomanager.RepositoryManager
	otps    *fakeOTPs
	refresh *fakeRefresh
	files   *fakeFiles
}

func (m *fakeManager) OTPs(dbx.DBTX) otps.Repository                   { return m.otps }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeManager) Files(dbx.DBTX) files.Repository                 { return m.files }

type fakeBlobs struct {
	mu       sync.Mutex
	objects  []storage.Object
	deleted  []string
	failKeys map[string]bool
	listErr  error
	prefix   string
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failKeys[key] {
		return errors.New("s3 unavailable")
	}
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobs) List(_ context.Context, prefix string) ([]storage.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefix = prefix
	return b.objects, b.listErr
}

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newJanitor(m *fakeManager, blobs *fakeBlobs) *Janitor {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	j := New(nil, m, blobs, logging.Discard(), cfg)
	j.now = func() time.Time { return now }
	return j
}

func newManager() *fakeManager {
	return &fakeManager{
		otps:    &fakeOTPs{},
		refresh: &fakeRefresh{},
		files:   &fakeFiles{known: map[string]bool{}},
	}
}

func TestRunOnce_PurgesExpiredRows(t *testing.T) {
	m := newManager()
	m.otps.n = 3
	m.refresh.n = 2
	j := newJanitor(m, &fakeBlobs{})

	r, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), r.OTPs)
	assert.Equal(t, int64(2), r.RefreshTokens)
	assert.Equal(t, now.Add(-24*time.Hour), m.otps.cutoff)
	assert.Equal(t, now, m.refresh.cutoff)
}

func TestRunOnce_FinishesTombstones(t *testing.T) {
	m := newManager()
	at := now.Add(-time.Minute)
	m.files.tombstoned = []*models.File{
		{ID: "f1", StoragePath: "users/u1/a", DeletedAt: &at},
		{ID: "f2", StoragePath: "users/u1/b", DeletedAt: &at},
	}
	blobs := &fakeBlobs{failKeys: map[string]bool{"users/u1/b": true}}
	j := newJanitor(m, blobs)

	r, err := j.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users/u1/b")

	assert.Equal(t, 1, r.Tombstones)
	assert.Equal(t, []string{"users/u1/a"}, blobs.deleted)
	// the row whose blob survived stays tombstoned for the next pass
	assert.Equal(t, []string{"f1"}, m.files.purged)
}

func TestRunOnce_SweepsOnlyOldOrphans(t *testing.T) {
	m := newManager()
	m.files.known["users/u1/kept"] = true
	blobs := &fakeBlobs{objects: []storage.Object{
		{Key: "users/u1/kept", LastModified: now.Add(-48 * time.Hour)},
		{Key: "users/u1/orphan", LastModified: now.Add(-2 * time.Hour)},
		{Key: "users/u1/in-flight", LastModified: now.Add(-5 * time.Minute)},
	}}
	j := newJanitor(m, blobs)

	r, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, r.OrphanedBlobs)
	assert.Equal(t, common.BlobRoot, blobs.prefix)
	assert.Equal(t, []string{"users/u1/orphan"}, blobs.deleted)
	// the in-flight blob is never looked up
	assert.Equal(t, []int{2}, m.files.lookups)
}

func TestRunOnce_ChecksOrphansInBatches(t *testing.T) {
	m := newManager()
	var objects []storage.Object
	for i := 0; i < orphanBatch*2+3; i++ {
		key := fmt.Sprintf("users/u1/b%04d", i)
		if i%2 == 0 {
			m.files.known[key] = true
		}
		objects = append(objects, storage.Object{Key: key, LastModified: now.Add(-2 * time.Hour)})
	}
	blobs := &fakeBlobs{objects: objects}
	j := newJanitor(m, blobs)

	r, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{orphanBatch, orphanBatch, 3}, m.files.lookups)
	assert.Equal(t, orphanBatch+1, r.OrphanedBlobs)
	assert.Len(t, blobs.deleted, orphanBatch+1)
}

func TestRunOnce_OrphanLookupFailureDeletesNothing(t *testing.T) {
	m := newManager()
	m.files.existsErr = errors.New("db down")
	blobs := &fakeBlobs{objects: []storage.Object{
		{Key: "users/u1/x", LastModified: now.Add(-2 * time.Hour)},
	}}
	j := newJanitor(m, blobs)

	r, err := j.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup 1 blobs")
	assert.Zero(t, r.OrphanedBlobs)
	assert.Empty(t, blobs.deleted)
}

func TestRunOnce_ContinuesAfterFailure(t *testing.T) {
	m := newManager()
	m.otps.err = errors.New("db down")
	m.refresh.n = 1
	m.files.listErr = errors.New("db down")
	blobs := &fakeBlobs{listErr: errors.New("s3 down")}
	j := newJanitor(m, blobs)

	r, err := j.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge otps")
	assert.Contains(t, err.Error(), "list tombstones")
	assert.Contains(t, err.Error(), "list blobs")
	assert.Equal(t, int64(1), r.RefreshTokens)
}

func TestRun_StopsOnCancel(t *testing.T) {
	m := newManager()
	j := newJanitor(m, &fakeBlobs{})
	j.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	j := newJanitor(newManager(), &fakeBlobs{})
	j.interval = 0
	j.Run(context.Background())
}

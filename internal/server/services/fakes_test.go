package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/server/auth"
	"github.com/dmitrijs2005/lockbox/internal/server/models"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/files"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/otps"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestMain(m *testing.M) {
	auth.DefaultHashParams = auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	os.Exit(m.Run())
}

// newTxDB returns a real database so dbx.WithTx can begin and commit; the
// fake repositories ignore the handle they are bound to.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// --- users ---

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	failGet error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]*models.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	for _, x := range f.byID {
		if x.Email == email {
			out := *x
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if x, ok := f.byID[id]; ok {
		out := *x
		return &out, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	x.PasswordHash = hash
	x.EmailVerified = true
	return nil
}

// --- credentials ---

type fakeCredentials struct {
	mu      sync.Mutex
	byEmail map[string]*models.Credential
}

func (f *fakeCredentials) GetOrCreate(_ context.Context, email, password string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byEmail[email]; ok {
		out := *c
		return &out, nil
	}
	c := &models.Credential{Email: email, PasswordHash: password, CreatedAt: time.Now()}
	f.byEmail[email] = c
	out := *c
	return &out, nil
}

func (f *fakeCredentials) Get(_ context.Context, email string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byEmail[email]; ok {
		out := *c
		return &out, nil
	}
	return nil, common.ErrorNotFound
}

// --- otps ---

type fakeOTPs struct {
	mu      sync.Mutex
	rows    []*models.OTP
	seq     int
	failErr error
}

func (f *fakeOTPs) Create(_ context.Context, o *models.OTP) (*models.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.seq++
	o.ID = fmt.Sprintf("otp-%d", f.seq)
	o.CreatedAt = time.Unix(0, int64(f.seq))
	cp := *o
	f.rows = append(f.rows, &cp)
	return o, nil
}

func (f *fakeOTPs) FindLatestValid(_ context.Context, email, code string, now time.Time) (*models.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var match []*models.OTP
	for _, o := range f.rows {
		if o.Email == email && o.Code == code && !o.Verified && o.ExpiresAt.After(now) {
			match = append(match, o)
		}
	}
	if len(match) == 0 {
		return nil, common.ErrorNotFound
	}
	sort.Slice(match, func(i, j int) bool { return match[i].CreatedAt.After(match[j].CreatedAt) })
	out := *match[0]
	return &out, nil
}

func (f *fakeOTPs) MarkVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.rows {
		if o.ID == id && !o.Verified {
			o.Verified = true
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeOTPs) InvalidateOutstanding(_ context.Context, email string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, o := range f.rows {
		if o.Email == email && !o.Verified && o.ExpiresAt.After(now) {
			o.ExpiresAt = now
			n++
		}
	}
	return n, nil
}

func (f *fakeOTPs) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	var n int64
	for _, o := range f.rows {
		if o.ExpiresAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, o)
	}
	f.rows = kept
	return n, nil
}

// --- refresh tokens ---

type fakeRefresh struct {
	mu   sync.Mutex
	rows map[string]*models.RefreshToken
}

func (f *fakeRefresh) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (f *fakeRefresh) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.rows, token)
	return rt, nil
}

func (f *fakeRefresh) DeleteByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range f.rows {
		if v.UserID == userID {
			delete(f.rows, k)
		}
	}
	return nil
}

func (f *fakeRefresh) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, v := range f.rows {
		if v.Expires.Before(cutoff) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

// --- files ---

type fakeFiles struct {
	mu        sync.Mutex
	rows      map[string]*models.File
	createErr error
}

func (f *fakeFiles) Create(_ context.Context, file *models.File) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	file.ID = uuid.NewString()
	file.UploadedAt = time.Now()
	cp := *file
	f.rows[file.ID] = &cp
	return file, nil
}

func (f *fakeFiles) GetByID(_ context.Context, id string) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if x, ok := f.rows[id]; ok {
		out := *x
		return &out, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFiles) ListByUser(_ context.Context, userID string) ([]*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.File{}
	for _, x := range f.rows {
		if x.UserID == userID && x.DeletedAt == nil {
			cp := *x
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (f *fakeFiles) Tombstone(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	if x.DeletedAt == nil {
		x.DeletedAt = &at
	}
	return nil
}

func (f *fakeFiles) Purge(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeFiles) ListTombstoned(_ context.Context, before time.Time, limit int) ([]*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.File{}
	for _, x := range f.rows {
		if x.DeletedAt != nil && x.DeletedAt.Before(before) && len(out) < limit {
			cp := *x
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeFiles) ExistingStoragePaths(_ context.Context, paths []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bool{}
	for _, x := range f.rows {
		for _, p := range paths {
			if x.StoragePath == p {
				out[p] = true
			}
		}
	}
	return out, nil
}

// --- manager ---

type fakeRepoManager struct {
	users   *fakeUsers
	creds   *fakeCredentials
	otps    *fakeOTPs
	refresh *fakeRefresh
	files   *fakeFiles
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:   newFakeUsers(),
		creds:   &fakeCredentials{byEmail: map[string]*models.Credential{}},
		otps:    &fakeOTPs{},
		refresh: &fakeRefresh{rows: map[string]*models.RefreshToken{}},
		files:   &fakeFiles{rows: map[string]*models.File{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository     { return m.creds }
func (m *fakeRepoManager) OTPs(dbx.DBTX) otps.Repository                   { return m.otps }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository                 { return m.files }

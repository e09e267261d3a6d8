package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/client/client"
	"github.com/dmitrijs2005/lockbox/internal/client/config"
	"github.com/dmitrijs2005/lockbox/internal/client/models"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobs struct {
	data map[string][]byte
}

func (b *fakeBlobs) Put(_ context.Context, p string, d []byte) error {
	b.data[p] = append([]byte(nil), d...)
	return nil
}

func (b *fakeBlobs) Get(_ context.Context, p string) ([]byte, error) {
	d, ok := b.data[p]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

func (b *fakeBlobs) Delete(_ context.Context, p string) error {
	delete(b.data, p)
	return nil
}

type fakeClient struct {
	mu      sync.Mutex
	blobs   *fakeBlobs
	rows    map[string]*models.FileRecord
	order   []string
	codes   map[string]string
	logouts int

	requestErr error
	logoutErr  error
	meErr      error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		blobs: &fakeBlobs{data: map[string][]byte{}},
		rows:  map[string]*models.FileRecord{},
		codes: map[string]string{},
	}
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) RequestCode(_ context.Context, email string) error {
	if f.requestErr != nil {
		return f.requestErr
	}
	f.codes[email] = "123456"
	return nil
}

func (f *fakeClient) VerifyCode(_ context.Context, email, code string) (*config.Session, error) {
	if f.codes[email] != code {
		return nil, common.ErrInvalidOrExpiredOtp
	}
	return &config.Session{UserID: "u-1", Email: email, AccessToken: "at", RefreshToken: "rt"}, nil
}

func (f *fakeClient) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeClient) Me(context.Context) (*client.Identity, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return &client.Identity{UserID: "u-1", Email: "a@example.com"}, nil
}

func (f *fakeClient) Blobs() vault.BlobStore { return f.blobs }

func (f *fakeClient) Create(_ context.Context, rec *models.FileRecord) (*models.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *rec
	c.ID = fmt.Sprintf("f-%d", len(f.order)+1)
	c.UploadedAt = time.Now().Add(-time.Minute)
	f.rows[c.ID] = &c
	f.order = append(f.order, c.ID)
	return &c, nil
}

func (f *fakeClient) Get(_ context.Context, id string) (*models.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.DeletedAt != nil {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeClient) List(context.Context) ([]*models.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.FileRecord
	for i := len(f.order) - 1; i >= 0; i-- {
		if r, ok := f.rows[f.order[i]]; ok && r.DeletedAt == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeClient) Tombstone(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	now := time.Now()
	r.DeletedAt = &now
	return nil
}

func (f *fakeClient) Purge(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

type memSessions struct {
	sess    *config.Session
	cleared bool
}

func (m *memSessions) Load() (*config.Session, error) {
	if m.sess == nil {
		return nil, config.ErrNoSession
	}
	return m.sess, nil
}

func (m *memSessions) Save(s *config.Session) error {
	m.sess = s
	return nil
}

func (m *memSessions) Clear() error {
	m.sess = nil
	m.cleared = true
	return nil
}

type harness struct {
	api      *fakeClient
	sessions *memSessions
	out      *bytes.Buffer
	errOut   *bytes.Buffer
	app      *App
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	h := &harness{
		api:      newFakeClient(),
		sessions: &memSessions{sess: &config.Session{UserID: "u-1", Email: "a@example.com"}},
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
	}
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DownloadDir = t.TempDir()

	h.app = &App{
		config:   cfg,
		sessions: h.sessions,
		api:      h.api,
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      h.out,
		errOut:   h.errOut,
	}
	return h
}

func (h *harness) run(args ...string) error {
	root := newRootCommand(h.app)
	root.SetArgs(args)
	root.SetOut(h.out)
	root.SetErr(h.errOut)
	return root.ExecuteContext(context.Background())
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestLogin(t *testing.T) {
	h := newHarness(t, "123 456\n")
	require.NoError(t, h.run("login", "a@example.com"))

	out := h.out.String()
	assert.Contains(t, out, "Code sent to 'a@example.com'")
	assert.Contains(t, out, "Enter the 6-digit code")
	assert.Contains(t, out, "Logged in as 'a@example.com'")
}

func TestLogin_SavesExplicitServer(t *testing.T) {
	h := newHarness(t, "123456\n")
	h.app.configPath = filepath.Join(t.TempDir(), "config.toml")
	h.app.serverURL = "https://vault.example.com"
	h.app.config.ServerURL = h.app.serverURL

	require.NoError(t, h.run("login", "a@example.com"))

	cfg, err := config.LoadConfig(h.app.configPath)
	require.NoError(t, err)
	assert.Equal(t, "https://vault.example.com", cfg.ServerURL)
}

func TestLogin_WrongCode(t *testing.T) {
	h := newHarness(t, "000000\n")
	err := h.run("login", "a@example.com")
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredOtp)
	assert.NotContains(t, h.out.String(), "Logged in")
}

func TestLogin_DispatchFailure(t *testing.T) {
	h := newHarness(t, "")
	h.api.requestErr = common.ErrDispatch
	err := h.run("login", "a@example.com")
	assert.ErrorIs(t, err, common.ErrDispatch)
	assert.NotContains(t, h.out.String(), "Enter the 6-digit code")
}

func TestLogin_RequiresEmail(t *testing.T) {
	h := newHarness(t, "")
	assert.Error(t, h.run("login"))
}

func TestLogout(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run("logout"))
	assert.Equal(t, 1, h.api.logouts)
	assert.True(t, h.sessions.cleared)
	assert.Contains(t, h.out.String(), "Logged out")
}

func TestLogout_ServerDownStillClears(t *testing.T) {
	h := newHarness(t, "")
	h.api.logoutErr = client.ErrUnavailable
	require.NoError(t, h.run("logout"))
	assert.True(t, h.sessions.cleared)
	assert.Contains(t, h.out.String(), "local session is removed anyway")
}

func TestLogout_NotLoggedIn(t *testing.T) {
	h := newHarness(t, "")
	h.sessions.sess = nil
	require.NoError(t, h.run("logout"))
	assert.Equal(t, 0, h.api.logouts)
	assert.Contains(t, h.out.String(), "Not logged in")
}

func TestWhoami(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run("whoami"))
	assert.Equal(t, "'a@example.com' (u-1)\n", h.out.String())

	h.api.meErr = client.ErrUnauthorized
	assert.ErrorIs(t, h.run("whoami"), client.ErrUnauthorized)
}

func TestUploadListDownloadDelete(t *testing.T) {
	h := newHarness(t, "")
	payload := []byte("the quick brown fox")
	src := writeTemp(t, "notes.txt", payload)

	require.NoError(t, h.run("upload", src))
	assert.Contains(t, h.out.String(), "Uploaded 'notes.txt'")
	assert.Contains(t, h.out.String(), "id: f-1")

	for p, ct := range h.api.blobs.data {
		assert.True(t, strings.HasPrefix(p, "users/u-1/"), p)
		assert.NotContains(t, string(ct), "quick brown fox")
	}

	h.out.Reset()
	require.NoError(t, h.run("list"))
	assert.Contains(t, h.out.String(), "NAME")
	assert.Contains(t, h.out.String(), "notes.txt")
	assert.Contains(t, h.out.String(), "19 B")
	assert.Contains(t, h.out.String(), "text/plain")

	h.out.Reset()
	require.NoError(t, h.run("download", "f-1"))
	got, err := os.ReadFile(filepath.Join(h.app.config.DownloadDir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// a second download does not overwrite the first
	require.NoError(t, h.run("download", "f-1"))
	_, err = os.Stat(filepath.Join(h.app.config.DownloadDir, "notes (1).txt"))
	assert.NoError(t, err)

	h.out.Reset()
	require.NoError(t, h.run("delete", "f-1"))
	assert.Contains(t, h.out.String(), "Deleted 'notes.txt'")
	assert.Empty(t, h.api.blobs.data)
	assert.Empty(t, h.api.rows)

	h.out.Reset()
	require.NoError(t, h.run("list"))
	assert.Contains(t, h.out.String(), "No files yet")
}

func TestUpload_TypeFlag(t *testing.T) {
	h := newHarness(t, "")
	src := writeTemp(t, "data.bin", []byte{1, 2, 3})
	require.NoError(t, h.run("upload", "--type", "application/x-custom", src))
	assert.Equal(t, "application/x-custom", h.api.rows["f-1"].MimeType)
}

func TestUpload_NotLoggedIn(t *testing.T) {
	h := newHarness(t, "")
	h.sessions.sess = nil
	src := writeTemp(t, "a.txt", []byte("x"))
	assert.ErrorIs(t, h.run("upload", src), config.ErrNoSession)
	assert.Empty(t, h.api.blobs.data)
}

func TestUpload_TooLarge(t *testing.T) {
	h := newHarness(t, "")
	p := filepath.Join(t.TempDir(), "big.bin")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(common.MaxUploadSize+1))
	require.NoError(t, f.Close())

	assert.ErrorIs(t, h.run("upload", p), common.ErrValidation)
	assert.Empty(t, h.api.blobs.data)
}

func TestUpload_MissingFile(t *testing.T) {
	h := newHarness(t, "")
	assert.Error(t, h.run("upload", filepath.Join(t.TempDir(), "nope")))
}

func TestDownload_OutputFlag(t *testing.T) {
	h := newHarness(t, "")
	src := writeTemp(t, "photo.jpg", []byte("not really a jpeg"))
	require.NoError(t, h.run("upload", src))

	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, h.run("download", "-o", dir, "f-1"))
	got, err := os.ReadFile(filepath.Join(dir, "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "not really a jpeg", string(got))
}

func TestDownload_Tampered(t *testing.T) {
	h := newHarness(t, "")
	src := writeTemp(t, "a.txt", []byte("secret"))
	require.NoError(t, h.run("upload", src))
	for p := range h.api.blobs.data {
		h.api.blobs.data[p][0] ^= 0xFF
	}

	err := h.run("download", "f-1")
	assert.ErrorIs(t, err, common.ErrAuthenticationFailure)
	entries, _ := os.ReadDir(h.app.config.DownloadDir)
	assert.Empty(t, entries)
}

func TestDeleteUnknown(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorIs(t, h.run("delete", "nope"), common.ErrorNotFound)
}

func TestExplain(t *testing.T) {
	err := explain(config.ErrNoSession)
	assert.ErrorIs(t, err, config.ErrNoSession)
	assert.Contains(t, err.Error(), "lockbox login")

	err = explain(fmt.Errorf("x: %w", client.ErrUnauthorized))
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Contains(t, err.Error(), "lockbox login")

	plain := errors.New("boom")
	assert.Equal(t, plain, explain(plain))
}

func TestPrintError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	printError(&buf, errors.New("boom"))
	assert.Equal(t, "✗ boom\n", buf.String())
}

func TestGetCode(t *testing.T) {
	var buf bytes.Buffer
	code, err := GetCode(bufio.NewReader(strings.NewReader(" 12 34 56 \n")), &buf)
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
	assert.Contains(t, buf.String(), "> ")
}

func TestInit_DefaultsWithoutConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	app := newApp()
	app.serverURL = "http://example.test:9000"
	require.NoError(t, app.init())

	assert.Equal(t, "http://example.test:9000", app.config.ServerURL)
	assert.NotNil(t, app.api)
	assert.NotNil(t, app.vault)
	assert.NotNil(t, app.sessions)
}

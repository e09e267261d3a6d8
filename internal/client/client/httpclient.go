package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/client/config"
	"github.com/dmitrijs2005/lockbox/internal/client/models"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/netx"
	"github.com/dmitrijs2005/lockbox/internal/vault"
)

const apiPrefix = "/api/v1"

type HTTPClient struct {
	baseURL  string
	http     *http.Client
	transfer *http.Client
	sessions SessionStore

	mu      sync.Mutex
	session *config.Session
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient applies timeout to API calls only; blob transfers are bound
// by their context.
func NewHTTPClient(baseURL string, timeout time.Duration, sessions SessionStore) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		transfer: &http.Client{},
		sessions: sessions,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// statusError maps an error response to a sentinel, keeping the server's
// message for display.
func statusError(resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		sentinel = common.ErrValidation
	case http.StatusUnauthorized:
		switch msg {
		case common.ErrInvalidOrExpiredOtp.Error():
			return common.ErrInvalidOrExpiredOtp
		case common.ErrAuth.Error():
			return common.ErrAuth
		}
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = common.ErrorForbidden
	case http.StatusNotFound:
		sentinel = common.ErrorNotFound
	case http.StatusConflict:
		sentinel = common.ErrorAlreadyExists
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadGateway:
		sentinel = common.ErrDispatch
	default:
		sentinel = ErrUnavailable
	}
	if msg == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

func (c *HTTPClient) currentSession() (*config.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}
	s, err := c.sessions.Load()
	if err != nil {
		return nil, err
	}
	c.session = s
	return s, nil
}

func (c *HTTPClient) storeSession(s *config.Session) error {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return c.sessions.Save(s)
}

// send performs one request. out may be nil.
func (c *HTTPClient) send(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// call performs an authenticated request, refreshing the session once when
// the access token is rejected.
func (c *HTTPClient) call(ctx context.Context, method, path string, in, out any) error {
	sess, err := c.currentSession()
	if err != nil {
		return err
	}

	err = c.send(ctx, method, path, sess.AccessToken, in, out)
	if !errors.Is(err, ErrUnauthorized) || sess.RefreshToken == "" {
		return err
	}

	if err := c.refresh(ctx, sess); err != nil {
		return err
	}
	sess, err = c.currentSession()
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, sess.AccessToken, in, out)
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *HTTPClient) refresh(ctx context.Context, sess *config.Session) error {
	var pair tokenPair
	err := c.send(ctx, http.MethodPost, apiPrefix+"/auth/refresh", "",
		map[string]string{"refresh_token": sess.RefreshToken}, &pair)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("%w: session expired, log in again", ErrUnauthorized)
		}
		return err
	}

	next := *sess
	next.AccessToken = pair.AccessToken
	next.RefreshToken = pair.RefreshToken
	return c.storeSession(&next)
}

func (c *HTTPClient) RequestCode(ctx context.Context, email string) error {
	return c.send(ctx, http.MethodPost, apiPrefix+"/auth/otp", "", map[string]string{"email": email}, nil)
}

// VerifyCode exchanges the code for a session and saves it.
func (c *HTTPClient) VerifyCode(ctx context.Context, email, code string) (*config.Session, error) {
	var resp struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		tokenPair
	}
	err := c.send(ctx, http.MethodPost, apiPrefix+"/auth/otp/verify", "",
		map[string]string{"email": email, "code": code}, &resp)
	if err != nil {
		return nil, err
	}

	sess := &config.Session{
		UserID:       resp.UserID,
		Email:        resp.Email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if err := c.storeSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout revokes the refresh tokens on the server.
func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, apiPrefix+"/auth/logout", nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.call(ctx, http.MethodGet, apiPrefix+"/auth/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *HTTPClient) Create(ctx context.Context, rec *models.FileRecord) (*models.FileRecord, error) {
	in := map[string]any{
		"original_name": rec.OriginalName,
		"storage_path":  rec.StoragePath,
		"size":          rec.Size,
		"mime_type":     rec.MimeType,
		"encoded_key":   rec.EncodedKey,
		"encoded_nonce": rec.EncodedNonce,
	}
	var out models.FileRecord
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/files", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	var out models.FileRecord
	if err := c.call(ctx, http.MethodGet, apiPrefix+"/files/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) List(ctx context.Context) ([]*models.FileRecord, error) {
	out := []*models.FileRecord{}
	if err := c.call(ctx, http.MethodGet, apiPrefix+"/files", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Tombstone(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPost, apiPrefix+"/files/"+url.PathEscape(id)+"/tombstone", nil, nil)
}

func (c *HTTPClient) Purge(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, apiPrefix+"/files/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) Blobs() vault.BlobStore {
	return &blobClient{c: c}
}

// blobClient moves ciphertext through presigned URLs.
type blobClient struct {
	c *HTTPClient
}

type urlResponse struct {
	URL string `json:"url"`
}

func (b *blobClient) presign(ctx context.Context, kind, path string) (string, error) {
	var out urlResponse
	if err := b.c.call(ctx, http.MethodPost, apiPrefix+"/blobs/"+kind, map[string]string{"storage_path": path}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (b *blobClient) Put(ctx context.Context, path string, data []byte) error {
	u, err := b.presign(ctx, "upload-url", path)
	if err != nil {
		return err
	}
	return netx.UploadToPresignedURL(ctx, b.c.transfer, u, data)
}

func (b *blobClient) Get(ctx context.Context, path string) ([]byte, error) {
	u, err := b.presign(ctx, "download-url", path)
	if err != nil {
		return nil, err
	}
	return netx.DownloadFromPresignedURL(ctx, b.c.transfer, u, common.MaxUploadSize+cryptox.TagSize)
}

func (b *blobClient) Delete(ctx context.Context, path string) error {
	return b.c.call(ctx, http.MethodDelete, apiPrefix+"/blobs?path="+url.QueryEscape(path), nil, nil)
}

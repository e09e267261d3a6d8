// Package rest exposes the lockbox services over JSON/HTTP.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/server/config"
	"github.com/dmitrijs2005/lockbox/internal/server/models"
	"github.com/dmitrijs2005/lockbox/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// AuthAPI is the part of services.AuthService the handlers use.
type AuthAPI interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

// FileAPI is the part of services.FileService the handlers use.
type FileAPI interface {
	PresignUpload(ctx context.Context, userID, storagePath string) (string, error)
	PresignDownload(ctx context.Context, userID, storagePath string) (string, error)
	DeleteBlob(ctx context.Context, userID, storagePath string) error
	CreateFile(ctx context.Context, userID string, f *models.File) (*models.File, error)
	ListFiles(ctx context.Context, userID string) ([]*models.File, error)
	GetFile(ctx context.Context, userID, id string) (*models.File, error)
	TombstoneFile(ctx context.Context, userID, id string) error
	PurgeFile(ctx context.Context, userID, id string) error
}

type Server struct {
	address   string
	auth      AuthAPI
	files     FileAPI
	logger    logging.Logger
	jwtSecret []byte
	rps       float64
	burst     int

	trustProxy  bool
	verifyLimit *keyedLimiter
}

func NewServer(cfg *config.Config, l logging.Logger, a AuthAPI, f FileAPI) *Server {
	return &Server{
		address:   cfg.EndpointAddrHTTP,
		auth:      a,
		files:     f,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(cfg.SecretKey),
		rps:       cfg.RateLimitRPS,
		burst:     cfg.RateLimitBurst,

		trustProxy:  cfg.TrustProxyHeaders,
		verifyLimit: newEmailLimiter(cfg.VerifyAttemptsPerEmail, cfg.OTPValidityDuration),
	}
}

// Routes builds the router. It is separate from Run so tests can mount it
// on httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimit(s.rps, s.burst))
			r.Post("/auth/otp", s.handleRequestCode)
			r.Post("/auth/otp/verify", s.handleVerifyCode)
		})
		r.Post("/auth/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.accessToken)
			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/logout", s.handleLogout)

			r.Post("/blobs/upload-url", s.handleUploadURL)
			r.Post("/blobs/download-url", s.handleDownloadURL)
			r.Delete("/blobs", s.handleDeleteBlob)

			r.Post("/files", s.handleCreateFile)
			r.Get("/files", s.handleListFiles)
			r.Get("/files/{id}", s.handleGetFile)
			r.Post("/files/{id}/tombstone", s.handleTombstoneFile)
			r.Delete("/files/{id}", s.handlePurgeFile)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

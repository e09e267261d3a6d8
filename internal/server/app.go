// Package server wires the lockbox server together: it opens the database,
// runs migrations, connects object storage, builds the services and runs the
// HTTP API and the janitor until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/server/config"
	"github.com/dmitrijs2005/lockbox/internal/server/janitor"
	"github.com/dmitrijs2005/lockbox/internal/server/notify"
	"github.com/dmitrijs2005/lockbox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lockbox/internal/server/rest"
	"github.com/dmitrijs2005/lockbox/internal/server/services"
	"github.com/dmitrijs2005/lockbox/internal/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	server  *rest.Server
	janitor *janitor.Janitor
}

// newDispatcher requires SMTP. Writing codes to the log needs an explicit
// DevLogCodes, since anyone who can read the log can then sign in.
func newDispatcher(c *config.Config, l logging.Logger) (notify.Dispatcher, error) {
	if c.SMTPAddr == "" {
		if !c.DevLogCodes {
			return nil, errors.New("SMTP is not configured: set LOCKBOX_SMTP_ADDR, or LOCKBOX_DEV_LOG_CODES=true for development")
		}
		l.Warn(context.Background(), "DEVELOPMENT MODE: SMTP is not configured, login codes are written to the log")
		return notify.NewLogDispatcher(l), nil
	}
	return notify.NewSMTPDispatcher(c.SMTPAddr, c.SMTPUser, c.SMTPPassword, c.SMTPFrom)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := storage.NewS3Store(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("s3 init error: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("s3 bucket error: %w", err)
	}

	dispatcher, err := newDispatcher(c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("notify init error: %w", err)
	}

	accounts := services.NewAccountService(db, rm)
	authService := services.NewAuthService(db, rm, accounts, dispatcher, logger.With("module", "auth"), c)
	fileService := services.NewFileService(db, rm, blobs, c)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		server:  rest.NewServer(c, logger, authService, fileService),
		janitor: janitor.New(db, rm, blobs, logger, c),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.janitor.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

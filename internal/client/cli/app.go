package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/lockbox/internal/client/client"
	"github.com/dmitrijs2005/lockbox/internal/client/config"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/vault"
	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

type sessionStore interface {
	Load() (*config.Session, error)
	Save(*config.Session) error
	Clear() error
}

type App struct {
	config   *config.Config
	sessions sessionStore
	api      client.Client
	vault    *vault.Service
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
	debug  bool

	configPath string
	serverURL  string
}

func newApp() *App {
	return &App{
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// init loads configuration and builds the API client. Tests that inject
// api beforehand skip it.
func (a *App) init() error {
	if a.debug {
		a.log = logging.NewText(a.errOut, slog.LevelDebug)
	} else {
		a.log = logging.Discard()
	}

	if a.api == nil {
		path := a.configPath
		if path == "" {
			p, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		a.configPath = path

		cfg, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		if a.serverURL != "" {
			cfg.ServerURL = a.serverURL
		}
		a.config = cfg
		sessions := config.NewSessionStore(config.SessionPath(path))
		a.sessions = sessions
		a.api = client.NewHTTPClient(cfg.ServerURL, cfg.Timeout, sessions)
		a.log.Debug(context.Background(), "config loaded", "path", path, "server", cfg.ServerURL)
	}

	if a.config == nil {
		a.config = &config.Config{}
		a.config.LoadDefaults()
	}
	a.vault = vault.NewService(a.api.Blobs(), a.api, a.log)
	return nil
}

// interactive reports whether stdout is a terminal, which enables the spinner.
func (a *App) interactive() bool {
	f, ok := a.out.(*os.File)
	return ok && isTerminal(int(f.Fd()))
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

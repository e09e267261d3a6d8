package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrNoSession means nobody is signed in.
var ErrNoSession = errors.New("not logged in")

type Session struct {
	UserID       string    `toml:"user_id"`
	Email        string    `toml:"email"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	SavedAt      time.Time `toml:"saved_at"`
}

// SessionStore keeps the current session in a 0600 TOML file.
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

func (s *SessionStore) Path() string { return s.path }

func (s *SessionStore) Load() (*Session, error) {
	var sess Session
	if _, err := toml.DecodeFile(s.path, &sess); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if sess.AccessToken == "" && sess.RefreshToken == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

func (s *SessionStore) Save(sess *Session) error {
	sess.SavedAt = time.Now().UTC().Truncate(time.Second)
	if err := writeTOML(s.path, sess, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing twice is fine.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

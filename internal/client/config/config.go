package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	appDir          = "lockbox"
	configFileName  = "config.toml"
	sessionFileName = "session.toml"
)

// Config holds runtime settings for the lockbox CLI.
type Config struct {
	ServerURL   string        `toml:"server_url"`
	DownloadDir string        `toml:"download_dir"`
	Timeout     time.Duration `toml:"timeout"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DownloadDir = "."
	c.Timeout = 30 * time.Second
}

// Dir is $XDG_CONFIG_HOME/lockbox or its platform equivalent.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

func DefaultConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// SessionPath returns the session file that belongs to the config at
// configPath.
func SessionPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), sessionFileName)
}

// LoadConfig applies defaults and overlays the TOML file at path. A missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

// writeTOML writes v to path atomically with the given permissions.
func writeTOML(path string, v any, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := toml.NewEncoder(tmp).Encode(v); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func SaveConfig(path string, cfg *Config) error {
	return writeTOML(path, cfg, 0o644)
}

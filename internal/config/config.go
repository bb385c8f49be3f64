// Package config handles the XDG configuration directory, file paths and
// the optional config.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is the application directory name.
	AppName = "todosync"

	// ConfigFile is the optional TOML settings filename.
	ConfigFile = "config.toml"

	// SessionFile is the stored sign-in session filename.
	SessionFile = "session.json"

	// DatabaseFile is the default SQLite database filename.
	DatabaseFile = "todosync.db"
)

// Backend names accepted in config.toml.
const (
	BackendSQLite   = "sqlite"
	BackendFirebase = "firebase"
)

// ErrNotConfigured marks a required setting missing from config.toml.
var ErrNotConfigured = errors.New("not configured")

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `toml:"-"`

	// Debug enables debug logging.
	Debug bool `toml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `toml:"-"`

	// Backend selects the task and identity backend.
	Backend string `toml:"backend"`

	Firebase Firebase `toml:"firebase"`
	SQLite   SQLite   `toml:"sqlite"`
}

// Firebase configures the Firebase backend.
type Firebase struct {
	ProjectID string `toml:"project-id"`
	APIKey    string `toml:"api-key"`

	// IdentityEndpoint overrides the Identity Toolkit base URL (emulator).
	IdentityEndpoint string `toml:"identity-endpoint"`

	// TokenEndpoint overrides the Secure Token URL (emulator).
	TokenEndpoint string `toml:"token-endpoint"`
}

// SQLite configures the local SQLite backend.
type SQLite struct {
	// Path is the database file. Defaults to <Dir>/todosync.db.
	Path string `toml:"path"`
}

// New creates a new Config with the default or specified config directory
// and applies config.toml from that directory if present.
// If configDir is empty, uses XDG_CONFIG_HOME/todosync or $HOME/.config/todosync.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir, Backend: BackendSQLite}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) load() error {
	_, err := toml.DecodeFile(c.ConfigPath(), c)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	switch c.Backend {
	case BackendSQLite, BackendFirebase:
	case "":
		c.Backend = BackendSQLite
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	return nil
}

// ConfigPath returns the path to config.toml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// SessionPath returns the path to the stored session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// DatabasePath returns the SQLite database path.
func (c *Config) DatabasePath() string {
	if c.SQLite.Path != "" {
		return c.SQLite.Path
	}
	return filepath.Join(c.Dir, DatabaseFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSession checks if the session file exists.
func (c *Config) HasSession() bool {
	_, err := os.Stat(c.SessionPath())
	return err == nil
}

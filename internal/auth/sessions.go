package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"todosync/internal/service"
)

// ErrNoSession is returned by SessionStore.Load when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// SessionStore persists the signed-in session between runs.
type SessionStore interface {
	Load() (service.Session, error)
	Save(sess service.Session) error
	Clear() error
}

// FileSessions stores the session as JSON at a path with mode 0600.
type FileSessions struct {
	Path string
}

// Load reads the stored session. Returns ErrNoSession if the file is missing.
func (f FileSessions) Load() (service.Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return service.Session{}, ErrNoSession
	}
	if err != nil {
		return service.Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var sess service.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return service.Session{}, fmt.Errorf("invalid session file: %w", err)
	}
	return sess, nil
}

// Save writes the session, creating the parent directory (0700) if needed.
func (f FileSessions) Save(sess service.Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0600)
}

// Clear removes the stored session. A missing file is not an error.
func (f FileSessions) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, filepath.Join(dir, "todosync.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(dir, "session.json"), cfg.SessionPath())
}

func TestNew_ReadsFirebaseSettings(t *testing.T) {
	dir := t.TempDir()
	data := `backend = "firebase"

[firebase]
project-id = "demo-todo"
api-key = "key-123"
identity-endpoint = "http://localhost:9099/identitytoolkit.googleapis.com/"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(data), 0600))

	cfg, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, BackendFirebase, cfg.Backend)
	assert.Equal(t, "demo-todo", cfg.Firebase.ProjectID)
	assert.Equal(t, "key-123", cfg.Firebase.APIKey)
	assert.Equal(t, "http://localhost:9099/identitytoolkit.googleapis.com/", cfg.Firebase.IdentityEndpoint)
}

func TestNew_SQLitePathOverride(t *testing.T) {
	dir := t.TempDir()
	data := "[sqlite]\npath = \"/tmp/other.db\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(data), 0600))

	cfg, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath())
}

func TestNew_UnknownBackend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(`backend = "mongo"`), 0600))

	_, err := New(dir)
	assert.EqualError(t, err, "unknown backend: mongo")
}

func TestNew_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("backend = "), 0600))

	_, err := New(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config.toml")
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "todosync"), DefaultConfigDir())
}

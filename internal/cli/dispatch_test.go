package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todosync/internal/cli"
	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
	"todosync/internal/testutil"
)

// testFactory creates a backend factory that returns the given FakeBackend.
func testFactory(backend *testutil.FakeBackend) cli.BackendFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
		return backend, nil
	}
}

type result struct {
	stdout, stderr string
	code           int
}

func run(d *cli.Dispatcher, input string, args ...string) result {
	var stdout, stderr bytes.Buffer
	code := d.Run(context.Background(), args, strings.NewReader(input), &stdout, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend()))

	res := run(dispatcher, "", "unknowncmd")

	assert.Equal(t, exitcode.UserError, res.code)
	assert.Equal(t, "error: unknown command: unknowncmd\n", res.stderr)
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend()))

	res := run(dispatcher, "", "--quiet")

	assert.Equal(t, exitcode.UserError, res.code)
	assert.Equal(t, "error: unknown command: --quiet\n", res.stderr)
}

func TestDispatcher_HelpCommand(t *testing.T) {
	backend := testutil.NewFakeBackend()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(backend))

	res := run(dispatcher, "", "help", "--config", t.TempDir())

	assert.Equal(t, exitcode.Success, res.code)
	assert.Empty(t, res.stderr)
	assert.Contains(t, res.stdout, "Usage:")
	assert.False(t, backend.Closed(), "help must not open the backend")
}

func TestDispatcher_VersionCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend()))

	res := run(dispatcher, "", "version", "--config", t.TempDir())

	assert.Equal(t, exitcode.Success, res.code)
	assert.Equal(t, "todosync 0.1.0\n", res.stdout)
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend()))

	res := run(dispatcher, "", "help", "--unknown")

	assert.Equal(t, exitcode.UserError, res.code)
	assert.Equal(t, "error: unknown flag: -unknown\n", res.stderr)
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend()))

	res := run(dispatcher, "", "add", "--desc")

	assert.Equal(t, exitcode.UserError, res.code)
	assert.Equal(t, "error: flag needs an argument: -desc\n", res.stderr)
}

func TestDispatcher_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("backend = [\n"), 0600))
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeBackend()))

	res := run(dispatcher, "", "list", "--config", dir)

	assert.Equal(t, exitcode.AuthError, res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "error: invalid config.toml"), res.stderr)
}

func TestDispatcher_NotSignedIn(t *testing.T) {
	backend := testutil.NewFakeBackend()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(backend))

	res := run(dispatcher, "", "list", "--config", t.TempDir())

	assert.Equal(t, exitcode.AuthError, res.code)
	assert.Equal(t, "error: not signed in (run: todosync login)\n", res.stderr)
	assert.True(t, backend.Closed())
}

func TestDispatcher_BackendNotConfigured(t *testing.T) {
	dir := t.TempDir()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry,
		func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
			return nil, fmt.Errorf("firebase project-id %w", config.ErrNotConfigured)
		})

	res := run(dispatcher, "", "whoami", "--config", dir)

	assert.Equal(t, exitcode.AuthError, res.code)
	assert.Equal(t, "error: firebase project-id not configured (edit "+filepath.Join(dir, config.ConfigFile)+")\n", res.stderr)
}

func TestDispatcher_BackendOpenFails(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry,
		func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
			return nil, errors.New("database is locked")
		})

	res := run(dispatcher, "", "list", "--config", t.TempDir())

	assert.Equal(t, exitcode.BackendError, res.code)
	assert.Equal(t, "error: backend error: database is locked\n", res.stderr)
}

func TestDispatcher_RestoreFailsForAuthCommand(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.AddUser("ada@example.com", "secret")
	dir := t.TempDir()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(backend))

	require.Equal(t, exitcode.Success, run(dispatcher, "secret\n", "login", "--config", dir, "--email", "ada@example.com").code)

	backend.LookupErr = errors.New("request timed out")
	res := run(dispatcher, "", "list", "--config", dir)

	assert.Equal(t, exitcode.BackendError, res.code)
	assert.Equal(t, "error: backend error: restore session: request timed out\n", res.stderr)
}

func TestDispatcher_SessionFlow(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.AddUser("ada@example.com", "secret")
	dir := t.TempDir()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(backend))

	res := run(dispatcher, "ada@example.com\nsecret\n", "login", "--config", dir)
	require.Equal(t, exitcode.Success, res.code, res.stderr)
	assert.Equal(t, "ok\n", res.stdout)

	res = run(dispatcher, "", "add", "--config", dir, "--desc", "semi-skimmed", "Buy", "milk")
	require.Equal(t, exitcode.Success, res.code, res.stderr)

	res = run(dispatcher, "", "list", "--config", dir)
	require.Equal(t, exitcode.Success, res.code, res.stderr)
	assert.Equal(t, "   1  [ ] Buy milk\n          semi-skimmed\n", res.stdout)

	res = run(dispatcher, "", "done", "--config", dir, "--quiet", "1")
	require.Equal(t, exitcode.Success, res.code, res.stderr)
	assert.Empty(t, res.stdout)

	res = run(dispatcher, "", "list", "--config", dir)
	assert.Equal(t, "   1  [x] Buy milk\n          semi-skimmed\n", res.stdout)

	res = run(dispatcher, "", "rm", "--config", dir, "1")
	require.Equal(t, exitcode.Success, res.code, res.stderr)

	res = run(dispatcher, "", "list", "--config", dir)
	assert.Equal(t, "no tasks found\n", res.stdout)

	res = run(dispatcher, "", "logout", "--config", dir)
	require.Equal(t, exitcode.Success, res.code, res.stderr)

	res = run(dispatcher, "", "list", "--config", dir)
	assert.Equal(t, exitcode.AuthError, res.code)
}

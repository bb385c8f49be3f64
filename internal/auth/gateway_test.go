package auth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todosync/internal/auth"
	"todosync/internal/service"
	"todosync/internal/testutil"
)

func newGateway(t *testing.T) (*auth.Gateway, *testutil.FakeBackend, auth.FileSessions) {
	t.Helper()
	backend := testutil.NewFakeBackend()
	sessions := auth.FileSessions{Path: filepath.Join(t.TempDir(), "session.json")}
	return auth.NewGateway(backend, sessions), backend, sessions
}

func TestSignIn_Success(t *testing.T) {
	gw, backend, sessions := newGateway(t)
	user := backend.AddUser("ada@example.com", "secret")

	require.NoError(t, gw.SignIn(context.Background(), "ada@example.com", "secret"))

	st := gw.State()
	assert.Equal(t, auth.Authenticated, st.Phase)
	assert.Equal(t, user, st.User)

	got, ok := gw.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, user.ID, got.ID)

	stored, err := sessions.Load()
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.User.ID)

	info, err := os.Stat(sessions.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSignIn_EmptyFieldsFailLocally(t *testing.T) {
	gw, backend, _ := newGateway(t)
	backend.SignInErr = errors.New("must not be called")

	err := gw.SignIn(context.Background(), "  ", "secret")
	assert.ErrorIs(t, err, auth.ErrEmptyCredentials)
	assert.Equal(t, auth.State{Phase: auth.Failed, Message: "email or password can't be empty"}, gw.State())

	err = gw.SignIn(context.Background(), "ada@example.com", "")
	assert.ErrorIs(t, err, auth.ErrEmptyCredentials)
}

func TestSignIn_WrongPassword(t *testing.T) {
	gw, backend, _ := newGateway(t)
	backend.AddUser("ada@example.com", "secret")

	err := gw.SignIn(context.Background(), "ada@example.com", "nope")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.Equal(t, auth.Failed, gw.State().Phase)
	assert.Equal(t, "invalid email or password", gw.State().Message)

	_, ok := gw.CurrentUser()
	assert.False(t, ok)
}

func TestSignUp_CreatesAccount(t *testing.T) {
	gw, _, _ := newGateway(t)

	require.NoError(t, gw.SignUp(context.Background(), "new@example.com", "pw"))
	assert.Equal(t, auth.Authenticated, gw.State().Phase)
	assert.Equal(t, "new@example.com", gw.State().User.Email)

	err := gw.SignUp(context.Background(), "new@example.com", "pw")
	assert.ErrorIs(t, err, service.ErrEmailExists)
}

func TestSignOut_ClearsSession(t *testing.T) {
	gw, backend, sessions := newGateway(t)
	backend.AddUser("ada@example.com", "secret")
	require.NoError(t, gw.SignIn(context.Background(), "ada@example.com", "secret"))

	require.NoError(t, gw.SignOut(context.Background()))

	assert.Equal(t, auth.Unauthenticated, gw.State().Phase)
	_, ok := gw.CurrentUser()
	assert.False(t, ok)
	_, err := sessions.Load()
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestSignOut_RemoteFailureStillClearsLocal(t *testing.T) {
	gw, backend, sessions := newGateway(t)
	backend.AddUser("ada@example.com", "secret")
	require.NoError(t, gw.SignIn(context.Background(), "ada@example.com", "secret"))
	backend.SignOutErr = errors.New("network down")

	err := gw.SignOut(context.Background())
	assert.Error(t, err)
	assert.Equal(t, auth.Unauthenticated, gw.State().Phase)
	_, err = sessions.Load()
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestRestore_NoSession(t *testing.T) {
	gw, _, _ := newGateway(t)

	require.NoError(t, gw.Restore(context.Background()))
	assert.Equal(t, auth.Unauthenticated, gw.State().Phase)
}

func TestRestore_ValidSession(t *testing.T) {
	gw, backend, sessions := newGateway(t)
	user := backend.AddUser("ada@example.com", "secret")
	require.NoError(t, sessions.Save(testutil.SessionFor(user)))

	require.NoError(t, gw.Restore(context.Background()))
	assert.Equal(t, auth.Authenticated, gw.State().Phase)
	assert.Equal(t, user, gw.State().User)
}

func TestRestore_RejectedSessionIsCleared(t *testing.T) {
	gw, _, sessions := newGateway(t)
	require.NoError(t, sessions.Save(testutil.SessionFor(service.User{ID: "ghost"})))

	require.NoError(t, gw.Restore(context.Background()))
	assert.Equal(t, auth.Unauthenticated, gw.State().Phase)
	_, err := sessions.Load()
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestRestore_BackendErrorKeepsSession(t *testing.T) {
	gw, backend, sessions := newGateway(t)
	user := backend.AddUser("ada@example.com", "secret")
	require.NoError(t, sessions.Save(testutil.SessionFor(user)))
	backend.LookupErr = errors.New("request timed out")

	err := gw.Restore(context.Background())
	require.Error(t, err)
	assert.Equal(t, auth.State{Phase: auth.Failed, Message: "request timed out"}, gw.State())

	_, err = sessions.Load()
	assert.NoError(t, err)
}

func TestRestore_CorruptFile(t *testing.T) {
	gw, _, sessions := newGateway(t)
	require.NoError(t, os.WriteFile(sessions.Path, []byte("{not json"), 0600))

	err := gw.Restore(context.Background())
	require.Error(t, err)
	assert.Equal(t, auth.Failed, gw.State().Phase)
}

func TestWatchState_ReportsTransitions(t *testing.T) {
	gw, backend, _ := newGateway(t)
	backend.AddUser("ada@example.com", "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := gw.WatchState(ctx)
	assert.Equal(t, auth.Unauthenticated, (<-ch).Phase)

	require.NoError(t, gw.SignIn(ctx, "ada@example.com", "secret"))
	assert.Equal(t, auth.Authenticated, (<-ch).Phase)
}

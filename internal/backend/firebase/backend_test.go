package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"todosync/internal/config"
	"todosync/internal/service"
)

// fakeIdentity serves the subset of Identity Toolkit and Secure Token used here.
type fakeIdentity struct {
	accounts     map[string]string // email -> password
	lastIDToken  string
	refreshFails bool
}

func (f *fakeIdentity) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/signupNewUser", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&req)
		if _, ok := f.accounts[req.Email]; ok {
			writeAPIError(w, "EMAIL_EXISTS")
			return
		}
		f.accounts[req.Email] = req.Password
		writeJSON(w, map[string]string{
			"localId": "uid-" + req.Email, "email": req.Email,
			"idToken": "id-" + req.Email, "refreshToken": "rt-" + req.Email, "expiresIn": "3600",
		})
	})
	mux.HandleFunc("/verifyPassword", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&req)
		if pw, ok := f.accounts[req.Email]; !ok || pw != req.Password {
			writeAPIError(w, "INVALID_LOGIN_CREDENTIALS")
			return
		}
		writeJSON(w, map[string]string{
			"localId": "uid-" + req.Email, "email": req.Email,
			"idToken": "id-" + req.Email, "refreshToken": "rt-" + req.Email, "expiresIn": "3600",
		})
	})
	mux.HandleFunc("/getAccountInfo", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ IdToken string }
		json.NewDecoder(r.Body).Decode(&req)
		f.lastIDToken = req.IdToken
		if req.IdToken == "revoked" {
			writeAPIError(w, "INVALID_ID_TOKEN")
			return
		}
		writeJSON(w, map[string]interface{}{
			"users": []map[string]string{{"localId": "uid-1", "email": "ada@example.com"}},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if f.refreshFails {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"code":400,"message":"INVALID_REFRESH_TOKEN"}}`)
			return
		}
		writeJSON(w, map[string]string{
			"access_token": "fresh-id", "id_token": "fresh-id", "refresh_token": "rt-2",
			"token_type": "Bearer", "expires_in": "3600",
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, `{"error":{"code":400,"message":%q,"errors":[{"message":%q,"domain":"global","reason":"invalid"}]}}`, msg, msg)
}

func newTestBackend(t *testing.T) (*Backend, *fakeIdentity) {
	t.Helper()
	fake := &fakeIdentity{accounts: map[string]string{}}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	b, err := NewWithHTTPClient(context.Background(), srv.Client(), srv.URL+"/", "demo-project")
	require.NoError(t, err)
	return b, fake
}

func TestNew_RequiresSettings(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	_, err := New(context.Background(), cfg)
	assert.EqualError(t, err, "firebase project-id not configured")

	cfg.Firebase.ProjectID = "demo"
	_, err = New(context.Background(), cfg)
	assert.EqualError(t, err, "firebase api-key not configured")
}

func TestSignUp_AndSignIn(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	sess, err := b.SignUp(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, service.User{ID: "uid-ada@example.com", Email: "ada@example.com"}, sess.User)
	assert.Equal(t, "id-ada@example.com", sess.IDToken)
	assert.Equal(t, "rt-ada@example.com", sess.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.Expiry, time.Minute)

	_, err = b.SignUp(ctx, "ada@example.com", "secret")
	assert.ErrorIs(t, err, service.ErrEmailExists)

	sess, err = b.SignIn(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-ada@example.com", sess.User.ID)

	_, err = b.SignIn(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLookup_ValidToken(t *testing.T) {
	b, fake := newTestBackend(t)

	user, err := b.Lookup(context.Background(), service.Session{
		User:    service.User{ID: "uid-1"},
		IDToken: "current",
	})
	require.NoError(t, err)
	assert.Equal(t, service.User{ID: "uid-1", Email: "ada@example.com"}, user)
	assert.Equal(t, "current", fake.lastIDToken)
}

func TestLookup_RefreshesExpiredToken(t *testing.T) {
	b, fake := newTestBackend(t)

	_, err := b.Lookup(context.Background(), service.Session{
		User:         service.User{ID: "uid-1"},
		IDToken:      "stale",
		RefreshToken: "rt-1",
		Expiry:       time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh-id", fake.lastIDToken)
}

func TestLookup_RejectedRefreshToken(t *testing.T) {
	b, fake := newTestBackend(t)
	fake.refreshFails = true

	_, err := b.Lookup(context.Background(), service.Session{
		User:         service.User{ID: "uid-1"},
		IDToken:      "stale",
		RefreshToken: "gone",
		Expiry:       time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, service.ErrSessionExpired)
}

func TestLookup_RevokedIDToken(t *testing.T) {
	b, _ := newTestBackend(t)

	_, err := b.Lookup(context.Background(), service.Session{
		User:    service.User{ID: "uid-1"},
		IDToken: "revoked",
	})
	assert.ErrorIs(t, err, service.ErrSessionExpired)
}

func TestTasks_RequiresSession(t *testing.T) {
	b, _ := newTestBackend(t)

	_, err := b.Tasks(context.Background(), service.Session{})
	assert.ErrorIs(t, err, service.ErrNotSignedIn)
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want string
	}{
		{"deadline", context.DeadlineExceeded, "request timed out"},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), "request timed out"},
		{"permission", status.Error(codes.PermissionDenied, "rules"), "permission denied or session expired (run: todosync login)"},
		{"unauthenticated", status.Error(codes.Unauthenticated, "token"), "permission denied or session expired (run: todosync login)"},
		{"not found", status.Error(codes.NotFound, "doc"), "not found"},
		{"weak password", &googleapi.Error{Code: 400, Message: "WEAK_PASSWORD : Password should be at least 6 characters"}, "password is too weak"},
		{"other api", &googleapi.Error{Code: 400, Message: "QUOTA_EXCEEDED"}, "identity service: QUOTA_EXCEEDED"},
		{"passthrough", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, wrapError(tt.in), tt.want)
		})
	}
	assert.NoError(t, wrapError(nil))
}

func TestTaskDoc_RoundTrip(t *testing.T) {
	task := service.Task{
		ID:          "abc",
		UserID:      "uid-1",
		Title:       "Buy milk",
		Description: "2 litres",
		Completed:   true,
		Timestamp:   1700000000000,
	}
	assert.Equal(t, task, toDoc(task).task("abc"))
}

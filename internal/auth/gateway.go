// Package auth wraps the remote identity service and publishes the
// authentication state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"todosync/internal/logging"
	"todosync/internal/observe"
	"todosync/internal/service"
)

// ErrEmptyCredentials is returned when email or password is blank.
var ErrEmptyCredentials = errors.New("email or password can't be empty")

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.log = logging.OrDiscard(l) }
}

// Gateway tracks the signed-in session.
type Gateway struct {
	identity service.Identity
	sessions SessionStore
	log      *slog.Logger
	state    *observe.Value[State]

	mu      sync.Mutex
	session *service.Session
}

// NewGateway creates a Gateway in the Unauthenticated state.
func NewGateway(identity service.Identity, sessions SessionStore, opts ...Option) *Gateway {
	g := &Gateway{
		identity: identity,
		sessions: sessions,
		log:      logging.Discard(),
		state:    observe.NewValue(State{Phase: Unauthenticated}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current authentication state.
func (g *Gateway) State() State {
	return g.state.Load()
}

// WatchState delivers the current state and every later change until ctx is done.
func (g *Gateway) WatchState(ctx context.Context) <-chan State {
	return g.state.Watch(ctx)
}

// CurrentUser returns the signed-in user.
func (g *Gateway) CurrentUser() (service.User, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return service.User{}, false
	}
	return g.session.User, true
}

// Session returns the signed-in session.
func (g *Gateway) Session() (service.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return service.Session{}, false
	}
	return *g.session, true
}

// Restore loads the persisted session and validates it with the identity
// service. A missing or rejected session leaves the gateway Unauthenticated
// and is not an error.
func (g *Gateway) Restore(ctx context.Context) error {
	sess, err := g.sessions.Load()
	if errors.Is(err, ErrNoSession) {
		g.setSignedOut()
		return nil
	}
	if err != nil {
		g.fail(err.Error())
		return err
	}
	if !sess.Valid() {
		g.log.Debug("discarding incomplete session")
		g.setSignedOut()
		return g.sessions.Clear()
	}

	g.state.Store(State{Phase: Loading})
	user, err := g.identity.Lookup(ctx, sess)
	if errors.Is(err, service.ErrSessionExpired) {
		g.log.Debug("stored session rejected", "user", sess.User.ID)
		g.setSignedOut()
		return g.sessions.Clear()
	}
	if err != nil {
		g.fail(err.Error())
		return fmt.Errorf("restore session: %w", err)
	}

	sess.User = user
	g.setSignedIn(sess)
	return nil
}

// SignIn authenticates with email and password.
func (g *Gateway) SignIn(ctx context.Context, email, password string) error {
	return g.authenticate(ctx, "sign in", email, password, g.identity.SignIn)
}

// SignUp creates an account and signs it in.
func (g *Gateway) SignUp(ctx context.Context, email, password string) error {
	return g.authenticate(ctx, "sign up", email, password, g.identity.SignUp)
}

func (g *Gateway) authenticate(ctx context.Context, op, email, password string,
	call func(context.Context, string, string) (service.Session, error)) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		g.fail(ErrEmptyCredentials.Error())
		return ErrEmptyCredentials
	}

	g.state.Store(State{Phase: Loading})
	sess, err := call(ctx, email, password)
	if err != nil {
		g.log.Warn(op+" failed", "email", email, "err", err)
		g.fail(err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := g.sessions.Save(sess); err != nil {
		g.fail(err.Error())
		return err
	}
	g.setSignedIn(sess)
	return nil
}

// SignOut ends the session locally and, where supported, on the backend.
// The local session is always removed, even if the backend call fails.
func (g *Gateway) SignOut(ctx context.Context) error {
	sess, ok := g.Session()
	var remoteErr error
	if ok {
		remoteErr = g.identity.SignOut(ctx, sess)
		if remoteErr != nil {
			g.log.Warn("remote sign out failed", "err", remoteErr)
		}
	}

	if err := g.sessions.Clear(); err != nil {
		g.fail(err.Error())
		return err
	}
	g.setSignedOut()
	return remoteErr
}

func (g *Gateway) setSignedIn(sess service.Session) {
	g.mu.Lock()
	g.session = &sess
	g.mu.Unlock()
	g.log.Debug("authenticated", "user", sess.User.ID)
	g.state.Store(State{Phase: Authenticated, User: sess.User})
}

func (g *Gateway) setSignedOut() {
	g.mu.Lock()
	g.session = nil
	g.mu.Unlock()
	g.state.Store(State{Phase: Unauthenticated})
}

func (g *Gateway) fail(msg string) {
	g.state.Store(State{Phase: Failed, Message: msg})
}

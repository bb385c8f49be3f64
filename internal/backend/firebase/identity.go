package firebase

import (
	"context"
	"time"

	identitytoolkit "google.golang.org/api/identitytoolkit/v3"

	"todosync/internal/service"
)

// SignUp implements service.Identity.
func (b *Backend) SignUp(ctx context.Context, email, password string) (service.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	resp, err := b.identity.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return service.Session{}, wrapError(err)
	}

	return newSession(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// SignIn implements service.Identity.
func (b *Backend) SignIn(ctx context.Context, email, password string) (service.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	resp, err := b.identity.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return service.Session{}, wrapError(err)
	}

	return newSession(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// Lookup implements service.Identity. An expired ID token is refreshed
// first; a refresh token the backend no longer accepts yields
// service.ErrSessionExpired.
func (b *Backend) Lookup(ctx context.Context, sess service.Session) (service.User, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	tok, err := b.tokenSource(ctx, sess).Token()
	if err != nil {
		return service.User{}, wrapTokenError(err)
	}

	resp, err := b.identity.Relyingparty.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: idToken(tok),
	}).Context(ctx).Do()
	if err != nil {
		return service.User{}, wrapError(err)
	}
	if len(resp.Users) == 0 {
		return service.User{}, service.ErrSessionExpired
	}

	u := resp.Users[0]
	return service.User{ID: u.LocalId, Email: u.Email}, nil
}

// SignOut implements service.Identity. Firebase ID tokens cannot be
// revoked by the client, so this only drops local state.
func (b *Backend) SignOut(ctx context.Context, sess service.Session) error {
	return nil
}

func newSession(uid, email, idToken, refreshToken string, expiresIn int64) service.Session {
	sess := service.Session{
		User:         service.User{ID: uid, Email: email},
		IDToken:      idToken,
		RefreshToken: refreshToken,
	}
	if expiresIn > 0 {
		sess.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return sess
}

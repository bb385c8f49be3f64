package firebase

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"todosync/internal/service"
)

// tokenSource returns an auto-refreshing source of Firebase ID tokens.
// The Secure Token endpoint speaks the OAuth2 refresh grant; its
// access_token is the new ID token.
func (b *Backend) tokenSource(ctx context.Context, sess service.Session) oauth2.TokenSource {
	if b.http != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.http)
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  b.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tok := &oauth2.Token{
		AccessToken:  sess.IDToken,
		TokenType:    "Bearer",
		RefreshToken: sess.RefreshToken,
		Expiry:       sess.Expiry,
	}
	return conf.TokenSource(ctx, tok)
}

// idToken prefers the id_token field of a refresh response and falls back
// to the access token.
func idToken(tok *oauth2.Token) string {
	if id, ok := tok.Extra("id_token").(string); ok && id != "" {
		return id
	}
	return tok.AccessToken
}

// wrapTokenError maps a rejected refresh token to service.ErrSessionExpired.
func wrapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil &&
		(re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized) {
		return service.ErrSessionExpired
	}
	return wrapError(err)
}

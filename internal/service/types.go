// Package service defines the backend-agnostic types and interfaces for
// identity and task operations.
package service

import (
	"errors"
	"fmt"
	"time"
)

// Task represents a single todo item owned by one user.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	Timestamp   int64 // unix milliseconds, assigned by the client at creation
}

// User is an authenticated account.
type User struct {
	ID    string
	Email string
}

// Session is the credential set returned by a successful sign-in or sign-up.
type Session struct {
	User         User      `json:"user"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Valid reports whether the session carries a user and a token.
func (s Session) Valid() bool {
	return s.User.ID != "" && (s.IDToken != "" || s.RefreshToken != "")
}

var (
	// ErrNotFound is returned when a task or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotSignedIn is returned by operations that require a user.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailExists is returned by sign-up when the email is taken.
	ErrEmailExists = errors.New("email already in use")

	// ErrSessionExpired is returned when a stored session is rejected.
	ErrSessionExpired = errors.New("session expired or revoked")

	// ErrSubscriptionClosed is returned by Subscription.Next after Stop.
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// DecodeError reports a snapshot document that could not be decoded into a Task.
// A subscription that returns a DecodeError stays open.
type DecodeError struct {
	DocID string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode task %s: %v", e.DocID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

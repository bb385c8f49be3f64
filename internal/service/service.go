// Package service defines the backend-agnostic types and interfaces for
// identity and task operations.
package service

import "context"

// Identity defines the remote identity service.
type Identity interface {
	// SignUp creates an account and returns a signed-in session.
	SignUp(ctx context.Context, email, password string) (Session, error)

	// SignIn verifies credentials and returns a session.
	SignIn(ctx context.Context, email, password string) (Session, error)

	// Lookup returns the user owning the session.
	// Returns ErrSessionExpired if the backend rejects it.
	Lookup(ctx context.Context, sess Session) (User, error)

	// SignOut invalidates the session where the backend supports it.
	SignOut(ctx context.Context, sess Session) error
}

// TaskService defines the per-user task collection operations.
// Implementations scope every call to the collection of userID.
type TaskService interface {
	// Watch starts a live query over the user's tasks ordered by
	// timestamp, newest first.
	Watch(ctx context.Context, userID string) (Subscription, error)

	// Create stores a new task and returns the backend-assigned ID.
	Create(ctx context.Context, task Task) (string, error)

	// Merge writes the task's fields over the existing record.
	Merge(ctx context.Context, task Task) error

	// SetCompleted patches only the completion flag.
	SetCompleted(ctx context.Context, userID, taskID string, completed bool) error

	// Delete removes a task.
	Delete(ctx context.Context, userID, taskID string) error
}

// Subscription is a standing query that yields a full snapshot each time
// the underlying collection changes.
type Subscription interface {
	// Next blocks until the next snapshot. The first call returns the
	// current contents. A *DecodeError leaves the subscription usable;
	// any other error ends it. After Stop, Next returns ErrSubscriptionClosed.
	Next() ([]Task, error)

	// Stop releases the subscription. Safe to call more than once.
	Stop()
}

// Backend bundles an identity service with a task service factory.
type Backend interface {
	Identity

	// Tasks returns a task service acting with the session's credentials.
	Tasks(ctx context.Context, sess Session) (TaskService, error)

	// Close releases backend resources.
	Close() error
}

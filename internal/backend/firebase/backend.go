// Package firebase implements service.Backend on Firebase: the Identity
// Toolkit REST API for accounts and Cloud Firestore for task storage.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"todosync/internal/config"
	"todosync/internal/service"
)

const (
	// APITimeout is the timeout for API calls other than live queries.
	APITimeout = 5 * time.Second

	// secureTokenURL exchanges refresh tokens for fresh ID tokens.
	secureTokenURL = "https://securetoken.googleapis.com/v1/token"
)

// Backend implements service.Backend using Firebase.
type Backend struct {
	identity  *identitytoolkit.Service
	projectID string
	tokenURL  string
	http      *http.Client // nil outside tests

	mu      sync.Mutex
	clients []*firestore.Client
}

// New creates a Firebase backend from the [firebase] section of the config.
// Requires project-id and api-key.
func New(ctx context.Context, cfg *config.Config) (*Backend, error) {
	fb := cfg.Firebase
	if fb.ProjectID == "" {
		return nil, fmt.Errorf("firebase project-id %w", config.ErrNotConfigured)
	}
	if fb.APIKey == "" {
		return nil, fmt.Errorf("firebase api-key %w", config.ErrNotConfigured)
	}

	opts := []option.ClientOption{option.WithAPIKey(fb.APIKey)}
	if fb.IdentityEndpoint != "" {
		opts = append(opts, option.WithEndpoint(fb.IdentityEndpoint))
	}
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity service: %w", err)
	}

	tokenURL := fb.TokenEndpoint
	if tokenURL == "" {
		tokenURL = secureTokenURL
	}

	return &Backend{
		identity:  svc,
		projectID: fb.ProjectID,
		tokenURL:  tokenURL + "?key=" + fb.APIKey,
	}, nil
}

// NewWithHTTPClient creates a backend whose identity and token calls go
// through httpClient to endpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint, projectID string) (*Backend, error) {
	svc, err := identitytoolkit.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}
	return &Backend{
		identity:  svc,
		projectID: projectID,
		tokenURL:  endpoint + "token",
		http:      httpClient,
	}, nil
}

// Tasks implements service.Backend. The Firestore client authenticates with
// the session's ID token and refreshes it as needed.
func (b *Backend) Tasks(ctx context.Context, sess service.Session) (service.TaskService, error) {
	if !sess.Valid() {
		return nil, service.ErrNotSignedIn
	}

	client, err := firestore.NewClient(ctx, b.projectID,
		option.WithTokenSource(b.tokenSource(ctx, sess)))
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	b.mu.Lock()
	b.clients = append(b.clients, client)
	b.mu.Unlock()

	return &taskService{client: client}, nil
}

// Close closes every Firestore client opened by Tasks.
func (b *Backend) Close() error {
	b.mu.Lock()
	clients := b.clients
	b.clients = nil
	b.mu.Unlock()

	var errs []error
	for _, c := range clients {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

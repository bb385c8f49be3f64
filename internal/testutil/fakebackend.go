// Package testutil provides testing utilities.
package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"todosync/internal/service"
)

type fakeAccount struct {
	user     service.User
	password string
}

// FakeBackend is an in-memory implementation of service.Backend for testing.
// Watchers are notified synchronously on every mutation, like a live query.
type FakeBackend struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount // email -> account
	tasks    map[string][]service.Task
	watchers map[string]map[*fakeSub]struct{}
	nextID   int
	closed   bool

	// Error injection for testing
	SignUpErr       error
	SignInErr       error
	LookupErr       error
	SignOutErr      error
	TasksErr        error
	WatchErr        error
	CreateErr       error
	MergeErr        error
	SetCompletedErr error
	DeleteErr       error
}

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		accounts: make(map[string]fakeAccount),
		tasks:    make(map[string][]service.Task),
		watchers: make(map[string]map[*fakeSub]struct{}),
	}
}

// AddUser registers an account and returns its user.
func (f *FakeBackend) AddUser(email, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(email, password)
}

func (f *FakeBackend) addUserLocked(email, password string) service.User {
	f.nextID++
	u := service.User{ID: fmt.Sprintf("user-%d", f.nextID), Email: email}
	f.accounts[email] = fakeAccount{user: u, password: password}
	return u
}

// SessionFor returns a session that Lookup accepts for user.
func SessionFor(user service.User) service.Session {
	return service.Session{User: user, IDToken: "token-" + user.ID, RefreshToken: "refresh-" + user.ID}
}

// AddTask stores a task directly and returns its ID.
func (f *FakeBackend) AddTask(task service.Task) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.createLocked(task)
	f.notifyLocked(task.UserID)
	return id
}

// StoredTasks returns the user's tasks newest first.
func (f *FakeBackend) StoredTasks(userID string) []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked(userID)
}

// WatcherCount returns the number of open subscriptions for userID.
func (f *FakeBackend) WatcherCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers[userID])
}

// PushError delivers err to the next Next call of every watcher of userID.
func (f *FakeBackend) PushError(userID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.watchers[userID] {
		sub.pending = append(sub.pending, err)
		sub.wake()
	}
}

// Closed reports whether Close was called.
func (f *FakeBackend) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SignUp implements service.Identity.
func (f *FakeBackend) SignUp(ctx context.Context, email, password string) (service.Session, error) {
	if f.SignUpErr != nil {
		return service.Session{}, f.SignUpErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return service.Session{}, service.ErrEmailExists
	}
	return SessionFor(f.addUserLocked(email, password)), nil
}

// SignIn implements service.Identity.
func (f *FakeBackend) SignIn(ctx context.Context, email, password string) (service.Session, error) {
	if f.SignInErr != nil {
		return service.Session{}, f.SignInErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[email]
	if !ok || acct.password != password {
		return service.Session{}, service.ErrInvalidCredentials
	}
	return SessionFor(acct.user), nil
}

// Lookup implements service.Identity.
func (f *FakeBackend) Lookup(ctx context.Context, sess service.Session) (service.User, error) {
	if f.LookupErr != nil {
		return service.User{}, f.LookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.accounts {
		if SessionFor(acct.user).IDToken == sess.IDToken {
			return acct.user, nil
		}
	}
	return service.User{}, service.ErrSessionExpired
}

// SignOut implements service.Identity.
func (f *FakeBackend) SignOut(ctx context.Context, sess service.Session) error {
	return f.SignOutErr
}

// Tasks implements service.Backend.
func (f *FakeBackend) Tasks(ctx context.Context, sess service.Session) (service.TaskService, error) {
	if f.TasksErr != nil {
		return nil, f.TasksErr
	}
	if !sess.Valid() {
		return nil, service.ErrNotSignedIn
	}
	return f, nil
}

// Close implements service.Backend.
func (f *FakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Watch implements service.TaskService.
func (f *FakeBackend) Watch(ctx context.Context, userID string) (service.Subscription, error) {
	if f.WatchErr != nil {
		return nil, f.WatchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &fakeSub{
		backend: f,
		userID:  userID,
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	if f.watchers[userID] == nil {
		f.watchers[userID] = make(map[*fakeSub]struct{})
	}
	f.watchers[userID][sub] = struct{}{}
	sub.wake()

	go func() {
		select {
		case <-ctx.Done():
			sub.Stop()
		case <-sub.stop:
		}
	}()
	return sub, nil
}

// Create implements service.TaskService.
func (f *FakeBackend) Create(ctx context.Context, task service.Task) (string, error) {
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.createLocked(task)
	f.notifyLocked(task.UserID)
	return id, nil
}

// Merge implements service.TaskService.
func (f *FakeBackend) Merge(ctx context.Context, task service.Task) error {
	if f.MergeErr != nil {
		return f.MergeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(task.UserID, task.ID)
	if i < 0 {
		return service.ErrNotFound
	}
	f.tasks[task.UserID][i] = task
	f.notifyLocked(task.UserID)
	return nil
}

// SetCompleted implements service.TaskService.
func (f *FakeBackend) SetCompleted(ctx context.Context, userID, taskID string, completed bool) error {
	if f.SetCompletedErr != nil {
		return f.SetCompletedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(userID, taskID)
	if i < 0 {
		return service.ErrNotFound
	}
	f.tasks[userID][i].Completed = completed
	f.notifyLocked(userID)
	return nil
}

// Delete implements service.TaskService.
func (f *FakeBackend) Delete(ctx context.Context, userID, taskID string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(userID, taskID)
	if i < 0 {
		return service.ErrNotFound
	}
	f.tasks[userID] = slices.Delete(f.tasks[userID], i, i+1)
	f.notifyLocked(userID)
	return nil
}

func (f *FakeBackend) createLocked(task service.Task) string {
	f.nextID++
	task.ID = fmt.Sprintf("task-%d", f.nextID)
	f.tasks[task.UserID] = append(f.tasks[task.UserID], task)
	return task.ID
}

func (f *FakeBackend) indexLocked(userID, taskID string) int {
	return slices.IndexFunc(f.tasks[userID], func(t service.Task) bool {
		return t.ID == taskID
	})
}

func (f *FakeBackend) snapshotLocked(userID string) []service.Task {
	tasks := slices.Clone(f.tasks[userID])
	slices.SortStableFunc(tasks, func(a, b service.Task) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	return tasks
}

func (f *FakeBackend) notifyLocked(userID string) {
	for sub := range f.watchers[userID] {
		sub.wake()
	}
}

type fakeSub struct {
	backend *FakeBackend
	userID  string
	notify  chan struct{}
	stop    chan struct{}
	once    sync.Once
	pending []error // guarded by backend.mu
}

func (s *fakeSub) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *fakeSub) Next() ([]service.Task, error) {
	select {
	case <-s.stop:
		return nil, service.ErrSubscriptionClosed
	case <-s.notify:
	}
	select {
	case <-s.stop:
		return nil, service.ErrSubscriptionClosed
	default:
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if len(s.pending) > 0 {
		err := s.pending[0]
		s.pending = s.pending[1:]
		if len(s.pending) > 0 {
			s.wake()
		}
		return nil, err
	}
	return s.backend.snapshotLocked(s.userID), nil
}

func (s *fakeSub) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.backend.mu.Lock()
		delete(s.backend.watchers[s.userID], s)
		s.backend.mu.Unlock()
	})
}

// Package taskstore mirrors the signed-in user's remote task collection into
// an observable in-memory list and exposes the mutations on it.
//
// A Store holds at most one live subscription. Every pushed snapshot
// replaces the whole list; mutations never touch the list directly and rely
// on the subscription to reflect their effect. Each operation moves the
// status through Loading to Success or Error.
package taskstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"todosync/internal/logging"
	"todosync/internal/observe"
	"todosync/internal/service"
)

// ErrNoSubscription is returned by Wait when nothing was subscribed.
var ErrNoSubscription = errors.New("no active subscription")

// UserSource reports the currently signed-in user.
type UserSource interface {
	CurrentUser() (service.User, bool)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = logging.OrDiscard(l) }
}

// WithClock overrides the clock used to stamp new tasks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the task list state holder.
type Store struct {
	tasks service.TaskService
	users UserSource
	log   *slog.Logger
	now   func() time.Time

	list   *observe.Value[[]service.Task]
	status *observe.Value[Status]

	mu     sync.Mutex
	gen    uint64 // bumped on every subscribe/unsubscribe
	sub    service.Subscription
	synced *firstSnapshot
}

// New creates a Store over the given task service.
func New(tasks service.TaskService, users UserSource, opts ...Option) *Store {
	s := &Store{
		tasks:  tasks,
		users:  users,
		log:    logging.Discard(),
		now:    time.Now,
		list:   observe.NewValue[[]service.Task](nil),
		status: observe.NewValue(Status{State: Idle}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tasks returns the latest snapshot, newest first.
func (s *Store) Tasks() []service.Task {
	return slices.Clone(s.list.Load())
}

// Status returns the current status.
func (s *Store) Status() Status {
	return s.status.Load()
}

// WatchTasks delivers the current list and every later snapshot until ctx is done.
func (s *Store) WatchTasks(ctx context.Context) <-chan []service.Task {
	return s.list.Watch(ctx)
}

// WatchStatus delivers the current status and every later change until ctx is done.
func (s *Store) WatchStatus(ctx context.Context) <-chan Status {
	return s.status.Watch(ctx)
}

// Subscribe starts a live query over userID's tasks, replacing any prior
// subscription. The subscription ends on Unsubscribe, on a transport
// error, or when ctx is done. It is never retried.
func (s *Store) Subscribe(ctx context.Context, userID string) error {
	if userID == "" {
		s.setStatus(statusError(service.ErrNotSignedIn.Error()))
		return service.ErrNotSignedIn
	}

	sub, err := s.tasks.Watch(ctx, userID)

	s.mu.Lock()
	old := s.sub
	s.sub = nil
	s.gen++
	gen := s.gen
	if s.synced != nil {
		s.synced.finish(service.ErrSubscriptionClosed)
	}
	synced := newFirstSnapshot()
	s.synced = synced
	if err == nil {
		s.sub = sub
	}
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	if err != nil {
		msg := "error fetching tasks: " + err.Error()
		s.log.Warn("subscribe failed", "user", userID, "err", err)
		s.setStatus(statusError(msg))
		synced.finish(err)
		return fmt.Errorf("subscribe: %w", err)
	}

	s.log.Debug("subscribed", "user", userID, "gen", gen)
	go s.listen(gen, sub, synced)
	return nil
}

// Refresh re-subscribes for the current user.
func (s *Store) Refresh(ctx context.Context) error {
	user, ok := s.users.CurrentUser()
	if !ok {
		s.setStatus(statusError(service.ErrNotSignedIn.Error()))
		return service.ErrNotSignedIn
	}
	return s.Subscribe(ctx, user.ID)
}

// Unsubscribe releases the live subscription. No snapshot is published
// after it returns.
func (s *Store) Unsubscribe() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.gen++
	if s.synced != nil {
		s.synced.finish(service.ErrSubscriptionClosed)
		s.synced = nil
	}
	s.mu.Unlock()

	if sub != nil {
		sub.Stop()
		s.log.Debug("unsubscribed")
	}
}

// Active reports whether a live subscription is open.
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

// Wait blocks until the current subscription has delivered its first
// snapshot or failed.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	synced := s.synced
	s.mu.Unlock()

	if synced == nil {
		return ErrNoSubscription
	}
	select {
	case <-synced.done:
		return synced.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) listen(gen uint64, sub service.Subscription, synced *firstSnapshot) {
	for {
		tasks, err := sub.Next()

		var decodeErr *service.DecodeError
		switch {
		case err == nil:
			slices.SortStableFunc(tasks, func(a, b service.Task) int {
				return cmp.Compare(b.Timestamp, a.Timestamp)
			})
			if !s.publish(gen, func() {
				s.list.Store(tasks)
				s.status.Store(Status{State: Success})
			}) {
				return
			}
			synced.finish(nil)

		case errors.Is(err, service.ErrSubscriptionClosed):
			s.publish(gen, func() { s.sub = nil })
			synced.finish(err)
			return

		case errors.As(err, &decodeErr):
			s.log.Warn("snapshot decode failed", "doc", decodeErr.DocID, "err", decodeErr.Err)
			if !s.publish(gen, func() {
				s.status.Store(statusError("error parsing tasks: " + decodeErr.Err.Error()))
			}) {
				return
			}
			synced.finish(err)

		default:
			s.log.Warn("subscription failed", "err", err)
			s.publish(gen, func() {
				s.sub = nil
				s.status.Store(statusError("error fetching tasks: " + err.Error()))
			})
			synced.finish(err)
			sub.Stop()
			return
		}
	}
}

// publish runs fn only if gen is still the live subscription.
func (s *Store) publish(gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	fn()
	return true
}

// Add creates a task for the current user stamped with the current time.
func (s *Store) Add(ctx context.Context, title, description string) error {
	user, err := s.begin()
	if err != nil {
		return err
	}

	task := service.Task{
		UserID:      user.ID,
		Title:       title,
		Description: description,
		Completed:   false,
		Timestamp:   s.now().UnixMilli(),
	}
	id, err := s.tasks.Create(ctx, task)
	if err == nil {
		s.log.Debug("task added", "id", id)
	}
	return s.end("add task", err)
}

// Toggle flips the task's completion flag on the backend.
func (s *Store) Toggle(ctx context.Context, task service.Task) error {
	user, err := s.begin()
	if err != nil {
		return err
	}
	if err := requireID(task.ID); err != nil {
		return s.end("update task", err)
	}

	err = s.tasks.SetCompleted(ctx, user.ID, task.ID, !task.Completed)
	return s.end("update task", err)
}

// Update merges the task's fields into the existing record.
func (s *Store) Update(ctx context.Context, task service.Task) error {
	user, err := s.begin()
	if err != nil {
		return err
	}
	if err := requireID(task.ID); err != nil {
		return s.end("update task", err)
	}

	task.UserID = user.ID
	err = s.tasks.Merge(ctx, task)
	return s.end("update task", err)
}

// Delete removes the task with the given ID.
func (s *Store) Delete(ctx context.Context, taskID string) error {
	user, err := s.begin()
	if err != nil {
		return err
	}
	if err := requireID(taskID); err != nil {
		return s.end("delete task", err)
	}

	err = s.tasks.Delete(ctx, user.ID, taskID)
	return s.end("delete task", err)
}

// begin resets the status to Loading for a new mutation.
func (s *Store) begin() (service.User, error) {
	s.setStatus(Status{State: Loading})
	user, ok := s.users.CurrentUser()
	if !ok {
		s.setStatus(statusError(service.ErrNotSignedIn.Error()))
		return service.User{}, service.ErrNotSignedIn
	}
	return user, nil
}

// end records the outcome of a mutation.
func (s *Store) end(op string, err error) error {
	if err != nil {
		s.log.Warn(op+" failed", "err", err)
		s.setStatus(statusError(fmt.Sprintf("failed to %s: %v", op, err)))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.setStatus(Status{State: Success})
	return nil
}

func (s *Store) setStatus(st Status) {
	s.status.Store(st)
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("task id required")
	}
	return nil
}

// firstSnapshot is closed once a subscription delivers or fails.
type firstSnapshot struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newFirstSnapshot() *firstSnapshot {
	return &firstSnapshot{done: make(chan struct{})}
}

func (f *firstSnapshot) finish(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

package sqlite

import (
	"context"
	"sync"

	"todosync/internal/service"
)

// hub fans change notifications out to the live queries of each user.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*subscription]struct{})}
}

func (h *hub) add(s *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[s.userID] == nil {
		h.subs[s.userID] = make(map[*subscription]struct{})
	}
	h.subs[s.userID][s] = struct{}{}
}

func (h *hub) remove(s *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[s.userID], s)
	if len(h.subs[s.userID]) == 0 {
		delete(h.subs, s.userID)
	}
}

func (h *hub) notify(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[userID] {
		s.wake()
	}
}

func (h *hub) count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

func (h *hub) closeAll() {
	h.mu.Lock()
	var all []*subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Stop()
	}
}

// subscription is a live query over one user's tasks. Notifications that
// arrive while a query is running are coalesced into a single re-query.
type subscription struct {
	ctx     context.Context
	backend *Backend
	userID  string
	notify  chan struct{}
	stop    chan struct{}
	once    sync.Once
}

func newSubscription(ctx context.Context, b *Backend, userID string) *subscription {
	s := &subscription{
		ctx:     ctx,
		backend: b,
		userID:  userID,
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	s.wake() // first Next returns the current contents
	return s
}

func (s *subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next implements service.Subscription.
func (s *subscription) Next() ([]service.Task, error) {
	select {
	case <-s.stop:
		return nil, service.ErrSubscriptionClosed
	case <-s.ctx.Done():
		s.Stop()
		return nil, service.ErrSubscriptionClosed
	case <-s.notify:
	}
	if s.isStopped() {
		s.Stop()
		return nil, service.ErrSubscriptionClosed
	}

	tasks, err := s.backend.queryTasks(s.ctx, s.userID)
	if err != nil && s.isStopped() {
		s.Stop()
		return nil, service.ErrSubscriptionClosed
	}
	return tasks, err
}

func (s *subscription) isStopped() bool {
	select {
	case <-s.stop:
		return true
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// Stop implements service.Subscription.
func (s *subscription) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.backend.hub.remove(s)
	})
}

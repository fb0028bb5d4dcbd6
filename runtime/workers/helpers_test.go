package workers

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingQueue stores every command it receives.
type recordingQueue struct {
	mu       sync.Mutex
	commands []domain.Command
}

func (q *recordingQueue) Send(_ context.Context, cmd domain.Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.commands = append(q.commands, cmd)
	return nil
}

func (q *recordingQueue) Commands() []domain.Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.Command(nil), q.commands...)
}

// fakeStream is an event stream fed by the test.
type fakeStream struct {
	events chan event.Event
	closed atomic.Bool
}

func newFakeStream(buffer int) *fakeStream {
	return &fakeStream{events: make(chan event.Event, buffer)}
}

func (s *fakeStream) Events() <-chan event.Event { return s.events }

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

// activeConversation plays the view's "currently selected conversation".
type activeConversation struct {
	mu sync.RWMutex
	id domain.ConversationID
}

func (a *activeConversation) Set(id domain.ConversationID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id = id
}

func (a *activeConversation) Get() domain.ConversationID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}

func (a *activeConversation) Is(id domain.ConversationID) bool {
	return a.Get() == id
}

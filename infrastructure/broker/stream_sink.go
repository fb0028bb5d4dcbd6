package broker

import (
	"chat-sync/contract"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"sync"
)

var (
	_ contract.EventSink   = (*StreamSink)(nil)
	_ contract.EventStream = (*StreamSink)(nil)
)

// StreamSink is the broker side of a subscription and the consumer side of an event stream.
// Consume is called by the broker, Events is read by whoever subscribed.
type StreamSink struct {
	mu      sync.RWMutex
	events  chan event.Event
	closed  bool
	onClose func()
}

func NewStreamSink(bufferSize int, onClose func()) *StreamSink {
	return &StreamSink{events: make(chan event.Event, bufferSize), onClose: onClose}
}

// Consume redirects the event to the stream reader.
// It waits for buffer room until ctx is done.
func (s *StreamSink) Consume(ctx context.Context, e event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.ErrStreamClosed
	}
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *StreamSink) Events() <-chan event.Event {
	return s.events
}

// Close ends the stream, it is safe to call more than once.
func (s *StreamSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// Package broker is an in-process, per-conversation event pub/sub.
// Delivery is ordered per subscriber and best-effort: a subscriber too slow
// to take an event within the sink timeout loses it.
package broker

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"log/slog"
	"time"
)

type Broker struct {
	log         *slog.Logger
	registry    *Registry
	bufferSize  int
	sinkTimeout time.Duration
}

func NewBroker(log *slog.Logger, bufferSize int, sinkTimeout time.Duration) *Broker {
	return &Broker{
		log:         log,
		registry:    NewRegistry(),
		bufferSize:  bufferSize,
		sinkTimeout: sinkTimeout,
	}
}

// Subscribe opens a stream of the conversation's events.
// Closing the stream unsubscribes it.
func (b *Broker) Subscribe(conversationID domain.ConversationID) *StreamSink {
	var id SubscriptionID
	sink := NewStreamSink(b.bufferSize, func() {
		b.registry.Unsubscribe(conversationID, id)
	})
	id = b.registry.Subscribe(conversationID, sink)
	b.log.Debug("Stream subscribed", "conversation_id", conversationID.String(), "subscription_id", id)
	return sink
}

// Publish hands the event to every sink of its conversation, one after the other.
func (b *Broker) Publish(ctx context.Context, evt event.Event) {
	for _, sink := range b.registry.SinksFor(evt.ConversationID()) {
		sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
		err := sink.Consume(sinkCtx, evt)
		cancel()
		if err != nil {
			b.log.Warn("Event not delivered to sink",
				"conversation_id", evt.ConversationID().String(), "error", err)
		}
	}
}

// Subscribers counts the open streams of a conversation.
func (b *Broker) Subscribers(conversationID domain.ConversationID) int {
	return len(b.registry.SinksFor(conversationID))
}

// CloseAll ends every open stream, subscribers see their channel closed.
func (b *Broker) CloseAll() {
	for _, sink := range b.registry.All() {
		if closer, ok := sink.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
}

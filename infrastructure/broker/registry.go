package broker

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type SubscriptionID string

// Registry maps a conversation to the sinks currently listening to it.
type Registry struct {
	mu            sync.RWMutex
	subscriptions map[domain.ConversationID]map[SubscriptionID]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{
		subscriptions: make(map[domain.ConversationID]map[SubscriptionID]contract.EventSink),
	}
}

// SinksFor returns the sinks of a conversation, nil when nobody listens.
func (r *Registry) SinksFor(conversationID domain.ConversationID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks, ok := r.subscriptions[conversationID]
	if !ok {
		return nil
	}
	return lo.Values(sinks)
}

// Subscribe registers a sink for a conversation.
// If the conversation has no listener yet, its entry is initialized on the fly.
func (r *Registry) Subscribe(conversationID domain.ConversationID, sink contract.EventSink) SubscriptionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := SubscriptionID(uuid.NewString())
	if _, ok := r.subscriptions[conversationID]; !ok {
		r.subscriptions[conversationID] = make(map[SubscriptionID]contract.EventSink)
	}
	r.subscriptions[conversationID][id] = sink
	return id
}

// Unsubscribe removes a sink and drops the conversation entry once empty.
func (r *Registry) Unsubscribe(conversationID domain.ConversationID, id SubscriptionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sinks, ok := r.subscriptions[conversationID]; ok {
		delete(sinks, id)

		if len(sinks) == 0 {
			delete(r.subscriptions, conversationID)
		}
	}
}

// All returns every registered sink across conversations.
func (r *Registry) All() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Flatten(lo.MapToSlice(r.subscriptions,
		func(_ domain.ConversationID, sinks map[SubscriptionID]contract.EventSink) []contract.EventSink {
			return lo.Values(sinks)
		}))
}

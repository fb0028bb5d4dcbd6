// Package projection builds the local, render-facing copies of a conversation:
// the ordered message mirror and the set of participants currently typing.
// Each projection has a single writer; readers only ever receive copies.
package projection

import (
	"chat-sync/domain"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Mirror is the local ordered copy of one conversation's messages.
// Every write names the conversation it targets and is ignored when that is no
// longer the mirrored conversation, so a late writer can never leak messages
// into the next conversation.
type Mirror struct {
	mu           sync.RWMutex
	conversation domain.ConversationID
	messages     []domain.Message
	ids          map[domain.MessageID]struct{}
	revision     uint64
	changed      *Signal
}

func NewMirror(changed *Signal) *Mirror {
	return &Mirror{
		ids:     make(map[domain.MessageID]struct{}),
		changed: changed,
	}
}

// Reset empties the mirror and binds it to another conversation.
func (m *Mirror) Reset(conversationID domain.ConversationID) {
	m.mu.Lock()
	m.conversation = conversationID
	m.messages = nil
	m.ids = make(map[domain.MessageID]struct{})
	m.revision++
	m.mu.Unlock()
	m.changed.Notify()
}

// Replace swaps the whole content when it differs by value from the current one.
// Returns true when the mirror changed.
func (m *Mirror) Replace(conversationID domain.ConversationID, messages []domain.Message) bool {
	unique := lo.UniqBy(messages, func(msg domain.Message) domain.MessageID { return msg.ID })

	m.mu.Lock()
	if m.conversation != conversationID || domain.EqualMessages(m.messages, unique) {
		m.mu.Unlock()
		return false
	}
	m.messages = unique
	m.ids = lo.SliceToMap(unique, func(msg domain.Message) (domain.MessageID, struct{}) {
		return msg.ID, struct{}{}
	})
	m.revision++
	m.mu.Unlock()

	m.changed.Notify()
	return true
}

// Append adds a message at the end, keeping arrival order.
// Duplicate ids and messages for another conversation are rejected.
func (m *Mirror) Append(conversationID domain.ConversationID, message domain.Message) bool {
	m.mu.Lock()
	if m.conversation != conversationID || message.ConversationID != conversationID {
		m.mu.Unlock()
		return false
	}
	if _, ok := m.ids[message.ID]; ok {
		m.mu.Unlock()
		return false
	}
	// Copy on write: snapshots handed to readers keep pointing at the old backing array.
	m.messages = append(slices.Clip(m.messages), message)
	m.ids[message.ID] = struct{}{}
	m.revision++
	m.mu.Unlock()

	m.changed.Notify()
	return true
}

func (m *Mirror) Conversation() domain.ConversationID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conversation
}

// Snapshot returns a copy of the current content.
func (m *Mirror) Snapshot() []domain.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.messages)
}

func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Revision increases on every visible change.
func (m *Mirror) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

package projection

import (
	"chat-sync/domain"
	"maps"
	"sync"
)

// TypingSnapshot is the published "currently typing" set of one conversation.
type TypingSnapshot struct {
	Conversation domain.ConversationID
	Users        map[domain.ParticipantID]string
}

// TypingBoard exposes the presence coordinator's derived display set to readers.
// Only the coordinator publishes.
type TypingBoard struct {
	mu           sync.RWMutex
	conversation domain.ConversationID
	users        map[domain.ParticipantID]string
	revision     uint64
	changed      *Signal
}

func NewTypingBoard(changed *Signal) *TypingBoard {
	return &TypingBoard{
		users:   make(map[domain.ParticipantID]string),
		changed: changed,
	}
}

func (b *TypingBoard) Publish(conversationID domain.ConversationID, users map[domain.ParticipantID]string) {
	b.mu.Lock()
	b.conversation = conversationID
	b.users = maps.Clone(users)
	if b.users == nil {
		b.users = make(map[domain.ParticipantID]string)
	}
	b.revision++
	b.mu.Unlock()
	b.changed.Notify()
}

func (b *TypingBoard) Snapshot() TypingSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return TypingSnapshot{
		Conversation: b.conversation,
		Users:        maps.Clone(b.users),
	}
}

func (b *TypingBoard) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

package event

import (
	"chat-sync/domain"
)

// Event is one entry of a conversation's live event feed.
type Event interface {
	ConversationID() domain.ConversationID
}

// Kind qualifies ephemeral events that are not messages.
type Kind int

const (
	Typing Kind = iota
)

func (k Kind) String() string {
	switch k {
	case Typing:
		return "typing"
	default:
		return "unknown"
	}
}

// MessageReceived is emitted when a remote participant posted a message.
type MessageReceived struct {
	Conversation domain.ConversationID
	MessageID    domain.MessageID
}

func (m MessageReceived) ConversationID() domain.ConversationID { return m.Conversation }

// MessageSent is emitted when our own message has been accepted by the store.
type MessageSent struct {
	Conversation domain.ConversationID
	MessageID    domain.MessageID
}

func (m MessageSent) ConversationID() domain.ConversationID { return m.Conversation }

// EventReceived signals the start of an ephemeral event, e.g. a participant typing.
type EventReceived struct {
	Conversation domain.ConversationID
	Participant  domain.ParticipantID
	Kind         Kind
}

func (e EventReceived) ConversationID() domain.ConversationID { return e.Conversation }

// EventCancelled ends an ephemeral event.
type EventCancelled struct {
	Conversation domain.ConversationID
	Participant  domain.ParticipantID
	Kind         Kind
}

func (e EventCancelled) ConversationID() domain.ConversationID { return e.Conversation }

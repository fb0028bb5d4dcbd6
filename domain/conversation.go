package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type ConversationID uuid.UUID

func NewConversationID() ConversationID { return ConversationID(uuid.New()) }

func ParseConversationID(s string) (ConversationID, error) {
	id, err := uuid.Parse(s)
	return ConversationID(id), err
}

func (id ConversationID) String() string { return uuid.UUID(id).String() }

// IsZero is true for "no conversation selected".
func (id ConversationID) IsZero() bool { return id == ConversationID(uuid.Nil) }

type Conversation struct {
	ID         ConversationID
	Recipients []ParticipantID
}

// LastMsgSent is the summary shown next to a conversation in the sidebar.
type LastMsgSent struct {
	Value string
	At    time.Time
}

func NewLastMsgSent(body []string, at time.Time) LastMsgSent {
	value := ""
	if len(body) > 0 {
		value = body[len(body)-1]
	}
	return LastMsgSent{Value: value, At: at}
}

// ConversationInfo is the per-conversation metadata kept by the conversation registry.
// Updates always carry a full record.
type ConversationInfo struct {
	Conversation         Conversation
	UnreadCount          int
	FirstUnreadMessageID *MessageID
	LastMsgSent          *LastMsgSent
}

func (c ConversationInfo) ID() ConversationID { return c.Conversation.ID }

// Clone returns a deep copy so registry readers never share slices or pointers with writers.
func (c ConversationInfo) Clone() ConversationInfo {
	clone := c
	clone.Conversation.Recipients = slices.Clone(c.Conversation.Recipients)
	if c.FirstUnreadMessageID != nil {
		id := *c.FirstUnreadMessageID
		clone.FirstUnreadMessageID = &id
	}
	if c.LastMsgSent != nil {
		last := *c.LastMsgSent
		clone.LastMsgSent = &last
	}
	return clone
}

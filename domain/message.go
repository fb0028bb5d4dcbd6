// Package domain contains core concepts of the chat system.
// This file defines Message entities and related rules.
// Messages are immutable once fetched from the message store.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageID uuid.UUID

func NewMessageID() MessageID { return MessageID(uuid.New()) }

func ParseMessageID(s string) (MessageID, error) {
	id, err := uuid.Parse(s)
	return MessageID(id), err
}

func (id MessageID) String() string { return uuid.UUID(id).String() }

// Message represents an immutable chat message.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	Sender         ParticipantID
	SentAt         time.Time
	Body           []string
	Attachments    []Attachment
	ReplyTo        *MessageID
}

// Attachment only carries metadata, file bytes stay in the store.
type Attachment struct {
	Name     string
	MimeType string
	Size     int64
}

// AttachmentUpload is the raw file submitted along with an outgoing message.
type AttachmentUpload struct {
	Name string `validate:"required,max=255"`
	Data []byte `validate:"required"`
}

func (m Message) Text() string {
	return strings.Join(m.Body, "\n")
}

// Equal compares two messages by value.
func (m Message) Equal(other Message) bool {
	if m.ID != other.ID || m.ConversationID != other.ConversationID || m.Sender != other.Sender {
		return false
	}
	if !m.SentAt.Equal(other.SentAt) {
		return false
	}
	if !slices.Equal(m.Body, other.Body) || !slices.Equal(m.Attachments, other.Attachments) {
		return false
	}
	switch {
	case m.ReplyTo == nil && other.ReplyTo == nil:
		return true
	case m.ReplyTo == nil || other.ReplyTo == nil:
		return false
	default:
		return *m.ReplyTo == *other.ReplyTo
	}
}

// EqualMessages reports whether both lists hold the same messages in the same order.
func EqualMessages(a, b []Message) bool {
	return slices.EqualFunc(a, b, Message.Equal)
}

// MessageOptions narrows a message list fetch. Zero values mean no filter.
type MessageOptions struct {
	Limit   int
	Since   time.Time
	Until   time.Time
	Keyword string
}

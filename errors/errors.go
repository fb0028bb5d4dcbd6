package errors

import (
	"chat-sync/domain"
	"fmt"
)

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrExtensionUnavailable = fmt.Errorf("messaging extension unavailable")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrConversationExists   = fmt.Errorf("conversation already exists")
	ErrInvalidReply         = fmt.Errorf("invalid reply")
	ErrInvalidMessage       = fmt.Errorf("invalid message")
	ErrEmptyRecipient       = fmt.Errorf("recipient is empty")
	ErrStreamClosed         = fmt.Errorf("event stream closed")
	ErrViewNotStarted       = fmt.Errorf("conversation view not started")
)

// ConversationExistsError carries the conversation that already links the same participants.
type ConversationExistsError struct {
	Conversation domain.Conversation
}

func (e ConversationExistsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConversationExists, e.Conversation.ID)
}

func (e ConversationExistsError) Unwrap() error {
	return ErrConversationExists
}

package storage

import (
	"chat-sync/domain"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// diskMessage is the persisted form of a message.
type diskMessage struct {
	ID           string           `json:"id"`
	Conversation string           `json:"conversation"`
	Sender       string           `json:"sender"`
	At           int64            `json:"at"`
	Body         []string         `json:"body"`
	Attachments  []diskAttachment `json:"attachments,omitempty"`
	ReplyTo      *string          `json:"reply_to,omitempty"`
}

type diskAttachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type diskConversation struct {
	ID         string   `json:"id"`
	Recipients []string `json:"recipients"`
}

func fromMessage(message domain.Message) diskMessage {
	d := diskMessage{
		ID:           message.ID.String(),
		Conversation: message.ConversationID.String(),
		Sender:       message.Sender.String(),
		At:           message.SentAt.UnixNano(),
		Body:         message.Body,
		Attachments: lo.Map(message.Attachments, func(a domain.Attachment, _ int) diskAttachment {
			return diskAttachment{Name: a.Name, MimeType: a.MimeType, Size: a.Size}
		}),
	}
	if message.ReplyTo != nil {
		d.ReplyTo = lo.ToPtr(message.ReplyTo.String())
	}
	return d
}

func toMessage(d diskMessage) (domain.Message, error) {
	id, err := domain.ParseMessageID(d.ID)
	if err != nil {
		return domain.Message{}, err
	}
	conversationID, err := domain.ParseConversationID(d.Conversation)
	if err != nil {
		return domain.Message{}, err
	}
	message := domain.Message{
		ID:             id,
		ConversationID: conversationID,
		Sender:         domain.ParticipantID(d.Sender),
		SentAt:         time.Unix(0, d.At).UTC(),
		Body:           d.Body,
		Attachments: lo.Map(d.Attachments, func(a diskAttachment, _ int) domain.Attachment {
			return domain.Attachment{Name: a.Name, MimeType: a.MimeType, Size: a.Size}
		}),
	}
	if len(message.Attachments) == 0 {
		message.Attachments = nil
	}
	if d.ReplyTo != nil {
		replyTo, err := domain.ParseMessageID(*d.ReplyTo)
		if err != nil {
			return domain.Message{}, err
		}
		message.ReplyTo = &replyTo
	}
	return message, nil
}

func fromConversation(conversation domain.Conversation) diskConversation {
	return diskConversation{
		ID: conversation.ID.String(),
		Recipients: lo.Map(conversation.Recipients, func(p domain.ParticipantID, _ int) string {
			return p.String()
		}),
	}
}

func toConversation(d diskConversation) (domain.Conversation, error) {
	id, err := domain.ParseConversationID(d.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{
		ID: id,
		Recipients: lo.Map(d.Recipients, func(p string, _ int) domain.ParticipantID {
			return domain.ParticipantID(p)
		}),
	}, nil
}

// DecodeMessage reads a stored message value.
func DecodeMessage(value []byte) (domain.Message, error) {
	var d diskMessage
	if err := json.Unmarshal(value, &d); err != nil {
		return domain.Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return toMessage(d)
}

// DecodeConversation reads a stored conversation value.
func DecodeConversation(value []byte) (domain.Conversation, error) {
	var d diskConversation
	if err := json.Unmarshal(value, &d); err != nil {
		return domain.Conversation{}, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return toConversation(d)
}

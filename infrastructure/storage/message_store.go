package storage

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	apperrors "chat-sync/errors"
	"chat-sync/infrastructure/broker"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var _ contract.MessageStore = (*MessageStore)(nil)

type sendRequest struct {
	Contents []string                  `validate:"required,min=1,dive,required"`
	Uploads  []domain.AttachmentUpload `validate:"dive"`
}

// MessageStore is the local messaging backend: conversations and messages live in Badger,
// bodies are indexed in bluge and every write is published on the broker.
// Subscribe fails with ErrExtensionUnavailable until MarkReady is called.
type MessageStore struct {
	db        *badger.DB
	index     *SearchIndex
	broker    *broker.Broker
	validator *validator.Validate
	log       *slog.Logger
	self      domain.ParticipantID
	now       func() time.Time
	ready     atomic.Bool
}

func NewMessageStore(
	db *badger.DB,
	index *SearchIndex,
	broker *broker.Broker,
	log *slog.Logger,
	self domain.ParticipantID,
	now func() time.Time) *MessageStore {
	return &MessageStore{
		db:        db,
		index:     index,
		broker:    broker,
		validator: validator.New(),
		log:       log,
		self:      self,
		now:       now,
	}
}

// MarkReady lets subscriptions through.
func (s *MessageStore) MarkReady() {
	s.ready.Store(true)
}

// Disconnect ends every live stream, as a backend restart would.
func (s *MessageStore) Disconnect() {
	s.broker.CloseAll()
}

func conversationKey(conversationID domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("conv:%s", conversationID))
}

// recipientsKey identifies a conversation by its participants, whatever their order.
func recipientsKey(recipients []domain.ParticipantID) []byte {
	sorted := lo.Map(recipients, func(p domain.ParticipantID, _ int) string { return p.String() })
	slices.Sort(sorted)
	return []byte(fmt.Sprintf("conv-key:%s", strings.Join(sorted, ",")))
}

// messageKey is formatted as "msg:{conversation}:{timestamp_padded}:{id}" so a prefix
// scan returns messages in chronological order.
func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", message.ConversationID, message.SentAt.UnixNano(), message.ID))
}

func messagePrefix(conversationID domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversationID))
}

func messageIndexKey(conversationID domain.ConversationID, messageID domain.MessageID) []byte {
	return []byte(fmt.Sprintf("idx:msg:%s:%s", conversationID, messageID))
}

func fileKey(messageID domain.MessageID, i int) []byte {
	return []byte(fmt.Sprintf("file:%s:%d", messageID, i))
}

func (s *MessageStore) Subscribe(ctx context.Context, conversationID domain.ConversationID) (contract.EventStream, error) {
	if !s.ready.Load() {
		return nil, apperrors.ErrExtensionUnavailable
	}
	if _, err := s.Conversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(conversationID), nil
}

// FetchMessages returns the conversation's messages in chronological order.
// A limit keeps the most recent ones.
func (s *MessageStore) FetchMessages(ctx context.Context, conversationID domain.ConversationID, opts domain.MessageOptions) ([]domain.Message, error) {
	var matches map[domain.MessageID]struct{}
	if opts.Keyword != "" {
		found, err := s.index.Search(ctx, conversationID, opts.Keyword)
		if err != nil {
			return nil, err
		}
		matches = found
	}

	var messages []domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			message, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			if !opts.Since.IsZero() && message.SentAt.Before(opts.Since) {
				continue
			}
			if !opts.Until.IsZero() && message.SentAt.After(opts.Until) {
				continue
			}
			if matches != nil {
				if _, ok := matches[message.ID]; !ok {
					continue
				}
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages of %s: %w", conversationID, err)
	}

	if opts.Limit > 0 && len(messages) > opts.Limit {
		messages = messages[len(messages)-opts.Limit:]
	}
	return messages, nil
}

func (s *MessageStore) FetchMessage(_ context.Context, conversationID domain.ConversationID, messageID domain.MessageID) (domain.Message, error) {
	var message domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		ref, err := txn.Get(messageIndexKey(conversationID, messageID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		message, err = decodeMessage(item)
		return err
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	return message, nil
}

// Send posts our own message; it comes back on the feed as MessageSent.
func (s *MessageStore) Send(ctx context.Context, conversationID domain.ConversationID, contents []string, uploads []domain.AttachmentUpload) error {
	if err := s.validator.Struct(sendRequest{Contents: contents, Uploads: uploads}); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidMessage, err)
	}
	message := s.newMessage(conversationID, s.self, contents)
	message.Attachments = lo.Map(uploads, func(upload domain.AttachmentUpload, _ int) domain.Attachment {
		return domain.Attachment{
			Name:     upload.Name,
			MimeType: mimetype.Detect(upload.Data).String(),
			Size:     int64(len(upload.Data)),
		}
	})
	if len(message.Attachments) == 0 {
		message.Attachments = nil
	}
	if err := s.store(ctx, message, uploads); err != nil {
		return err
	}
	s.broker.Publish(ctx, event.MessageSent{Conversation: conversationID, MessageID: message.ID})
	return nil
}

// Reply posts our own message answering messageID.
func (s *MessageStore) Reply(ctx context.Context, conversationID domain.ConversationID, messageID domain.MessageID, contents []string) error {
	if err := s.validator.Struct(sendRequest{Contents: contents}); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidReply, err)
	}
	if _, err := s.FetchMessage(ctx, conversationID, messageID); err != nil {
		return err
	}
	message := s.newMessage(conversationID, s.self, contents)
	message.ReplyTo = &messageID
	if err := s.store(ctx, message, nil); err != nil {
		return err
	}
	s.broker.Publish(ctx, event.MessageSent{Conversation: conversationID, MessageID: message.ID})
	return nil
}

// Deliver stores a message coming from a remote participant.
func (s *MessageStore) Deliver(ctx context.Context, conversationID domain.ConversationID, sender domain.ParticipantID, contents []string) (domain.Message, error) {
	if err := s.validator.Struct(sendRequest{Contents: contents}); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidMessage, err)
	}
	message := s.newMessage(conversationID, sender, contents)
	if err := s.store(ctx, message, nil); err != nil {
		return domain.Message{}, err
	}
	s.broker.Publish(ctx, event.MessageReceived{Conversation: conversationID, MessageID: message.ID})
	return message, nil
}

// Typing announces that participant is composing a message.
func (s *MessageStore) Typing(ctx context.Context, conversationID domain.ConversationID, participant domain.ParticipantID) {
	s.broker.Publish(ctx, event.EventReceived{Conversation: conversationID, Participant: participant, Kind: event.Typing})
}

// CancelTyping announces that participant stopped composing.
func (s *MessageStore) CancelTyping(ctx context.Context, conversationID domain.ConversationID, participant domain.ParticipantID) {
	s.broker.Publish(ctx, event.EventCancelled{Conversation: conversationID, Participant: participant, Kind: event.Typing})
}

// CreateConversation opens a direct conversation with recipient.
// If one already exists it is returned inside a ConversationExistsError.
func (s *MessageStore) CreateConversation(_ context.Context, recipient domain.ParticipantID) (domain.Conversation, error) {
	if strings.TrimSpace(recipient.String()) == "" {
		return domain.Conversation{}, apperrors.ErrEmptyRecipient
	}
	conversation := domain.Conversation{
		ID:         domain.NewConversationID(),
		Recipients: []domain.ParticipantID{s.self, recipient},
	}

	var existing *domain.Conversation
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(recipientsKey(conversation.Recipients))
		switch {
		case err == nil:
			found, err := s.conversationByRef(txn, item)
			if err != nil {
				return err
			}
			existing = &found
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		bytes, err := json.Marshal(fromConversation(conversation))
		if err != nil {
			return err
		}
		if err := txn.Set(conversationKey(conversation.ID), bytes); err != nil {
			return err
		}
		return txn.Set(recipientsKey(conversation.Recipients), []byte(conversation.ID.String()))
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("failed to create conversation: %w", err)
	}
	if existing != nil {
		return domain.Conversation{}, apperrors.ConversationExistsError{Conversation: *existing}
	}
	s.log.Debug("Conversation created", "conversation_id", conversation.ID.String())
	return conversation, nil
}

func (s *MessageStore) Conversation(_ context.Context, conversationID domain.ConversationID) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(conversationID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		conversation, err = decodeConversation(item)
		return err
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("failed to get conversation %s: %w", conversationID, err)
	}
	return conversation, nil
}

// Conversations lists every stored conversation.
func (s *MessageStore) Conversations(_ context.Context) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte("conv:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			conversation, err := decodeConversation(it.Item())
			if err != nil {
				return err
			}
			conversations = append(conversations, conversation)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// Attachment returns the raw content of a message's i-th attachment.
func (s *MessageStore) Attachment(_ context.Context, messageID domain.MessageID, i int) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(messageID, i))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}

func (s *MessageStore) newMessage(conversationID domain.ConversationID, sender domain.ParticipantID, contents []string) domain.Message {
	return domain.Message{
		ID:             domain.NewMessageID(),
		ConversationID: conversationID,
		Sender:         sender,
		SentAt:         s.now().UTC(),
		Body:           slices.Clone(contents),
	}
}

// store persists the message, its lookup key and its attachments atomically, then indexes it.
func (s *MessageStore) store(ctx context.Context, message domain.Message, uploads []domain.AttachmentUpload) error {
	if _, err := s.Conversation(ctx, message.ConversationID); err != nil {
		return err
	}
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	key := messageKey(message)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		if err := txn.Set(messageIndexKey(message.ConversationID, message.ID), key); err != nil {
			return err
		}
		for i, upload := range uploads {
			if err := txn.Set(fileKey(message.ID, i), upload.Data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store message %s: %w", message.ID, err)
	}
	if err := s.index.Index(message); err != nil {
		// The message is stored, only keyword search will miss it
		s.log.Error("Failed to index message", "message_id", message.ID.String(), "error", err)
	}
	return nil
}

func (s *MessageStore) conversationByRef(txn *badger.Txn, ref *badger.Item) (domain.Conversation, error) {
	raw, err := ref.ValueCopy(nil)
	if err != nil {
		return domain.Conversation{}, err
	}
	conversationID, err := domain.ParseConversationID(string(raw))
	if err != nil {
		return domain.Conversation{}, err
	}
	item, err := txn.Get(conversationKey(conversationID))
	if err != nil {
		return domain.Conversation{}, err
	}
	return decodeConversation(item)
}

func decodeMessage(item *badger.Item) (domain.Message, error) {
	var message domain.Message
	err := item.Value(func(value []byte) error {
		var err error
		message, err = DecodeMessage(value)
		return err
	})
	return message, err
}

func decodeConversation(item *badger.Item) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := item.Value(func(value []byte) error {
		var err error
		conversation, err = DecodeConversation(value)
		return err
	})
	return conversation, err
}

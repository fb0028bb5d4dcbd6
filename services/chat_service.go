package services

import (
	"chat-sync/contract"
	"chat-sync/domain"
	apperrors "chat-sync/errors"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// ChatService carries the user's actions: opening a chat, sending and replying.
type ChatService struct {
	log              *slog.Logger
	store            contract.MessageStore
	registry         contract.ConversationRegistry
	selector         contract.ConversationSelector
	validate         *validator.Validate
	maxContentLength int
}

func NewChatService(
	log *slog.Logger,
	store contract.MessageStore,
	registry contract.ConversationRegistry,
	selector contract.ConversationSelector,
	maxContentLength int) *ChatService {
	return &ChatService{
		log:              log,
		store:            store,
		registry:         registry,
		selector:         selector,
		validate:         validator.New(),
		maxContentLength: maxContentLength,
	}
}

// ChatWith opens the conversation with recipient, creating it when needed, and selects it.
func (s *ChatService) ChatWith(ctx context.Context, recipient domain.ParticipantID) (domain.ConversationInfo, error) {
	conversation, err := s.store.CreateConversation(ctx, recipient)
	var exists apperrors.ConversationExistsError
	switch {
	case errors.As(err, &exists):
		conversation = exists.Conversation
	case err != nil:
		s.log.Error("Failed to chat with participant", "participant_id", recipient.String(), "error", err)
		return domain.ConversationInfo{}, err
	}

	info, ok := s.registry.Get(conversation.ID)
	if !ok {
		info = domain.ConversationInfo{Conversation: conversation}
	}
	s.registry.Dispatch(info)
	if err := s.selector.Select(&info); err != nil {
		return domain.ConversationInfo{}, err
	}
	return info, nil
}

func (s *ChatService) SendMessage(ctx context.Context, conversationID domain.ConversationID, contents []string, uploads []domain.AttachmentUpload) error {
	if err := s.validateContents(contents); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidMessage, err)
	}
	if err := s.store.Send(ctx, conversationID, contents, uploads); err != nil {
		s.log.Warn("Failed to send message", "conversation_id", conversationID.String(), "error", err)
		return err
	}
	return nil
}

// Reply answers a message. Failures are only logged.
func (s *ChatService) Reply(ctx context.Context, conversationID domain.ConversationID, messageID domain.MessageID, contents []string) {
	if err := s.validateContents(contents); err != nil {
		s.log.Warn("Reply rejected", "message_id", messageID.String(), "error", fmt.Errorf("%w: %w", apperrors.ErrInvalidReply, err))
		return
	}
	if err := s.store.Reply(ctx, conversationID, messageID, contents); err != nil {
		s.log.Error("Failed to send reply",
			"conversation_id", conversationID.String(), "message_id", messageID.String(), "error", err)
	}
}

func (s *ChatService) validateContents(contents []string) error {
	return s.validate.Var(contents, fmt.Sprintf("required,min=1,dive,required,max=%d", s.maxContentLength))
}

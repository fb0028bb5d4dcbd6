//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker) <-chan struct{}
	Wait()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives events published for a conversation.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// EventStream is a live, ordered feed of one conversation's events.
// The channel is closed when the backend ends the stream.
type EventStream interface {
	Events() <-chan event.Event
	Close() error
}

// MessageStore is the remote side of a conversation.
type MessageStore interface {
	Subscribe(ctx context.Context, conversationID domain.ConversationID) (EventStream, error)
	FetchMessages(ctx context.Context, conversationID domain.ConversationID, opts domain.MessageOptions) ([]domain.Message, error)
	FetchMessage(ctx context.Context, conversationID domain.ConversationID, messageID domain.MessageID) (domain.Message, error)
	Reply(ctx context.Context, conversationID domain.ConversationID, messageID domain.MessageID, contents []string) error
	Send(ctx context.Context, conversationID domain.ConversationID, contents []string, uploads []domain.AttachmentUpload) error
	CreateConversation(ctx context.Context, recipient domain.ParticipantID) (domain.Conversation, error)
}

// IdentityResolver never fails, unknown participants get a placeholder name.
type IdentityResolver interface {
	DisplayName(participantID domain.ParticipantID) string
}

// ConversationRegistry holds per-conversation metadata.
// Dispatch notifies observers, DispatchSilent doesn't.
type ConversationRegistry interface {
	Get(conversationID domain.ConversationID) (domain.ConversationInfo, bool)
	Dispatch(info domain.ConversationInfo)
	DispatchSilent(info domain.ConversationInfo)
}

// ConversationSelector switches the conversation being viewed.
type ConversationSelector interface {
	Select(info *domain.ConversationInfo) error
}

// Package runtime drives the lifecycle of the conversation being viewed.
// It owns the projections read by the render layer and starts one consumer per selection.
package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/projection"
	"chat-sync/runtime/workers"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type ViewConfig struct {
	Self                  domain.ParticipantID
	CommandBufferSize     int
	UnavailableRetryDelay time.Duration
	RetryDelay            time.Duration
	SweepInterval         time.Duration
	StalenessThreshold    time.Duration
	RefreshInterval       time.Duration
}

func DefaultViewConfig(self domain.ParticipantID) ViewConfig {
	return ViewConfig{
		Self:                  self,
		CommandBufferSize:     100,
		UnavailableRetryDelay: 10 * time.Millisecond,
		RetryDelay:            time.Second,
		SweepInterval:         4 * time.Second,
		StalenessThreshold:    3 * time.Second,
		RefreshInterval:       60 * time.Second,
	}
}

// UnreadDivider marks where unread messages start in the mirror.
type UnreadDivider struct {
	Index int
	Count int
	Date  time.Time
}

// ConversationView is the single owner of the mirror and the typing board.
// Exactly one consumer is alive at a time, for the selected conversation.
type ConversationView struct {
	log        *slog.Logger
	store      contract.MessageStore
	identity   contract.IdentityResolver
	registry   contract.ConversationRegistry
	supervisor contract.ISupervisor
	unread     *UnreadReconciler
	config     ViewConfig

	updates  *projection.Signal
	mirror   *projection.Mirror
	typing   *projection.TypingBoard
	presence *workers.PresenceCoordinator

	active atomic.Pointer[domain.ConversationInfo]

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	session *consumerSession
	running []<-chan struct{}
}

type consumerSession struct {
	consumer *workers.Consumer
	cancel   context.CancelFunc
	done     <-chan struct{}
	once     sync.Once
}

// stop cancels the consumer and waits for it, only the first call has an effect.
func (s *consumerSession) stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

func NewConversationView(
	log *slog.Logger,
	store contract.MessageStore,
	identity contract.IdentityResolver,
	registry contract.ConversationRegistry,
	supervisor contract.ISupervisor,
	config ViewConfig) *ConversationView {
	updates := projection.NewSignal()
	typing := projection.NewTypingBoard(updates)
	return &ConversationView{
		log:        log,
		store:      store,
		identity:   identity,
		registry:   registry,
		supervisor: supervisor,
		unread:     NewUnreadReconciler(log, registry),
		config:     config,
		updates:    updates,
		mirror:     projection.NewMirror(updates),
		typing:     typing,
		presence:   workers.NewPresenceCoordinator(log, typing, config.CommandBufferSize, config.StalenessThreshold, time.Now),
	}
}

// Start launches the presence coordinator and the periodic timers.
// Everything stops when ctx is done or Close is called.
func (v *ConversationView) Start(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx != nil {
		return
	}
	v.ctx, v.cancel = context.WithCancel(ctx)

	for _, worker := range []contract.Worker{
		v.presence,
		workers.NewSweeper(v.log, v.presence, v.activeID, v.config.SweepInterval),
		workers.NewRefresher(v.log, v.updates, v.config.RefreshInterval),
	} {
		v.running = append(v.running, v.supervisor.Start(v.ctx, worker))
	}
}

// Select switches the view to another conversation, nil clears the selection.
// The previous consumer is cancelled and awaited before the new one starts.
func (v *ConversationView) Select(info *domain.ConversationInfo) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx == nil {
		return errors.ErrViewNotStarted
	}

	var selected *domain.ConversationInfo
	if info != nil {
		clone := info.Clone()
		selected = &clone
	}
	// Switching the active conversation first makes a stale consumer discard everything
	v.active.Store(selected)
	if v.session != nil {
		v.session.stop()
		v.session = nil
	}

	conversationID := v.activeID()
	v.mirror.Reset(conversationID)
	v.presence.TrySend(domain.SweepCommand{Conversation: conversationID})
	if selected == nil {
		v.log.Debug("Conversation unselected")
		return nil
	}

	reconciled := v.unread.Reconcile(*selected)
	v.active.Store(&reconciled)

	sessionCtx, cancel := context.WithCancel(v.ctx)
	consumer := workers.NewConsumer(v.log, reconciled, v.store, v.identity, v.registry,
		v.presence, v.mirror, v.isActive, workers.ConsumerConfig{
			Self:                  v.config.Self,
			UnavailableRetryDelay: v.config.UnavailableRetryDelay,
			RetryDelay:            v.config.RetryDelay,
		})
	v.session = &consumerSession{
		consumer: consumer,
		cancel:   cancel,
		done:     v.supervisor.Start(sessionCtx, consumer),
	}
	v.log.Info("Conversation selected", "conversation_id", conversationID.String())
	return nil
}

// Close cancels the consumer and every timer, then waits for them.
// Other workers of the same supervisor keep running.
func (v *ConversationView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != nil {
		v.session.stop()
		v.session = nil
	}
	if v.cancel != nil {
		v.cancel()
	}
	for _, done := range v.running {
		<-done
	}
	v.running = nil
}

func (v *ConversationView) Active() (domain.ConversationInfo, bool) {
	info := v.active.Load()
	if info == nil {
		return domain.ConversationInfo{}, false
	}
	return info.Clone(), true
}

func (v *ConversationView) activeID() domain.ConversationID {
	if info := v.active.Load(); info != nil {
		return info.ID()
	}
	return domain.ConversationID{}
}

func (v *ConversationView) isActive(conversationID domain.ConversationID) bool {
	return !conversationID.IsZero() && v.activeID() == conversationID
}

// Messages returns the mirrored messages of the active conversation.
func (v *ConversationView) Messages() []domain.Message {
	if v.mirror.Conversation() != v.activeID() {
		return nil
	}
	return v.mirror.Snapshot()
}

// TypingUsers returns who is typing in the active conversation.
// A set published for another conversation reads as empty.
func (v *ConversationView) TypingUsers() map[domain.ParticipantID]string {
	snapshot := v.typing.Snapshot()
	if snapshot.Conversation != v.activeID() {
		return map[domain.ParticipantID]string{}
	}
	return snapshot.Users
}

// Updates fires whenever the mirror, the typing set or the refresh timer changed something.
func (v *ConversationView) Updates() <-chan struct{} {
	return v.updates.C()
}

func (v *ConversationView) ConsumerState() workers.ConsumerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return workers.Disconnected
	}
	return v.session.consumer.State()
}

// UnreadDivider locates the first unread message in the mirror.
func (v *ConversationView) UnreadDivider() (UnreadDivider, bool) {
	info := v.active.Load()
	if info == nil || info.FirstUnreadMessageID == nil {
		return UnreadDivider{}, false
	}
	messages := v.Messages()
	for idx, message := range messages {
		if message.ID == *info.FirstUnreadMessageID {
			return UnreadDivider{Index: idx, Count: len(messages) - idx, Date: message.SentAt}, true
		}
	}
	return UnreadDivider{}, false
}

// RepliedTo fetches the message that message answers, nil when it answers nothing.
func (v *ConversationView) RepliedTo(ctx context.Context, message domain.Message) (*domain.Message, error) {
	if message.ReplyTo == nil {
		return nil, nil
	}
	replied, err := v.store.FetchMessage(ctx, message.ConversationID, *message.ReplyTo)
	if err != nil {
		v.log.Debug("Failed to fetch replied message", "message_id", message.ReplyTo.String(), "error", err)
		return nil, err
	}
	return &replied, nil
}

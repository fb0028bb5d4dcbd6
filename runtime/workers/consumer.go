package workers

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	apperrors "chat-sync/errors"
	"chat-sync/projection"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

var _ contract.Worker = (*Consumer)(nil)

type ConsumerState int32

const (
	Disconnected ConsumerState = iota
	Connecting
	Streaming
	Reconnecting
	Cancelled
)

func (s ConsumerState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Reconnecting:
		return "reconnecting"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type ConsumerConfig struct {
	Self                  domain.ParticipantID
	UnavailableRetryDelay time.Duration
	RetryDelay            time.Duration
}

// Consumer keeps the mirror of one conversation in sync with its live event feed.
// One consumer exists per selected conversation; it never gives up on subscribing,
// only cancellation of its context stops it.
type Consumer struct {
	log      *slog.Logger
	store    contract.MessageStore
	identity contract.IdentityResolver
	registry contract.ConversationRegistry
	presence commandQueue
	mirror   *projection.Mirror
	isActive func(domain.ConversationID) bool
	config   ConsumerConfig

	info  domain.ConversationInfo
	state atomic.Int32
}

func NewConsumer(
	log *slog.Logger,
	info domain.ConversationInfo,
	store contract.MessageStore,
	identity contract.IdentityResolver,
	registry contract.ConversationRegistry,
	presence commandQueue,
	mirror *projection.Mirror,
	isActive func(domain.ConversationID) bool,
	config ConsumerConfig) *Consumer {
	return &Consumer{
		log:      log.With("conversation_id", info.ID().String()),
		store:    store,
		identity: identity,
		registry: registry,
		presence: presence,
		mirror:   mirror,
		isActive: isActive,
		config:   config,
		info:     info.Clone(),
	}
}

func (c *Consumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

func (c *Consumer) setState(state ConsumerState) {
	c.state.Store(int32(state))
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.setState(Cancelled)
	c.setState(Connecting)

	for {
		stream, err := c.subscribe(ctx)
		if err != nil {
			return nil
		}

		c.reconcile(ctx)
		c.setState(Streaming)
		c.consume(ctx, stream)

		if err := stream.Close(); err != nil {
			c.log.Debug("Failed to close event stream", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		c.log.Info("Event stream ended, reconnecting")
		c.setState(Reconnecting)
	}
}

// subscribe retries until it gets a stream or ctx is done.
func (c *Consumer) subscribe(ctx context.Context) (contract.EventStream, error) {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		stream, err := c.store.Subscribe(ctx, c.info.ID())
		if err == nil {
			if ctx.Err() != nil {
				_ = stream.Close()
				return nil, ctx.Err()
			}
			c.log.Debug("Subscribed to conversation stream", "attempt", attempt)
			return stream, nil
		}

		delay := c.config.RetryDelay
		if errors.Is(err, apperrors.ErrExtensionUnavailable) {
			// The backend is still starting up
			delay = c.config.UnavailableRetryDelay
		} else {
			c.log.Warn("Failed to subscribe to conversation stream", "attempt", attempt, "error", err)
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// reconcile refetches the whole conversation to catch up on missed events.
func (c *Consumer) reconcile(ctx context.Context) {
	messages, err := c.store.FetchMessages(ctx, c.info.ID(), domain.MessageOptions{})
	if err != nil {
		c.log.Warn("Failed to fetch messages, keeping current mirror", "error", err)
		return
	}
	if !c.isActive(c.info.ID()) {
		return
	}
	if c.mirror.Replace(c.info.ID(), messages) {
		c.log.Debug("Updating messages list", "count", len(messages))
	}
}

func (c *Consumer) consume(ctx context.Context, stream contract.EventStream) {
	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.handle(ctx, evt)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, evt event.Event) {
	conversationID := evt.ConversationID()
	if conversationID != c.info.ID() || !c.isActive(conversationID) {
		c.log.Debug("Discarding event for inactive conversation", "event_conversation_id", conversationID.String())
		return
	}

	switch e := evt.(type) {
	case event.MessageReceived:
		c.onMessage(ctx, e.MessageID)
	case event.MessageSent:
		c.onMessage(ctx, e.MessageID)
	case event.EventReceived:
		if e.Kind == event.Typing && e.Participant != c.config.Self {
			c.indicate(ctx, e.Participant, domain.TypingStarted)
		}
	case event.EventCancelled:
		if e.Kind == event.Typing && e.Participant != c.config.Self {
			c.indicate(ctx, e.Participant, domain.TypingStopped)
		}
	}
}

func (c *Consumer) onMessage(ctx context.Context, messageID domain.MessageID) {
	message, err := c.store.FetchMessage(ctx, c.info.ID(), messageID)
	if err != nil {
		c.log.Warn("Failed to fetch streamed message, dropping event",
			"message_id", messageID.String(), "error", err)
		return
	}
	if !c.isActive(c.info.ID()) {
		return
	}

	// A message from a participant means they stopped typing
	c.indicate(ctx, message.Sender, domain.TypingStopped)

	if !c.mirror.Append(c.info.ID(), message) {
		c.log.Debug("Streamed message already mirrored", "message_id", messageID.String())
		return
	}
	c.log.Debug("Streamed a new message", "message_id", messageID.String())

	c.info.LastMsgSent = lo.ToPtr(domain.NewLastMsgSent(message.Body, message.SentAt))
	if c.isActive(c.info.ID()) {
		c.registry.Dispatch(c.info.Clone())
	}
}

func (c *Consumer) indicate(ctx context.Context, participant domain.ParticipantID, signal domain.TypingSignal) {
	if !c.isActive(c.info.ID()) {
		return
	}
	err := c.presence.Send(ctx, domain.IndicatorCommand{
		Conversation: c.info.ID(),
		Participant:  participant,
		DisplayName:  c.identity.DisplayName(participant),
		Signal:       signal,
	})
	if err != nil {
		c.log.Debug("Typing indicator not delivered", "participant_id", participant.String(), "error", err)
	}
}

// sleep waits for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

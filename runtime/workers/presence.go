package workers

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/projection"
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/samber/lo"
)

var _ contract.Worker = (*PresenceCoordinator)(nil)

// PresenceCoordinator tracks who is typing in the active conversation.
// Its maps are owned by the Run goroutine and only reachable through the command queue.
type PresenceCoordinator struct {
	log       *slog.Logger
	commands  chan domain.Command
	board     *projection.TypingBoard
	threshold time.Duration
	now       func() time.Time

	active      domain.ConversationID
	typingTimes map[domain.ParticipantID]time.Time
	typing      map[domain.ParticipantID]string
}

func NewPresenceCoordinator(
	log *slog.Logger,
	board *projection.TypingBoard,
	bufferSize int,
	threshold time.Duration,
	now func() time.Time) *PresenceCoordinator {
	return &PresenceCoordinator{
		log:         log,
		commands:    make(chan domain.Command, bufferSize),
		board:       board,
		threshold:   threshold,
		now:         now,
		typingTimes: make(map[domain.ParticipantID]time.Time),
		typing:      make(map[domain.ParticipantID]string),
	}
}

// Send enqueues a command, waiting for room in the queue unless ctx is done.
func (c *PresenceCoordinator) Send(ctx context.Context, cmd domain.Command) error {
	select {
	case c.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues a command only if the queue has room.
func (c *PresenceCoordinator) TrySend(cmd domain.Command) bool {
	select {
	case c.commands <- cmd:
		return true
	default:
		c.log.Warn("Presence command queue full, dropping command",
			"conversation_id", cmd.ConversationID())
		return false
	}
}

func (c *PresenceCoordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Stopping presence coordinator")
			return nil
		case cmd := <-c.commands:
			c.apply(cmd)
		}
	}
}

func (c *PresenceCoordinator) apply(cmd domain.Command) {
	if cmd.ConversationID() != c.active {
		clear(c.typingTimes)
		clear(c.typing)
		c.active = cmd.ConversationID()
		c.publish()
	}
	if c.active.IsZero() {
		return
	}

	switch command := cmd.(type) {
	case domain.IndicatorCommand:
		c.indicate(command)
	case domain.SweepCommand:
		c.sweep()
	default:
		c.log.Debug("Unknown presence command ignored")
	}
}

func (c *PresenceCoordinator) indicate(cmd domain.IndicatorCommand) {
	switch cmd.Signal {
	case domain.TypingStarted:
		c.typingTimes[cmd.Participant] = c.now()
		if _, ok := c.typing[cmd.Participant]; !ok {
			c.typing[cmd.Participant] = cmd.DisplayName
			c.publish()
		}
	case domain.TypingStopped:
		delete(c.typingTimes, cmd.Participant)
		if _, ok := c.typing[cmd.Participant]; ok {
			delete(c.typing, cmd.Participant)
			c.publish()
		}
	}
}

// sweep expires every participant silent for at least the staleness threshold.
func (c *PresenceCoordinator) sweep() {
	now := c.now()
	expired := lo.PickBy(c.typingTimes, func(_ domain.ParticipantID, at time.Time) bool {
		return now.Sub(at) >= c.threshold
	})
	next := lo.OmitByKeys(c.typing, lo.Keys(expired))
	for participant := range expired {
		delete(c.typingTimes, participant)
	}
	if maps.Equal(next, c.typing) {
		return
	}
	c.typing = next
	c.publish()
}

func (c *PresenceCoordinator) publish() {
	c.board.Publish(c.active, c.typing)
}

package workers

import (
	"chat-sync/domain"
	"context"
	"log/slog"
	"time"
)

type commandQueue interface {
	Send(ctx context.Context, cmd domain.Command) error
}

// Sweeper periodically asks the presence coordinator to expire stale typing indicators.
// The interval is independent of the staleness threshold.
type Sweeper struct {
	log      *slog.Logger
	presence commandQueue
	active   func() domain.ConversationID
	interval time.Duration
}

func NewSweeper(log *slog.Logger, presence commandQueue, active func() domain.ConversationID, interval time.Duration) *Sweeper {
	return &Sweeper{log: log, presence: presence, active: active, interval: interval}
}

func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping typing sweeper")
			return nil
		case <-ticker.C:
			if err := w.presence.Send(ctx, domain.SweepCommand{Conversation: w.active()}); err != nil {
				return nil
			}
		}
	}
}

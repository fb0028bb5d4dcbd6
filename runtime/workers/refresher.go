package workers

import (
	"chat-sync/projection"
	"context"
	"log/slog"
	"time"
)

// Refresher asks the render layer to redraw on a fixed period,
// so relative timestamps ("2 minutes ago") stay accurate without new messages.
type Refresher struct {
	log      *slog.Logger
	signal   *projection.Signal
	interval time.Duration
}

func NewRefresher(log *slog.Logger, signal *projection.Signal, interval time.Duration) *Refresher {
	return &Refresher{log: log, signal: signal, interval: interval}
}

func (w *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping refresher")
			return nil
		case <-ticker.C:
			w.signal.Notify()
		}
	}
}

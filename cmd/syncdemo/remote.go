package main

import (
	"chat-sync/domain"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

type remoteStore interface {
	Typing(ctx context.Context, conversationID domain.ConversationID, participant domain.ParticipantID)
	Deliver(ctx context.Context, conversationID domain.ConversationID, sender domain.ParticipantID, contents []string) (domain.Message, error)
	Disconnect()
}

var lines = []string{
	"hey, are you around?",
	"I pushed the fix for the reconnect bug",
	"can you review it before lunch?",
	"never mind, found another issue",
	"ok it's green now",
}

// RemoteParticipant plays the other side of the conversation:
// it types for a while, then sends, and now and then drops every stream.
type RemoteParticipant struct {
	log            *slog.Logger
	store          remoteStore
	participant    domain.ParticipantID
	conversationID domain.ConversationID
	interval       time.Duration
	disconnectRate float64
}

func (r *RemoteParticipant) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		r.store.Typing(ctx, r.conversationID, r.participant)
		if rand.Float64() < 0.3 {
			// Stops typing without sending, the indicator must expire by itself
			continue
		}
		if rand.Float64() < r.disconnectRate {
			r.log.Info("Simulating backend restart")
			r.store.Disconnect()
		}

		timer := time.NewTimer(r.interval / 2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		line := lines[i%len(lines)]
		if _, err := r.store.Deliver(ctx, r.conversationID, r.participant, []string{line}); err != nil {
			return fmt.Errorf("remote participant failed to deliver: %w", err)
		}
	}
}

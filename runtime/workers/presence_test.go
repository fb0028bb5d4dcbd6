package workers

import (
	"chat-sync/domain"
	"chat-sync/projection"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const staleness = 3 * time.Second

func newTestCoordinator(clock *fakeClock) (*PresenceCoordinator, *projection.TypingBoard) {
	board := projection.NewTypingBoard(projection.NewSignal())
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewPresenceCoordinator(log, board, 16, staleness, clock.Now), board
}

func started(conversationID domain.ConversationID, participant domain.ParticipantID, name string) domain.IndicatorCommand {
	return domain.IndicatorCommand{
		Conversation: conversationID,
		Participant:  participant,
		DisplayName:  name,
		Signal:       domain.TypingStarted,
	}
}

func stopped(conversationID domain.ConversationID, participant domain.ParticipantID) domain.IndicatorCommand {
	return domain.IndicatorCommand{
		Conversation: conversationID,
		Participant:  participant,
		Signal:       domain.TypingStopped,
	}
}

func TestPresence_Sweep_Keeps_Fresh_And_Expires_Stale_Indicators(t *testing.T) {
	req := require.New(t)
	clock := newFakeClock()
	coordinator, board := newTestCoordinator(clock)
	conversationID := domain.NewConversationID()
	pat := domain.ParticipantID("did:key:pat")

	// Given Pat started typing
	coordinator.apply(started(conversationID, pat, "Pat"))
	req.Equal(map[domain.ParticipantID]string{pat: "Pat"}, board.Snapshot().Users)

	// When a sweep runs 2 seconds later
	clock.Advance(2 * time.Second)
	coordinator.apply(domain.SweepCommand{Conversation: conversationID})

	// Then Pat is still typing
	req.Contains(board.Snapshot().Users, pat)

	// When another sweep runs at 4 seconds
	clock.Advance(2 * time.Second)
	coordinator.apply(domain.SweepCommand{Conversation: conversationID})

	// Then Pat expired
	req.Empty(board.Snapshot().Users)
	req.Empty(coordinator.typingTimes)
}

func TestPresence_Sweep_Expires_At_Threshold(t *testing.T) {
	req := require.New(t)
	clock := newFakeClock()
	coordinator, board := newTestCoordinator(clock)
	conversationID := domain.NewConversationID()
	pat := domain.ParticipantID("did:key:pat")

	coordinator.apply(started(conversationID, pat, "Pat"))
	clock.Advance(staleness)
	coordinator.apply(domain.SweepCommand{Conversation: conversationID})

	req.Empty(board.Snapshot().Users)
}

func TestPresence_Started_Again_Refreshes_Timestamp(t *testing.T) {
	req := require.New(t)
	clock := newFakeClock()
	coordinator, board := newTestCoordinator(clock)
	conversationID := domain.NewConversationID()
	pat := domain.ParticipantID("did:key:pat")

	coordinator.apply(started(conversationID, pat, "Pat"))
	clock.Advance(2 * time.Second)
	revision := board.Revision()
	coordinator.apply(started(conversationID, pat, "Pat"))

	// Already displayed: no new publication
	req.Equal(revision, board.Revision())

	clock.Advance(2 * time.Second)
	coordinator.apply(domain.SweepCommand{Conversation: conversationID})
	req.Contains(board.Snapshot().Users, pat)
}

func TestPresence_Sweep_Publishes_Only_On_Change(t *testing.T) {
	req := require.New(t)
	clock := newFakeClock()
	coordinator, board := newTestCoordinator(clock)
	conversationID := domain.NewConversationID()

	coordinator.apply(started(conversationID, "did:key:pat", "Pat"))
	revision := board.Revision()

	clock.Advance(time.Second)
	coordinator.apply(domain.SweepCommand{Conversation: conversationID})
	coordinator.apply(domain.SweepCommand{Conversation: conversationID})

	req.Equal(revision, board.Revision())
}

func TestPresence_Stopped_Removes_Participant(t *testing.T) {
	req := require.New(t)
	clock := newFakeClock()
	coordinator, board := newTestCoordinator(clock)
	conversationID := domain.NewConversationID()
	pat := domain.ParticipantID("did:key:pat")
	sam := domain.ParticipantID("did:key:sam")

	coordinator.apply(started(conversationID, pat, "Pat"))
	coordinator.apply(started(conversationID, sam, "Sam"))
	coordinator.apply(stopped(conversationID, pat))

	req.Equal(map[domain.ParticipantID]string{sam: "Sam"}, board.Snapshot().Users)
	req.NotContains(coordinator.typingTimes, pat)

	// Stopping someone who is not typing publishes nothing
	revision := board.Revision()
	coordinator.apply(stopped(conversationID, pat))
	req.Equal(revision, board.Revision())
}

func TestPresence_Conversation_Switch_Clears_Everything(t *testing.T) {
	req := require.New(t)
	clock := newFakeClock()
	coordinator, board := newTestCoordinator(clock)
	previous := domain.NewConversationID()
	next := domain.NewConversationID()

	// Given two participants typing in the previous conversation
	coordinator.apply(started(previous, "did:key:pat", "Pat"))
	coordinator.apply(started(previous, "did:key:sam", "Sam"))

	// When any command arrives for another conversation
	coordinator.apply(domain.SweepCommand{Conversation: next})

	// Then nothing leaks into the new conversation
	snapshot := board.Snapshot()
	req.Equal(next, snapshot.Conversation)
	req.Empty(snapshot.Users)
	req.Empty(coordinator.typingTimes)

	// And a late indicator for the previous conversation only resets the context again
	coordinator.apply(stopped(previous, "did:key:pat"))
	req.Equal(previous, board.Snapshot().Conversation)
	req.Empty(board.Snapshot().Users)
}

func TestPresence_No_Conversation_Ignores_Indicators(t *testing.T) {
	req := require.New(t)
	clock := newFakeClock()
	coordinator, board := newTestCoordinator(clock)

	coordinator.apply(started(domain.ConversationID{}, "did:key:pat", "Pat"))

	req.Empty(board.Snapshot().Users)
	req.Empty(coordinator.typingTimes)
}

func TestPresence_Run_Applies_Queued_Commands(t *testing.T) {
	req := require.New(t)
	clock := newFakeClock()
	coordinator, board := newTestCoordinator(clock)
	conversationID := domain.NewConversationID()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		_ = coordinator.Run(ctx)
		close(done)
	}()

	req.NoError(coordinator.Send(ctx, started(conversationID, "did:key:pat", "Pat")))
	req.Eventually(func() bool {
		return len(board.Snapshot().Users) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestSweeper_Sends_Sweep_For_Active_Conversation(t *testing.T) {
	req := require.New(t)
	queue := &recordingQueue{}
	active := &activeConversation{}
	conversationID := domain.NewConversationID()
	active.Set(conversationID)
	sweeper := NewSweeper(slog.Default(), queue, active.Get, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		_ = sweeper.Run(ctx)
		close(done)
	}()

	req.Eventually(func() bool {
		return len(queue.Commands()) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	for _, cmd := range queue.Commands() {
		req.Equal(domain.SweepCommand{Conversation: conversationID}, cmd)
	}
}

func TestRefresher_Notifies_Periodically(t *testing.T) {
	signal := projection.NewSignal()
	refresher := NewRefresher(slog.Default(), signal, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = refresher.Run(ctx) }()

	select {
	case <-signal.C():
	case <-time.After(time.Second):
		require.Fail(t, "refresher should have notified")
	}
}

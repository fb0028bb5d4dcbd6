package projection

import (
	"chat-sync/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newMessage(conversationID domain.ConversationID, sender string, body string, at time.Time) domain.Message {
	return domain.Message{
		ID:             domain.NewMessageID(),
		ConversationID: conversationID,
		Sender:         domain.ParticipantID(sender),
		SentAt:         at,
		Body:           []string{body},
	}
}

func TestMirror_Replace_Identical_List_Is_Not_A_Change(t *testing.T) {
	req := require.New(t)
	signal := NewSignal()
	mirror := NewMirror(signal)
	conversationID := domain.NewConversationID()
	now := time.Now().UTC()
	messages := []domain.Message{
		newMessage(conversationID, "Alice", "Hello Bob", now),
		newMessage(conversationID, "Bob", "Hi Alice", now.Add(time.Second)),
	}

	// Given a mirror already holding the conversation content
	mirror.Reset(conversationID)
	req.True(mirror.Replace(conversationID, messages))
	revision := mirror.Revision()
	<-signal.C()

	// When the same content is fetched again, as a fresh copy
	refetched := []domain.Message{messages[0], messages[1]}
	refetched[0].Body = []string{"Hello Bob"}
	changed := mirror.Replace(conversationID, refetched)

	// Then nothing changed and nobody got notified
	req.False(changed)
	req.Equal(revision, mirror.Revision())
	select {
	case <-signal.C():
		req.Fail("no change notification expected")
	default:
	}
	req.True(domain.EqualMessages(messages, mirror.Snapshot()))
}

func TestMirror_Replace_Different_List_Replaces_Wholesale(t *testing.T) {
	req := require.New(t)
	mirror := NewMirror(nil)
	conversationID := domain.NewConversationID()
	now := time.Now().UTC()
	first := newMessage(conversationID, "Alice", "one", now)
	second := newMessage(conversationID, "Bob", "two", now.Add(time.Second))

	mirror.Reset(conversationID)
	mirror.Replace(conversationID, []domain.Message{first})

	// When the fetched list differs
	changed := mirror.Replace(conversationID, []domain.Message{second, second})

	// Then the list is replaced, not merged, and duplicates are dropped
	req.True(changed)
	req.Equal([]domain.Message{second}, mirror.Snapshot())
}

func TestMirror_Append_Keeps_Order_And_Rejects_Duplicates(t *testing.T) {
	req := require.New(t)
	mirror := NewMirror(nil)
	conversationID := domain.NewConversationID()
	now := time.Now().UTC()
	first := newMessage(conversationID, "Alice", "one", now)
	second := newMessage(conversationID, "Bob", "two", now.Add(-time.Minute))

	mirror.Reset(conversationID)
	req.True(mirror.Append(conversationID, first))
	req.True(mirror.Append(conversationID, second))
	req.False(mirror.Append(conversationID, first))

	// Arrival order wins over timestamps
	req.Equal([]domain.Message{first, second}, mirror.Snapshot())
}

func TestMirror_Ignores_Writes_For_Another_Conversation(t *testing.T) {
	req := require.New(t)
	mirror := NewMirror(nil)
	stale := domain.NewConversationID()
	active := domain.NewConversationID()
	now := time.Now().UTC()

	// Given the mirror switched from a stale conversation to the active one
	mirror.Reset(stale)
	mirror.Reset(active)
	revision := mirror.Revision()

	// When a late writer still targets the stale conversation
	req.False(mirror.Append(stale, newMessage(stale, "Alice", "late", now)))
	req.False(mirror.Replace(stale, []domain.Message{newMessage(stale, "Alice", "late", now)}))
	// Or a message from elsewhere is appended to the active conversation
	req.False(mirror.Append(active, newMessage(stale, "Alice", "misrouted", now)))

	// Then nothing is mutated
	req.Equal(0, mirror.Len())
	req.Equal(revision, mirror.Revision())
}

func TestMirror_Snapshot_Is_A_Copy(t *testing.T) {
	req := require.New(t)
	mirror := NewMirror(nil)
	conversationID := domain.NewConversationID()
	now := time.Now().UTC()

	mirror.Reset(conversationID)
	mirror.Append(conversationID, newMessage(conversationID, "Alice", "one", now))
	snapshot := mirror.Snapshot()

	mirror.Append(conversationID, newMessage(conversationID, "Bob", "two", now))

	req.Len(snapshot, 1)
	req.Equal(2, mirror.Len())
}

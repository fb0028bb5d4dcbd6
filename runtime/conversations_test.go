package runtime

import (
	"chat-sync/domain"
	"chat-sync/projection"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newInfo(unread int, last *domain.LastMsgSent) domain.ConversationInfo {
	return domain.ConversationInfo{
		Conversation: domain.Conversation{
			ID:         domain.NewConversationID(),
			Recipients: []domain.ParticipantID{"did:key:self", "did:key:pat"},
		},
		UnreadCount: unread,
		LastMsgSent: last,
	}
}

func TestConversations_Dispatch_Notifies(t *testing.T) {
	req := require.New(t)
	changed := projection.NewSignal()
	conversations := NewConversations(changed)
	info := newInfo(2, nil)

	// When a record is dispatched
	conversations.Dispatch(info)

	// Then it is stored and observers are notified
	stored, ok := conversations.Get(info.ID())
	req.True(ok)
	req.Equal(info, stored)
	req.Equal(uint64(1), conversations.Revision())
	select {
	case <-changed.C():
	default:
		req.Fail("expected a change notification")
	}
}

func TestConversations_DispatchSilent_Does_Not_Notify(t *testing.T) {
	req := require.New(t)
	changed := projection.NewSignal()
	conversations := NewConversations(changed)
	info := newInfo(5, nil)
	conversations.Dispatch(info)
	<-changed.C()

	// When the unread counter is zeroed silently
	info.UnreadCount = 0
	conversations.DispatchSilent(info)

	// Then the record is replaced but nobody hears about it
	stored, ok := conversations.Get(info.ID())
	req.True(ok)
	req.Zero(stored.UnreadCount)
	req.Equal(uint64(1), conversations.Revision())
	select {
	case <-changed.C():
		req.Fail("silent dispatch must not notify")
	default:
	}
}

func TestConversations_Get_Returns_A_Copy(t *testing.T) {
	req := require.New(t)
	conversations := NewConversations(projection.NewSignal())
	info := newInfo(0, &domain.LastMsgSent{Value: "hello", At: time.Now()})
	conversations.Dispatch(info)

	stored, _ := conversations.Get(info.ID())
	stored.LastMsgSent.Value = "changed"
	stored.Conversation.Recipients[0] = "did:key:mallory"

	again, _ := conversations.Get(info.ID())
	req.Equal("hello", again.LastMsgSent.Value)
	req.Equal(domain.ParticipantID("did:key:self"), again.Conversation.Recipients[0])

	_, ok := conversations.Get(domain.NewConversationID())
	req.False(ok)
}

func TestConversations_List_Most_Recent_First(t *testing.T) {
	req := require.New(t)
	conversations := NewConversations(projection.NewSignal())
	now := time.Now()
	idle := newInfo(0, nil)
	older := newInfo(0, &domain.LastMsgSent{Value: "older", At: now.Add(-time.Hour)})
	recent := newInfo(0, &domain.LastMsgSent{Value: "recent", At: now})

	conversations.Dispatch(idle)
	conversations.Dispatch(older)
	conversations.Dispatch(recent)

	ids := lo.Map(conversations.List(), func(info domain.ConversationInfo, _ int) domain.ConversationID {
		return info.ID()
	})
	req.Equal([]domain.ConversationID{recent.ID(), older.ID(), idle.ID()}, ids)
}

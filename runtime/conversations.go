package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/projection"
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

var _ contract.ConversationRegistry = (*Conversations)(nil)

// Conversations holds the per-conversation metadata shown in the sidebar.
// Dispatch notifies observers, DispatchSilent only stores.
type Conversations struct {
	mu       sync.RWMutex
	infos    map[domain.ConversationID]domain.ConversationInfo
	revision uint64
	changed  *projection.Signal
}

func NewConversations(changed *projection.Signal) *Conversations {
	return &Conversations{
		infos:   make(map[domain.ConversationID]domain.ConversationInfo),
		changed: changed,
	}
}

func (c *Conversations) Get(conversationID domain.ConversationID) (domain.ConversationInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.infos[conversationID]
	if !ok {
		return domain.ConversationInfo{}, false
	}
	return info.Clone(), true
}

// Dispatch replaces the whole record and notifies observers.
func (c *Conversations) Dispatch(info domain.ConversationInfo) {
	c.mu.Lock()
	c.infos[info.ID()] = info.Clone()
	c.revision++
	c.mu.Unlock()
	c.changed.Notify()
}

// DispatchSilent replaces the whole record without notifying anyone.
func (c *Conversations) DispatchSilent(info domain.ConversationInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.infos[info.ID()] = info.Clone()
}

// List returns the conversations, most recent activity first.
func (c *Conversations) List() []domain.ConversationInfo {
	c.mu.RLock()
	infos := lo.MapToSlice(c.infos, func(_ domain.ConversationID, info domain.ConversationInfo) domain.ConversationInfo {
		return info.Clone()
	})
	c.mu.RUnlock()

	slices.SortFunc(infos, func(a, b domain.ConversationInfo) int {
		if byTime := lastActivity(b).Compare(lastActivity(a)); byTime != 0 {
			return byTime
		}
		return cmp.Compare(a.ID().String(), b.ID().String())
	})
	return infos
}

// Revision counts notifying dispatches only.
func (c *Conversations) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

func lastActivity(info domain.ConversationInfo) time.Time {
	if info.LastMsgSent == nil {
		return time.Time{}
	}
	return info.LastMsgSent.At
}

package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"log/slog"
)

// UnreadReconciler zeroes the unread counter of a conversation being opened.
type UnreadReconciler struct {
	log      *slog.Logger
	registry contract.ConversationRegistry
}

func NewUnreadReconciler(log *slog.Logger, registry contract.ConversationRegistry) *UnreadReconciler {
	return &UnreadReconciler{log: log, registry: registry}
}

// Reconcile issues at most one silent update and returns the record as stored.
// The first unread marker is kept so the divider can still be drawn.
func (u *UnreadReconciler) Reconcile(info domain.ConversationInfo) domain.ConversationInfo {
	if info.UnreadCount == 0 {
		return info
	}
	u.log.Debug("Clearing unread counter", "conversation_id", info.ID().String(), "unread", info.UnreadCount)
	info.UnreadCount = 0
	u.registry.DispatchSilent(info.Clone())
	return info
}

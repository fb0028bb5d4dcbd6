package services

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"sync"
)

const UnknownParticipant = "Unknown"

var _ contract.IdentityResolver = (*IdentityDirectory)(nil)

// IdentityDirectory resolves participants to the name they go by.
type IdentityDirectory struct {
	mu    sync.RWMutex
	names map[domain.ParticipantID]string
}

func NewIdentityDirectory() *IdentityDirectory {
	return &IdentityDirectory{names: make(map[domain.ParticipantID]string)}
}

func (d *IdentityDirectory) Register(participantID domain.ParticipantID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[participantID] = name
}

// DisplayName never fails, unknown participants get a placeholder.
func (d *IdentityDirectory) DisplayName(participantID domain.ParticipantID) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.names[participantID]; ok && name != "" {
		return name
	}
	return UnknownParticipant
}

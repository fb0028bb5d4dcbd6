// Package domain contains core concepts of the chat system.
// This file defines Participant identities.
// No runtime, network, or UI logic should be added here.
package domain

// ParticipantID identifies a remote identity, e.g. "did:key:z6Mk...".
type ParticipantID string

func (p ParticipantID) String() string { return string(p) }

// TypingSignal is what a typing indicator asserts about a participant.
type TypingSignal int

const (
	TypingStarted TypingSignal = iota
	TypingStopped
)

func (s TypingSignal) String() string {
	switch s {
	case TypingStarted:
		return "started"
	case TypingStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

package domain

// Command is addressed to the presence coordinator.
// It always carries the conversation it was issued for.
type Command interface {
	ConversationID() ConversationID
}

// IndicatorCommand reports that a participant started or stopped typing.
type IndicatorCommand struct {
	Conversation ConversationID
	Participant  ParticipantID
	DisplayName  string
	Signal       TypingSignal
}

func (c IndicatorCommand) ConversationID() ConversationID {
	return c.Conversation
}

// SweepCommand asks the coordinator to expire stale typing indicators.
type SweepCommand struct {
	Conversation ConversationID
}

func (c SweepCommand) ConversationID() ConversationID {
	return c.Conversation
}

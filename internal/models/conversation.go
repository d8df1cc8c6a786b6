package models

import "time"

// ConversationPhase tracks progress through the intake/design conversation.
type ConversationPhase string

const (
	PhaseIdle      ConversationPhase = "idle"
	PhaseIntake    ConversationPhase = "intake"
	PhaseDesigning ConversationPhase = "designing"
	PhaseComplete  ConversationPhase = "complete"
)

// ConversationState holds the intake/design conversation draft. It lives in
// its own slot pair, parallel to the habit record, with the same
// primary+backup pattern.
type ConversationState struct {
	Phase        ConversationPhase `json:"phase"`
	DraftSystem  *HabitSystem      `json:"draft_system,omitempty"`
	MessageCount int               `json:"message_count"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewConversationState returns an empty conversation record.
func NewConversationState() *ConversationState {
	return &ConversationState{Phase: PhaseIdle}
}

// Open reports whether a design conversation has been started but not
// finished.
func (c *ConversationState) Open() bool {
	return c != nil && (c.Phase == PhaseIntake || c.Phase == PhaseDesigning)
}

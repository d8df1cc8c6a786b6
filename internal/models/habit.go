package models

import "time"

// HabitState is the authoritative lifecycle flag on a habit record.
type HabitState string

const (
	StateInstall    HabitState = "install"
	StateDesigned   HabitState = "designed"
	StateActive     HabitState = "active"
	StateMissed     HabitState = "missed"
	StatePaused     HabitState = "paused"
	StateMaintained HabitState = "maintained"
)

// HabitType distinguishes habits attached to a fixed daily anchor from
// habits triggered by an unpredictable event. Reactive habits can have
// legitimate "no trigger" days.
type HabitType string

const (
	HabitTimeAnchored HabitType = "time_anchored"
	HabitReactive     HabitType = "reactive"
)

// RepKind is the legacy discrete rep event type.
type RepKind string

const (
	RepDone     RepKind = "done"
	RepMissed   RepKind = "missed"
	RepRecovery RepKind = "recovery"
)

// HabitSystem is the designed habit: the anchor it attaches to, the action
// performed, and the fallback that preserves continuity after a miss.
// Written once by the intake flow, then mutated only through explicit
// tune operations.
type HabitSystem struct {
	Anchor         string    `json:"anchor"`
	Action         string    `json:"action"`
	RecoveryAction string    `json:"recovery_action"`
	Type           HabitType `json:"type"`
	MinimumDose    string    `json:"minimum_dose,omitempty"`
	Environment    string    `json:"environment,omitempty"`
	Identity       string    `json:"identity,omitempty"`
}

// CheckIn is one user-facing daily record of raw signals. A date may have
// multiple raw entries; the entry with the latest CheckedInAt wins when a
// date is queried.
type CheckIn struct {
	ID                string    `json:"id"`
	Date              string    `json:"date"` // YYYY-MM-DD, local time
	CheckedInAt       time.Time `json:"checked_in_at"`
	TriggerOccurred   bool      `json:"trigger_occurred"`
	ActionTaken       bool      `json:"action_taken"`
	RecoveryOffered   bool      `json:"recovery_offered"`
	RecoveryCompleted *bool     `json:"recovery_completed,omitempty"`
	DifficultyRating  *int      `json:"difficulty_rating,omitempty"` // 1..5
	MissReason        string    `json:"miss_reason,omitempty"`
}

// RepLog is the legacy parallel log of discrete rep events, retained for
// backward compatibility with pre-CheckIn data. Superseded by CheckIns but
// still read where CheckIns is absent.
type RepLog struct {
	Date     string    `json:"date"`
	Kind     RepKind   `json:"kind"`
	LoggedAt time.Time `json:"logged_at"`
}

// HabitData is the root aggregate: one per user, one logical copy shared
// between local storage and the remote row.
type HabitData struct {
	State              HabitState   `json:"state"`
	CreatedAt          *time.Time   `json:"created_at,omitempty"`
	System             *HabitSystem `json:"system,omitempty"`
	RepsCount          int          `json:"reps_count"`
	LastDoneDate       string       `json:"last_done_date,omitempty"`
	CheckIns           []CheckIn    `json:"check_ins,omitempty"`
	RepLogs            []RepLog     `json:"rep_logs,omitempty"`
	PausedAt           *time.Time   `json:"paused_at,omitempty"`
	PauseReason        string       `json:"pause_reason,omitempty"`
	LastStageShownAt   string       `json:"last_stage_shown_at,omitempty"`
	LastReflectionDate string       `json:"last_reflection_date,omitempty"`

	// NeedsRestoreConfirmation is set only by the load-from-backup path and
	// is never persisted locally or remotely.
	NeedsRestoreConfirmation bool `json:"-"`
}

// NewHabitData returns a fresh record at the start of the lifecycle.
func NewHabitData() *HabitData {
	return &HabitData{State: StateInstall}
}

// HabitTypeOrDefault returns the designed habit type, defaulting to
// time-anchored when no system has been designed yet.
func (d *HabitData) HabitTypeOrDefault() HabitType {
	if d.System != nil && d.System.Type == HabitReactive {
		return HabitReactive
	}
	return HabitTimeAnchored
}

// Package checkin holds the pure daily check-in derivation logic: the
// mapping from raw signals to a canonical outcome, and the single shared
// latest-entry-per-date lookup every other component must use.
package checkin

import (
	"sort"

	"github.com/keystonehq/keystone/internal/models"
)

// State is the canonical daily outcome derived from a check-in's raw
// signals. It is computed on demand and never stored.
type State string

const (
	StateCompleted State = "completed"
	StateRecovered State = "recovered"
	StateMissed    State = "missed"
	StateNoTrigger State = "no_trigger"
)

// DeriveState maps a check-in's raw signals to its canonical outcome.
// Total over every signal combination: no case is undefined.
func DeriveState(c models.CheckIn) State {
	if !c.TriggerOccurred {
		return StateNoTrigger
	}
	if c.ActionTaken {
		return StateCompleted
	}
	if c.RecoveryCompleted != nil && *c.RecoveryCompleted {
		return StateRecovered
	}
	return StateMissed
}

// Counted reports whether the outcome awards a rep.
func (s State) Counted() bool {
	return s == StateCompleted || s == StateRecovered
}

// DedupeByDate picks, per calendar date, the entry with the latest
// CheckedInAt. Same-date entries with equal timestamps resolve to the later
// one in append order. This is the only latest-per-date implementation in
// the codebase; callers must not re-derive it.
func DedupeByDate(checkIns []models.CheckIn) map[string]models.CheckIn {
	byDate := make(map[string]models.CheckIn, len(checkIns))
	for _, c := range checkIns {
		prev, ok := byDate[c.Date]
		if !ok || !c.CheckedInAt.Before(prev.CheckedInAt) {
			byDate[c.Date] = c
		}
	}
	return byDate
}

// DatesDescending returns the deduped dates sorted newest first. Dates are
// ISO formatted, so lexicographic order is chronological order.
func DatesDescending(byDate map[string]models.CheckIn) []string {
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// LatestFor returns the winning entry for a date, if any.
func LatestFor(checkIns []models.CheckIn, date string) (models.CheckIn, bool) {
	c, ok := DedupeByDate(checkIns)[date]
	return c, ok
}

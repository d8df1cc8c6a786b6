package checkin

import "github.com/keystonehq/keystone/internal/models"

// FromRepLogs synthesizes check-ins from the legacy rep log so pre-CheckIn
// records still feed the calendar, streaks, and pattern analysis.
func FromRepLogs(logs []models.RepLog) []models.CheckIn {
	out := make([]models.CheckIn, 0, len(logs))
	for _, l := range logs {
		c := models.CheckIn{
			Date:        l.Date,
			CheckedInAt: l.LoggedAt,
		}
		switch l.Kind {
		case models.RepDone:
			c.TriggerOccurred = true
			c.ActionTaken = true
		case models.RepRecovery:
			recovered := true
			c.TriggerOccurred = true
			c.RecoveryOffered = true
			c.RecoveryCompleted = &recovered
		case models.RepMissed:
			c.TriggerOccurred = true
		default:
			continue
		}
		out = append(out, c)
	}
	return out
}

// History returns the effective check-in history for a record: the CheckIns
// collection when present, otherwise the legacy rep log translated.
func History(d models.HabitData) []models.CheckIn {
	if len(d.CheckIns) > 0 {
		return d.CheckIns
	}
	return FromRepLogs(d.RepLogs)
}

// Package userstate projects a habit record snapshot onto the single
// routing state the rest of the app shows. The projection is read-only: it
// refines HabitData.State, never the reverse.
package userstate

import (
	"github.com/keystonehq/keystone/internal/constants"
	"github.com/keystonehq/keystone/internal/models"
	"github.com/keystonehq/keystone/internal/utils"
)

// UserState is the routing state derived from a habit record and today's
// local date.
type UserState string

const (
	NewUser         UserState = "new_user"
	MidConversation UserState = "mid_conversation"
	SystemDesigned  UserState = "system_designed"
	ActiveToday     UserState = "active_today"
	CompletedToday  UserState = "completed_today"
	MissedYesterday UserState = "missed_yesterday"
	NeedsTuneup     UserState = "needs_tuneup"
	NeedsReentry    UserState = "needs_reentry"
)

// Project maps a snapshot to a UserState, evaluated in strict priority
// order: the first matching rule wins. The ordering is a contract — the
// long-absence check runs before missed-yesterday so a week-silent user
// gets the gentler re-entry path rather than the one-day recovery path.
func Project(data models.HabitData, openConversation bool, today string) UserState {
	// 1. No data at all.
	if data.State == models.StateInstall && data.System == nil && !openConversation {
		return NewUser
	}

	// 2. Design conversation started but unfinished.
	if openConversation && data.State == models.StateInstall {
		return MidConversation
	}

	// 3. Designed, but no rep logged yet.
	if data.State == models.StateDesigned || (data.System != nil && data.RepsCount == 0) {
		return SystemDesigned
	}

	// 4. Long absence wins over missed-yesterday.
	if data.LastDoneDate != "" && utils.DaysBetween(data.LastDoneDate, today) >= constants.ReentryGapDays {
		return NeedsReentry
	}

	// 5. Yesterday has no check-in and the last rep predates yesterday.
	yesterday := utils.PreviousDay(today)
	if data.LastDoneDate != "" && data.LastDoneDate < yesterday && !hasEntryFor(data, yesterday) {
		return MissedYesterday
	}

	// 6. Already done today.
	if data.LastDoneDate == today {
		return CompletedToday
	}

	// 7. First rep done, tune-up conversation not yet shown.
	if data.RepsCount == 1 && data.LastStageShownAt != constants.StageTuneup {
		return NeedsTuneup
	}

	return ActiveToday
}

func hasEntryFor(data models.HabitData, date string) bool {
	for _, c := range data.CheckIns {
		if c.Date == date {
			return true
		}
	}
	for _, l := range data.RepLogs {
		if l.Date == date {
			return true
		}
	}
	return false
}

// Package patterns reduces a check-in history into the statistics behind
// coaching suggestions. It performs no writes and tolerates empty history.
package patterns

import (
	"sort"
	"time"

	"github.com/keystonehq/keystone/internal/checkin"
	"github.com/keystonehq/keystone/internal/constants"
	"github.com/keystonehq/keystone/internal/models"
	"github.com/keystonehq/keystone/internal/utils"
)

// DayTally counts outcomes for one weekday.
type DayTally struct {
	Completed int `json:"completed"`
	Missed    int `json:"missed"`
}

// ReasonCount is a repeated miss reason and how often it appeared.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// CheckInPatterns is the analyzer output. Unlocked is false until enough
// distinct days exist for the statistics to mean anything.
type CheckInPatterns struct {
	Unlocked          bool                     `json:"unlocked"`
	TotalCheckIns     int                      `json:"total_check_ins"`
	ByWeekday         map[time.Weekday]DayTally `json:"by_weekday"`
	AverageDifficulty float64                  `json:"average_difficulty"`
	TopMissReasons    []ReasonCount            `json:"top_miss_reasons"`
	CompletedRun      int                      `json:"completed_run"`
	MissedRun         int                      `json:"missed_run"`
}

// Analyze reduces the deduplicated history to a patterns summary. The habit
// type matters for run counting: reactive habits legitimately have
// no-trigger days, which are transparent to a completed run but never to a
// missed run.
func Analyze(checkIns []models.CheckIn, habitType models.HabitType) CheckInPatterns {
	byDate := checkin.DedupeByDate(checkIns)
	dates := checkin.DatesDescending(byDate)

	p := CheckInPatterns{
		TotalCheckIns: len(dates),
		ByWeekday:     make(map[time.Weekday]DayTally),
	}
	if len(dates) == 0 {
		return p
	}
	p.Unlocked = len(dates) >= constants.PatternsUnlockThreshold

	reasonCounts := make(map[string]int)
	var difficultySum, difficultyN int

	for i, date := range dates {
		entry := byDate[date]
		state := checkin.DeriveState(entry)

		if day, err := utils.ParseDate(date); err == nil {
			tally := p.ByWeekday[day.Weekday()]
			switch state {
			case checkin.StateCompleted, checkin.StateRecovered:
				tally.Completed++
			case checkin.StateMissed:
				tally.Missed++
			}
			p.ByWeekday[day.Weekday()] = tally
		}

		if state == checkin.StateMissed && entry.MissReason != "" {
			reasonCounts[entry.MissReason]++
		}

		// Difficulty averages over the trailing window only.
		if i < constants.DifficultyWindow && entry.DifficultyRating != nil {
			difficultySum += *entry.DifficultyRating
			difficultyN++
		}
	}

	if difficultyN > 0 {
		p.AverageDifficulty = float64(difficultySum) / float64(difficultyN)
	}
	p.TopMissReasons = sortReasons(reasonCounts)
	p.CompletedRun = completedRun(byDate, dates, habitType)
	p.MissedRun = missedRun(byDate, dates)
	return p
}

// completedRun walks the date-descending sequence counting completed and
// recovered days. A recovered day repairs the single missed day it follows,
// so that miss is transparent to the run. No-trigger days are transparent
// for reactive habits only.
func completedRun(byDate map[string]models.CheckIn, dates []string, habitType models.HabitType) int {
	run := 0
	repaired := false
	for _, date := range dates {
		state := checkin.DeriveState(byDate[date])
		switch {
		case state.Counted():
			run++
			repaired = state == checkin.StateRecovered
		case state == checkin.StateNoTrigger && habitType == models.HabitReactive:
			continue
		case state == checkin.StateMissed && repaired:
			// The newer neighbor recovered this miss; one repair per recovery.
			repaired = false
		default:
			return run
		}
	}
	return run
}

// missedRun counts consecutive missed days from the newest entry down.
// No-trigger days break it regardless of habit type.
func missedRun(byDate map[string]models.CheckIn, dates []string) int {
	run := 0
	for _, date := range dates {
		if checkin.DeriveState(byDate[date]) != checkin.StateMissed {
			return run
		}
		run++
	}
	return run
}

func sortReasons(counts map[string]int) []ReasonCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]ReasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

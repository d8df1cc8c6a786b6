package patterns

import (
	"testing"
	"time"

	"github.com/keystonehq/keystone/internal/models"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

// entry builds a check-in with a timestamp derived from its date so dedupe
// ordering is deterministic.
func entry(date string, trigger, action bool, recovered *bool) models.CheckIn {
	day, _ := time.ParseInLocation("2006-01-02", date, time.Local)
	return models.CheckIn{
		Date:              date,
		CheckedInAt:       day.Add(21 * time.Hour),
		TriggerOccurred:   trigger,
		ActionTaken:       action,
		RecoveryCompleted: recovered,
	}
}

func completedDays(dates ...string) []models.CheckIn {
	out := make([]models.CheckIn, 0, len(dates))
	for _, d := range dates {
		out = append(out, entry(d, true, true, nil))
	}
	return out
}

func TestAnalyzeEmptyHistoryIsLocked(t *testing.T) {
	p := Analyze(nil, models.HabitTimeAnchored)
	if p.Unlocked {
		t.Error("empty history should be locked")
	}
	if p.TotalCheckIns != 0 || p.CompletedRun != 0 || p.MissedRun != 0 {
		t.Errorf("empty history should be neutral, got %+v", p)
	}
}

func TestAnalyzeUnlockThreshold(t *testing.T) {
	six := completedDays("2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04", "2026-02-05", "2026-02-06")
	if p := Analyze(six, models.HabitTimeAnchored); p.Unlocked {
		t.Error("6 distinct days should stay locked")
	}

	seven := append(six, entry("2026-02-07", true, true, nil))
	if p := Analyze(seven, models.HabitTimeAnchored); !p.Unlocked {
		t.Error("7 distinct days should unlock")
	}

	// Duplicate raw entries for one date count once.
	padded := append(six, entry("2026-02-06", true, true, nil))
	if p := Analyze(padded, models.HabitTimeAnchored); p.Unlocked {
		t.Error("duplicate entries for one date must not unlock")
	}
}

func TestAnalyzeSpecExampleRun(t *testing.T) {
	checkIns := []models.CheckIn{
		entry("2026-02-01", true, true, nil),
		entry("2026-02-02", true, false, nil),
		entry("2026-02-03", true, false, boolPtr(true)),
	}

	p := Analyze(checkIns, models.HabitTimeAnchored)
	if p.CompletedRun != 2 {
		t.Errorf("CompletedRun = %d, want 2 (recovery repairs the missed day)", p.CompletedRun)
	}
	if p.MissedRun != 0 {
		t.Errorf("MissedRun = %d, want 0", p.MissedRun)
	}
}

func TestAnalyzeNoTriggerTransparency(t *testing.T) {
	checkIns := []models.CheckIn{
		entry("2026-02-01", true, true, nil),
		entry("2026-02-02", false, false, nil), // no trigger that night
		entry("2026-02-03", true, true, nil),
	}

	reactive := Analyze(checkIns, models.HabitReactive)
	if reactive.CompletedRun != 2 {
		t.Errorf("reactive CompletedRun = %d, want 2 (no-trigger is transparent)", reactive.CompletedRun)
	}

	anchored := Analyze(checkIns, models.HabitTimeAnchored)
	if anchored.CompletedRun != 1 {
		t.Errorf("time-anchored CompletedRun = %d, want 1 (no-trigger breaks)", anchored.CompletedRun)
	}
}

func TestAnalyzeNoTriggerBreaksMissedRun(t *testing.T) {
	checkIns := []models.CheckIn{
		entry("2026-02-01", true, false, nil),
		entry("2026-02-02", false, false, nil),
		entry("2026-02-03", true, false, nil),
		entry("2026-02-04", true, false, nil),
	}

	p := Analyze(checkIns, models.HabitReactive)
	if p.MissedRun != 2 {
		t.Errorf("MissedRun = %d, want 2 (no-trigger is not transparent to missed runs)", p.MissedRun)
	}
}

func TestAnalyzeMissReasons(t *testing.T) {
	late := entry("2026-02-01", true, false, nil)
	late.MissReason = "too late"
	tired := entry("2026-02-02", true, false, nil)
	tired.MissReason = "tired"
	late2 := entry("2026-02-03", true, false, nil)
	late2.MissReason = "too late"

	p := Analyze([]models.CheckIn{late, tired, late2}, models.HabitTimeAnchored)
	if len(p.TopMissReasons) != 2 {
		t.Fatalf("TopMissReasons has %d entries, want 2", len(p.TopMissReasons))
	}
	if p.TopMissReasons[0].Reason != "too late" || p.TopMissReasons[0].Count != 2 {
		t.Errorf("top reason = %+v, want {too late 2}", p.TopMissReasons[0])
	}
}

func TestAnalyzeAverageDifficulty(t *testing.T) {
	a := entry("2026-02-01", true, true, nil)
	a.DifficultyRating = intPtr(2)
	b := entry("2026-02-02", true, true, nil)
	b.DifficultyRating = intPtr(4)
	c := entry("2026-02-03", true, true, nil) // unrated

	p := Analyze([]models.CheckIn{a, b, c}, models.HabitTimeAnchored)
	if p.AverageDifficulty != 3.0 {
		t.Errorf("AverageDifficulty = %v, want 3.0", p.AverageDifficulty)
	}
}

func TestAnalyzeWeekdayTallies(t *testing.T) {
	// 2026-02-02 is a Monday.
	checkIns := []models.CheckIn{
		entry("2026-02-02", true, true, nil),
		entry("2026-02-09", true, false, nil),
	}

	p := Analyze(checkIns, models.HabitTimeAnchored)
	monday := p.ByWeekday[time.Monday]
	if monday.Completed != 1 || monday.Missed != 1 {
		t.Errorf("Monday tally = %+v, want {Completed:1 Missed:1}", monday)
	}
}

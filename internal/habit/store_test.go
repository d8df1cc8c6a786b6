package habit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/keystonehq/keystone/internal/models"
	"github.com/keystonehq/keystone/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	slots := storage.NewFileSlots(filepath.Join(t.TempDir(), "keystone.json"))
	pair := storage.NewPair(slots, "habit_data", "habit_data_backup", "habit_data_backup_at")
	return NewStore(pair)
}

// fixClock pins the store clock to 21:00 local on the given date.
func fixClock(t *testing.T, s *Store, date string) {
	t.Helper()
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	at := day.Add(21 * time.Hour)
	s.SetClock(func() time.Time { return at })
}

func designed(t *testing.T, s *Store) {
	t.Helper()
	s.DesignSystem(models.HabitSystem{
		Anchor:         "after dinner",
		Action:         "10 minute walk",
		RecoveryAction: "put shoes on",
		Type:           models.HabitTimeAnchored,
	})
}

func boolPtr(b bool) *bool { return &b }

func TestLoadFreshInstall(t *testing.T) {
	s := newTestStore(t)
	d := s.Load()
	if d.State != models.StateInstall {
		t.Errorf("fresh Load() state = %v, want install", d.State)
	}
	if d.NeedsRestoreConfirmation {
		t.Error("fresh record should not need restore confirmation")
	}
}

func TestLogCheckInRejectsActionWithoutTrigger(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	_, err := s.LogCheckIn(LogFields{TriggerOccurred: false, ActionTaken: true}, "")
	if err != ErrActionWithoutTrigger {
		t.Errorf("LogCheckIn() error = %v, want ErrActionWithoutTrigger", err)
	}
}

func TestLogCheckInRejectsBadInput(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	bad := 6
	if _, err := s.LogCheckIn(LogFields{TriggerOccurred: true, DifficultyRating: &bad}, ""); err == nil {
		t.Error("expected error for out-of-range difficulty")
	}
	if _, err := s.LogCheckIn(LogFields{TriggerOccurred: true}, "02/01/2026"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestRepsCountOverIncreasingDates(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	dates := []string{"2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04"}
	var d models.HabitData
	var err error
	for _, date := range dates {
		fixClock(t, s, date)
		d, err = s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true}, date)
		if err != nil {
			t.Fatalf("LogCheckIn(%s) failed: %v", date, err)
		}
	}

	if d.RepsCount != len(dates) {
		t.Errorf("RepsCount = %d, want %d", d.RepsCount, len(dates))
	}
	if d.State != models.StateActive {
		t.Errorf("State = %v, want active", d.State)
	}
	if d.LastDoneDate != "2026-02-04" {
		t.Errorf("LastDoneDate = %q, want 2026-02-04", d.LastDoneDate)
	}
	if d.CreatedAt == nil {
		t.Error("CreatedAt should be set when state first becomes active")
	}
}

func TestCreatedAtImmutableAfterActivation(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	fixClock(t, s, "2026-02-01")
	first, err := s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true}, "2026-02-01")
	if err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}

	fixClock(t, s, "2026-02-02")
	second, err := s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true}, "2026-02-02")
	if err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}
	if !second.CreatedAt.Equal(*first.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestMissedThenRecoveredTransitions(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	fixClock(t, s, "2026-02-01")
	d, err := s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true}, "2026-02-01")
	if err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}
	if d.State != models.StateActive {
		t.Fatalf("State = %v, want active", d.State)
	}
	repsBefore := d.RepsCount

	fixClock(t, s, "2026-02-02")
	d, err = s.LogCheckIn(LogFields{TriggerOccurred: true, MissReason: "too tired"}, "2026-02-02")
	if err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}
	if d.State != models.StateMissed {
		t.Errorf("State after miss = %v, want missed", d.State)
	}
	if d.RepsCount != repsBefore {
		t.Errorf("RepsCount after miss = %d, want %d (no rep for a miss)", d.RepsCount, repsBefore)
	}

	fixClock(t, s, "2026-02-03")
	d, err = s.LogCheckIn(LogFields{TriggerOccurred: true, RecoveryOffered: true, RecoveryCompleted: boolPtr(true)}, "2026-02-02")
	if err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}
	if d.State != models.StateActive {
		t.Errorf("State after recovery = %v, want active", d.State)
	}
	if d.RepsCount != repsBefore+1 {
		t.Errorf("RepsCount after recovery = %d, want %d (exactly one rep for the recovery)", d.RepsCount, repsBefore+1)
	}
}

func TestEditingCountedDateAwardsNoSecondRep(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)
	fixClock(t, s, "2026-02-01")

	rating := 3
	if _, err := s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true}, "2026-02-01"); err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}
	d, err := s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true, DifficultyRating: &rating}, "2026-02-01")
	if err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}
	if d.RepsCount != 1 {
		t.Errorf("RepsCount = %d, want 1 (edits to a counted date never re-award)", d.RepsCount)
	}
}

func TestSkipRecoveryUnblocksWithoutRep(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	fixClock(t, s, "2026-02-01")
	if _, err := s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true}, "2026-02-01"); err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}
	fixClock(t, s, "2026-02-02")
	if _, err := s.LogCheckIn(LogFields{TriggerOccurred: true}, "2026-02-02"); err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}

	fixClock(t, s, "2026-02-03")
	d := s.SkipRecovery()
	if d.State != models.StateActive {
		t.Errorf("State after SkipRecovery = %v, want active", d.State)
	}
	if d.RepsCount != 1 {
		t.Errorf("RepsCount = %d, want 1 (skipping recovery awards nothing)", d.RepsCount)
	}

	// The missed day now carries an explicit declined recovery.
	found := false
	for _, c := range d.CheckIns {
		if c.Date == "2026-02-02" && c.RecoveryOffered && c.RecoveryCompleted != nil && !*c.RecoveryCompleted {
			found = true
		}
	}
	if !found {
		t.Error("expected an explicit not-recovered entry for the missed day")
	}
}

func TestGraduateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	// Not active yet: no-op.
	if d := s.GraduateHabit(); d.State != models.StateDesigned {
		t.Errorf("GraduateHabit() on designed = %v, want designed (no-op)", d.State)
	}

	s.ActivateHabit()
	if d := s.GraduateHabit(); d.State != models.StateMaintained {
		t.Errorf("GraduateHabit() on active = %v, want maintained", d.State)
	}
	// Double-fire from a UI race: still maintained, still no error.
	if d := s.GraduateHabit(); d.State != models.StateMaintained {
		t.Errorf("second GraduateHabit() = %v, want maintained", d.State)
	}
}

func TestPauseResume(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)
	s.ActivateHabit()

	d := s.PauseHabit("vacation")
	if d.State != models.StatePaused || d.PauseReason != "vacation" || d.PausedAt == nil {
		t.Errorf("PauseHabit() = %+v, want paused with reason", d)
	}

	d = s.ResumeHabit()
	if d.State != models.StateActive || d.PausedAt != nil || d.PauseReason != "" {
		t.Errorf("ResumeHabit() = %+v, want active with pause fields cleared", d)
	}
}

func TestExportResetImportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)
	fixClock(t, s, "2026-02-01")
	if _, err := s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true}, "2026-02-01"); err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}
	fixClock(t, s, "2026-02-02")
	before, err := s.LogCheckIn(LogFields{TriggerOccurred: true, ActionTaken: true}, "2026-02-02")
	if err != nil {
		t.Fatalf("LogCheckIn() failed: %v", err)
	}

	exported, err := s.ExportHabitData()
	if err != nil {
		t.Fatalf("ExportHabitData() failed: %v", err)
	}

	if d := s.ResetHabitData(); d.State != models.StateInstall {
		t.Fatalf("ResetHabitData() state = %v, want install", d.State)
	}

	after, err := s.ImportHabitData(exported)
	if err != nil {
		t.Fatalf("ImportHabitData() failed: %v", err)
	}

	if after.RepsCount != before.RepsCount {
		t.Errorf("RepsCount = %d, want %d", after.RepsCount, before.RepsCount)
	}
	if after.State != before.State {
		t.Errorf("State = %v, want %v", after.State, before.State)
	}
	if len(after.CheckIns) != len(before.CheckIns) {
		t.Errorf("CheckIns length = %d, want %d", len(after.CheckIns), len(before.CheckIns))
	}
	if after.LastDoneDate != before.LastDoneDate {
		t.Errorf("LastDoneDate = %q, want %q", after.LastDoneDate, before.LastDoneDate)
	}

	// Export of the reimported record reproduces the original bytes.
	reExported, err := s.ExportHabitData()
	if err != nil {
		t.Fatalf("second ExportHabitData() failed: %v", err)
	}
	if reExported != exported {
		t.Error("export after import does not reproduce the original payload")
	}
}

func TestLoadFallsBackToBackupOnCorruptPrimary(t *testing.T) {
	slots := storage.NewFileSlots(filepath.Join(t.TempDir(), "keystone.json"))
	pair := storage.NewPair(slots, "habit_data", "habit_data_backup", "habit_data_backup_at")

	s := NewStore(pair)
	designed(t, s)
	s.ActivateHabit()

	// Corrupt the primary slot behind the store's back and force a reload.
	if err := slots.Put("habit_data", []byte("{not json")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	s2 := NewStore(pair)
	d := s2.Load()
	if !d.NeedsRestoreConfirmation {
		t.Error("expected NeedsRestoreConfirmation after backup fallback")
	}
	if d.State != models.StateActive {
		t.Errorf("State = %v, want active (from backup)", d.State)
	}

	// Transient flag is handed to the first reader only.
	if again := s2.Load(); again.NeedsRestoreConfirmation {
		t.Error("restore flag should clear after first read")
	}

	// The backup itself is untouched until the user decides.
	if _, err := pair.ReadBackup(); err != nil {
		t.Errorf("backup should be intact: %v", err)
	}
}

func TestLoadFreshWhenBothSlotsCorrupt(t *testing.T) {
	slots := storage.NewFileSlots(filepath.Join(t.TempDir(), "keystone.json"))
	pair := storage.NewPair(slots, "habit_data", "habit_data_backup", "habit_data_backup_at")
	if err := slots.Put("habit_data", []byte("junk")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := slots.Put("habit_data_backup", []byte("junk")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	d := NewStore(pair).Load()
	if d.State != models.StateInstall || d.NeedsRestoreConfirmation {
		t.Errorf("Load() with both slots corrupt = %+v, want fresh install", d)
	}
}

func TestRestoreFromBackup(t *testing.T) {
	slots := storage.NewFileSlots(filepath.Join(t.TempDir(), "keystone.json"))
	pair := storage.NewPair(slots, "habit_data", "habit_data_backup", "habit_data_backup_at")

	s := NewStore(pair)
	designed(t, s)
	s.ActivateHabit()

	if err := slots.Put("habit_data", []byte("{corrupt")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	restored, err := s.RestoreFromBackup()
	if err != nil {
		t.Fatalf("RestoreFromBackup() failed: %v", err)
	}
	if restored.State != models.StateActive {
		t.Errorf("restored State = %v, want active", restored.State)
	}

	raw, err := pair.ReadPrimary()
	if err != nil {
		t.Fatalf("ReadPrimary() failed: %v", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		t.Error("primary slot should hold the restored JSON payload")
	}
}

func TestRestoreFromBackupWithoutBackup(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.RestoreFromBackup(); err != ErrNoBackup {
		t.Errorf("RestoreFromBackup() error = %v, want ErrNoBackup", err)
	}
}

func TestResetFiresClearHooks(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	cleared := 0
	unreg := s.OnClear(func() { cleared++ })
	s.ResetHabitData()
	if cleared != 1 {
		t.Errorf("clear hook fired %d times, want 1", cleared)
	}

	unreg()
	s.ResetHabitData()
	if cleared != 1 {
		t.Errorf("deregistered clear hook fired, count = %d, want 1", cleared)
	}
}

func TestClearHooksRunOutsideStoreLock(t *testing.T) {
	s := newTestStore(t)
	designed(t, s)

	// A clear-hook reading the store back (as the sync engine does around
	// its remote deletes) must not deadlock against the reset's own lock.
	var seen models.HabitData
	unreg := s.OnClear(func() { seen = s.Snapshot() })
	defer unreg()

	s.ResetHabitData()
	if seen.State != models.StateInstall {
		t.Errorf("snapshot inside clear hook = %v, want fresh install", seen.State)
	}
}

func TestSaveHooksReceiveSnapshots(t *testing.T) {
	s := newTestStore(t)

	var seen []models.HabitState
	unreg := s.OnSave(func(d models.HabitData) { seen = append(seen, d.State) })
	defer unreg()

	designed(t, s)
	s.ActivateHabit()

	if len(seen) != 2 {
		t.Fatalf("save hook fired %d times, want 2", len(seen))
	}
	if seen[0] != models.StateDesigned || seen[1] != models.StateActive {
		t.Errorf("hook snapshots = %v, want [designed active]", seen)
	}
}

func TestTuneSystemRequiresDesign(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.TuneSystem(func(sys *models.HabitSystem) {}); err != ErrNoSystem {
		t.Errorf("TuneSystem() error = %v, want ErrNoSystem", err)
	}

	designed(t, s)
	d, err := s.TuneSystem(func(sys *models.HabitSystem) { sys.Anchor = "after lunch" })
	if err != nil {
		t.Fatalf("TuneSystem() failed: %v", err)
	}
	if d.System.Anchor != "after lunch" {
		t.Errorf("System.Anchor = %q, want %q", d.System.Anchor, "after lunch")
	}
}

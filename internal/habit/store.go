// Package habit owns the canonical HabitData record. The Store is the only
// writer: every mutation reads the current snapshot, applies a transform,
// persists to the two-slot repository, and fires the registered save-hooks.
package habit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keystonehq/keystone/internal/checkin"
	"github.com/keystonehq/keystone/internal/logger"
	"github.com/keystonehq/keystone/internal/models"
	"github.com/keystonehq/keystone/internal/storage"
	"github.com/keystonehq/keystone/internal/utils"
)

var (
	// ErrActionWithoutTrigger rejects check-ins claiming an action against a
	// trigger that did not occur. Derivation assumes this cannot happen, so
	// it is enforced at the mutation boundary.
	ErrActionWithoutTrigger = errors.New("action_taken requires trigger_occurred")
	// ErrInvalidDate rejects malformed check-in dates.
	ErrInvalidDate = errors.New("check-in date must be YYYY-MM-DD")
	// ErrInvalidDifficulty rejects out-of-range difficulty ratings.
	ErrInvalidDifficulty = errors.New("difficulty rating must be between 1 and 5")
	// ErrNoSystem is returned by tune operations before a system exists.
	ErrNoSystem = errors.New("no habit system designed yet")
	// ErrNoBackup is returned by RestoreFromBackup when no backup slot exists.
	ErrNoBackup = errors.New("no backup available")
)

// SaveHook receives the latest snapshot after every successful save.
type SaveHook func(models.HabitData)

// ClearHook is invoked when the record is fully reset.
type ClearHook func()

// LogFields are the raw signals of one check-in.
type LogFields struct {
	TriggerOccurred   bool
	ActionTaken       bool
	RecoveryOffered   bool
	RecoveryCompleted *bool
	DifficultyRating  *int
	MissReason        string
}

// Store holds the in-memory snapshot and its two persistence slots. All
// operations are synchronous and mutex-guarded, so two in-process mutations
// never interleave.
type Store struct {
	mu         sync.Mutex
	pair       *storage.Pair
	now        func() time.Time
	current    *models.HabitData
	saveHooks  map[int]SaveHook
	clearHooks map[int]ClearHook
	nextHookID int
}

// NewStore creates a habit record store over the given slot pair.
func NewStore(pair *storage.Pair) *Store {
	return &Store{
		pair:       pair,
		now:        time.Now,
		saveHooks:  make(map[int]SaveHook),
		clearHooks: make(map[int]ClearHook),
	}
}

// SetClock overrides the wall clock, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// OnSave registers a hook fired with the latest snapshot after every save.
// The returned function deregisters it.
func (s *Store) OnSave(fn SaveHook) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHookID
	s.nextHookID++
	s.saveHooks[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.saveHooks, id)
	}
}

// OnClear registers a hook fired on full reset. The returned function
// deregisters it.
func (s *Store) OnClear(fn ClearHook) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHookID
	s.nextHookID++
	s.clearHooks[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.clearHooks, id)
	}
}

// Load returns the current habit record. A corrupt or missing primary slot
// degrades to the backup (flagging NeedsRestoreConfirmation on the returned
// value only) and finally to a fresh install record; it never returns an
// error for corruption.
func (s *Store) Load() models.HabitData {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	snapshot := clone(s.current)
	// The restore flag is transient: hand it to the first reader, then drop it.
	s.current.NeedsRestoreConfirmation = false
	return snapshot
}

// Snapshot returns the current record without consuming the transient
// restore flag. Readers that are not the user-facing surface (the sync
// engine's initial reconciliation) use this so the one-shot prompt is still
// waiting when the user next looks.
func (s *Store) Snapshot() models.HabitData {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return clone(s.current)
}

func (s *Store) ensureLoaded() {
	if s.current != nil {
		return
	}

	if raw, err := s.pair.ReadPrimary(); err == nil {
		var d models.HabitData
		if jsonErr := json.Unmarshal(raw, &d); jsonErr == nil {
			s.current = &d
			return
		} else {
			logger.Warn("Primary habit slot unreadable, trying backup", "error", jsonErr)
		}
	} else if !errors.Is(err, storage.ErrSlotNotFound) {
		logger.Warn("Failed to read primary habit slot", "error", err)
	}

	if raw, err := s.pair.ReadBackup(); err == nil {
		var d models.HabitData
		if jsonErr := json.Unmarshal(raw, &d); jsonErr == nil {
			d.NeedsRestoreConfirmation = true
			s.current = &d
			return
		} else {
			logger.Warn("Backup habit slot unreadable", "error", jsonErr)
		}
	}

	s.current = models.NewHabitData()
}

// Update applies a mutator to the current snapshot and saves. It is the
// write path for all auxiliary fields.
func (s *Store) Update(apply func(*models.HabitData)) models.HabitData {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	apply(s.current)
	s.persist()
	return clone(s.current)
}

// persist serializes the snapshot, writes both slots, and fires save-hooks.
// Persistence failure is logged, never propagated: habit data must not
// crash the caller.
func (s *Store) persist() {
	payload, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		logger.Error("Failed to serialize habit data", "error", err)
		return
	}
	if err := s.pair.Write(payload); err != nil {
		logger.Error("Failed to persist habit data", "error", err)
	}
	snapshot := clone(s.current)
	for _, fn := range s.saveHooks {
		fn(snapshot)
	}
}

// LogCheckIn appends a check-in for the given date (today when empty),
// recomputes reps and last-done bookkeeping through the shared dedupe
// primitive, and applies the lifecycle transitions.
func (s *Store) LogCheckIn(fields LogFields, date string) (models.HabitData, error) {
	if fields.ActionTaken && !fields.TriggerOccurred {
		return models.HabitData{}, ErrActionWithoutTrigger
	}
	if fields.DifficultyRating != nil && (*fields.DifficultyRating < 1 || *fields.DifficultyRating > 5) {
		return models.HabitData{}, ErrInvalidDifficulty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	now := s.now()
	if date == "" {
		date = utils.LocalDate(now)
	}
	if !utils.ValidDate(date) {
		return models.HabitData{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	prev, hadPrev := checkin.LatestFor(s.current.CheckIns, date)
	prevCounted := hadPrev && checkin.DeriveState(prev).Counted()

	entry := models.CheckIn{
		ID:                uuid.NewString(),
		Date:              date,
		CheckedInAt:       now,
		TriggerOccurred:   fields.TriggerOccurred,
		ActionTaken:       fields.ActionTaken,
		RecoveryOffered:   fields.RecoveryOffered,
		RecoveryCompleted: fields.RecoveryCompleted,
		DifficultyRating:  fields.DifficultyRating,
		MissReason:        fields.MissReason,
	}
	s.current.CheckIns = append(s.current.CheckIns, entry)

	state := checkin.DeriveState(entry)
	if state.Counted() && !prevCounted {
		// A rep is awarded at most once per calendar date, never for edits
		// of a date already counted.
		s.current.RepsCount++
		if date > s.current.LastDoneDate {
			s.current.LastDoneDate = date
		}
	}
	if kind, ok := repKindFor(state); ok {
		s.current.RepLogs = append(s.current.RepLogs, models.RepLog{
			Date:     date,
			Kind:     kind,
			LoggedAt: now,
		})
	}

	s.applyLifecycle(state, now)
	s.persist()
	return clone(s.current), nil
}

func repKindFor(state checkin.State) (models.RepKind, bool) {
	switch state {
	case checkin.StateCompleted:
		return models.RepDone, true
	case checkin.StateRecovered:
		return models.RepRecovery, true
	case checkin.StateMissed:
		return models.RepMissed, true
	default:
		return "", false
	}
}

func (s *Store) applyLifecycle(state checkin.State, now time.Time) {
	d := s.current
	switch state {
	case checkin.StateCompleted, checkin.StateRecovered:
		switch d.State {
		case models.StateDesigned, models.StateInstall:
			d.State = models.StateActive
			if d.CreatedAt == nil {
				t := now
				d.CreatedAt = &t
			}
		case models.StateMissed:
			d.State = models.StateActive
		}
	case checkin.StateMissed:
		if d.State == models.StateActive {
			d.State = models.StateMissed
		}
	}
}

// SkipRecovery marks the most recent missed day as explicitly not recovered
// without awarding a rep and moves the lifecycle back toward active so the
// user is unblocked for today.
func (s *Store) SkipRecovery() models.HabitData {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	byDate := checkin.DedupeByDate(s.current.CheckIns)
	for _, date := range checkin.DatesDescending(byDate) {
		entry := byDate[date]
		if checkin.DeriveState(entry) != checkin.StateMissed {
			continue
		}
		declined := false
		entry.ID = uuid.NewString()
		entry.CheckedInAt = s.now()
		entry.RecoveryOffered = true
		entry.RecoveryCompleted = &declined
		s.current.CheckIns = append(s.current.CheckIns, entry)
		break
	}

	if s.current.State == models.StateMissed {
		s.current.State = models.StateActive
	}
	s.persist()
	return clone(s.current)
}

// DesignSystem records the habit designed by the intake flow and advances
// install to designed. The system is subsequently mutated only through
// TuneSystem.
func (s *Store) DesignSystem(system models.HabitSystem) models.HabitData {
	return s.Update(func(d *models.HabitData) {
		d.System = &system
		if d.State == models.StateInstall {
			d.State = models.StateDesigned
		}
	})
}

// TuneSystem applies an explicit adjustment to the designed system.
func (s *Store) TuneSystem(apply func(*models.HabitSystem)) (models.HabitData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	if s.current.System == nil {
		return models.HabitData{}, ErrNoSystem
	}
	apply(s.current.System)
	s.persist()
	return clone(s.current), nil
}

// ActivateHabit moves a designed habit to active. No-op in any other state.
func (s *Store) ActivateHabit() models.HabitData {
	return s.Update(func(d *models.HabitData) {
		if d.State != models.StateDesigned {
			return
		}
		d.State = models.StateActive
		if d.CreatedAt == nil {
			t := s.now()
			d.CreatedAt = &t
		}
	})
}

// GraduateHabit marks an active habit maintained. Graduation is always an
// explicit user step; calling it in any other state is an idempotent no-op
// because UI races can double-fire it.
func (s *Store) GraduateHabit() models.HabitData {
	return s.Update(func(d *models.HabitData) {
		if d.State == models.StateActive {
			d.State = models.StateMaintained
		}
	})
}

// PauseHabit pauses an active habit.
func (s *Store) PauseHabit(reason string) models.HabitData {
	return s.Update(func(d *models.HabitData) {
		if d.State != models.StateActive && d.State != models.StateMissed {
			return
		}
		t := s.now()
		d.State = models.StatePaused
		d.PausedAt = &t
		d.PauseReason = reason
	})
}

// ResumeHabit resumes a paused habit.
func (s *Store) ResumeHabit() models.HabitData {
	return s.Update(func(d *models.HabitData) {
		if d.State != models.StatePaused {
			return
		}
		d.State = models.StateActive
		d.PausedAt = nil
		d.PauseReason = ""
	})
}

// ExportHabitData returns the exact JSON serialization of the primary slot
// so that export followed by import round-trips losslessly.
func (s *Store) ExportHabitData() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	raw, err := s.pair.ReadPrimary()
	if errors.Is(err, storage.ErrSlotNotFound) {
		s.persist()
		raw, err = s.pair.ReadPrimary()
	}
	if err != nil {
		return "", fmt.Errorf("failed to export habit data: %w", err)
	}
	return string(raw), nil
}

// ImportHabitData replaces the record with a previously exported payload.
func (s *Store) ImportHabitData(payload string) (models.HabitData, error) {
	var d models.HabitData
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return models.HabitData{}, fmt.Errorf("invalid habit data payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &d
	s.persist()
	return clone(s.current), nil
}

// ReplaceFromRemote overwrites the local record with the remote payload.
// Used once per session by the sync engine before its hooks register, so it
// does not echo the remote data back over the network.
func (s *Store) ReplaceFromRemote(payload []byte) error {
	var d models.HabitData
	if err := json.Unmarshal(payload, &d); err != nil {
		return fmt.Errorf("invalid remote habit data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &d
	s.persist()
	return nil
}

// RestoreFromBackup promotes the backup slot into the primary and returns
// the restored record. Returns ErrNoBackup when no backup exists.
func (s *Store) RestoreFromBackup() (models.HabitData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.pair.Restore()
	if errors.Is(err, storage.ErrSlotNotFound) {
		return models.HabitData{}, ErrNoBackup
	}
	if err != nil {
		return models.HabitData{}, fmt.Errorf("failed to restore from backup: %w", err)
	}

	var d models.HabitData
	if err := json.Unmarshal(payload, &d); err != nil {
		return models.HabitData{}, fmt.Errorf("backup slot is corrupted: %w", err)
	}
	s.current = &d
	snapshot := clone(s.current)
	for _, fn := range s.saveHooks {
		fn(snapshot)
	}
	return snapshot, nil
}

// ClearBackup discards the backup slot, for the user declining a restore.
func (s *Store) ClearBackup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	s.current.NeedsRestoreConfirmation = false
	return s.pair.ClearBackup()
}

// ResetHabitData clears both local slots, fires the clear-hooks, and
// returns a fresh install record. This is the only deletion path.
func (s *Store) ResetHabitData() models.HabitData {
	s.mu.Lock()
	if err := s.pair.Clear(); err != nil {
		logger.Error("Failed to clear habit slots", "error", err)
	}
	s.current = models.NewHabitData()
	snapshot := clone(s.current)
	hooks := make([]ClearHook, 0, len(s.clearHooks))
	for _, fn := range s.clearHooks {
		hooks = append(hooks, fn)
	}
	s.mu.Unlock()

	// Clear-hooks do remote deletes; they must not hold up the local reset.
	for _, fn := range hooks {
		fn()
	}
	return snapshot
}

// clone returns a snapshot with its own slice backing so callers can never
// mutate the store's copy.
func clone(d *models.HabitData) models.HabitData {
	out := *d
	if d.CheckIns != nil {
		out.CheckIns = append([]models.CheckIn(nil), d.CheckIns...)
	}
	if d.RepLogs != nil {
		out.RepLogs = append([]models.RepLog(nil), d.RepLogs...)
	}
	if d.System != nil {
		sys := *d.System
		out.System = &sys
	}
	if d.CreatedAt != nil {
		t := *d.CreatedAt
		out.CreatedAt = &t
	}
	if d.PausedAt != nil {
		t := *d.PausedAt
		out.PausedAt = &t
	}
	return out
}

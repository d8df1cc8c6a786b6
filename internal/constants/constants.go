package constants

import "time"

const (
	AppName            = "keystone"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/keystone/keystone.json"
	Version            = "v0.3.1"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD).
	// Dates are always rendered in the user's local timezone, never UTC, because
	// calendar-date comparisons drive lifecycle transitions.
	DateFormat = "2006-01-02"

	// EnvConnection is the environment variable checked for the remote
	// connection string when the OS keyring holds no credentials.
	EnvConnection = "KEYSTONE_DB_CONNECTION"

	// Slot keys for the local two-slot repository.
	SlotHabitPrimary    = "habit_data"
	SlotHabitBackup     = "habit_data_backup"
	SlotHabitBackupTime = "habit_data_backup_at"
	SlotConvoPrimary    = "conversation_state"
	SlotConvoBackup     = "conversation_state_backup"
	SlotConvoBackupTime = "conversation_state_backup_at"

	// DefaultDebounce is the quiet window after the last local mutation
	// before a batched push is sent to the remote store.
	DefaultDebounce = 3 * time.Second

	// PatternsUnlockThreshold is the minimum number of distinct check-in
	// days before pattern insights are reported.
	PatternsUnlockThreshold = 7

	// DifficultyWindow is the trailing number of check-ins averaged for
	// the difficulty statistic.
	DifficultyWindow = 14

	// ReentryGapDays is the absence length, in days, at which a user is
	// routed to the re-entry path instead of the missed-yesterday path.
	ReentryGapDays = 7

	// Stage names recorded in HabitData.LastStageShownAt.
	StageTuneup = "tuneup"
)

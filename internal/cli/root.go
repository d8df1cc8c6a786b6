// Package cli wires the kong command tree to the core stores. Commands
// call only the contract surface: load, update, log-check-in, skip
// recovery, lifecycle transitions, export/reset/restore, projection, and
// pattern analysis.
package cli

import (
	"errors"

	"github.com/google/uuid"

	"github.com/keystonehq/keystone/internal/convo"
	"github.com/keystonehq/keystone/internal/habit"
	"github.com/keystonehq/keystone/internal/logger"
	"github.com/keystonehq/keystone/internal/storage"
)

const userIDSlot = "user_id"

// Context carries the session-scoped stores into every command.
type Context struct {
	Habit  *habit.Store
	Convo  *convo.Store
	UserID string
	Today  string
}

// EnsureUserID returns the stable anonymous user id for this device,
// generating and persisting one on first use.
func EnsureUserID(slots storage.SlotStore) string {
	raw, err := slots.Get(userIDSlot)
	if err == nil && len(raw) > 0 {
		return string(raw)
	}
	if err != nil && !errors.Is(err, storage.ErrSlotNotFound) {
		logger.Warn("Failed to read user id slot", "error", err)
	}

	id := uuid.NewString()
	if err := slots.Put(userIDSlot, []byte(id)); err != nil {
		logger.Warn("Failed to persist user id", "error", err)
	}
	return id
}

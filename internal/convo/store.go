// Package convo persists the intake/design conversation draft in its own
// slot pair, parallel to the habit record, with the same primary+backup
// pattern and save-hook registration point.
package convo

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/keystonehq/keystone/internal/logger"
	"github.com/keystonehq/keystone/internal/models"
	"github.com/keystonehq/keystone/internal/storage"
)

// SaveHook receives the latest conversation snapshot after every save.
type SaveHook func(models.ConversationState)

// Store is the only writer of ConversationState.
type Store struct {
	mu         sync.Mutex
	pair       *storage.Pair
	current    *models.ConversationState
	saveHooks  map[int]SaveHook
	nextHookID int
}

// NewStore creates a conversation store over the given slot pair.
func NewStore(pair *storage.Pair) *Store {
	return &Store{
		pair:      pair,
		saveHooks: make(map[int]SaveHook),
	}
}

// OnSave registers a hook fired after every save; the returned function
// deregisters it.
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

// Load returns the current conversation state, falling back from a corrupt
// primary to the backup and finally to an empty record.
func (s *Store) Load() models.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return *s.current
}

func (s *Store) ensureLoaded() {
	if s.current != nil {
		return
	}
	for _, read := range []func() ([]byte, error){s.pair.ReadPrimary, s.pair.ReadBackup} {
		raw, err := read()
		if err != nil {
			if !errors.Is(err, storage.ErrSlotNotFound) {
				logger.Warn("Failed to read conversation slot", "error", err)
			}
			continue
		}
		var c models.ConversationState
		if err := json.Unmarshal(raw, &c); err != nil {
			logger.Warn("Conversation slot unreadable", "error", err)
			continue
		}
		s.current = &c
		return
	}
	s.current = models.NewConversationState()
}

// Save persists the conversation state to both slots and fires save-hooks.
// Persistence failures are logged, not propagated.
func (s *Store) Save(state models.ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &state

	payload, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		logger.Error("Failed to serialize conversation state", "error", err)
		return
	}
	if err := s.pair.Write(payload); err != nil {
		logger.Error("Failed to persist conversation state", "error", err)
	}
	for _, fn := range s.saveHooks {
		fn(state)
	}
}

// ReplaceFromRemote overwrites the local conversation with a remote payload.
func (s *Store) ReplaceFromRemote(payload []byte) error {
	var c models.ConversationState
	if err := json.Unmarshal(payload, &c); err != nil {
		return err
	}
	s.Save(c)
	return nil
}

// Reset clears both conversation slots and returns an empty record.
func (s *Store) Reset() models.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pair.Clear(); err != nil {
		logger.Error("Failed to clear conversation slots", "error", err)
	}
	s.current = models.NewConversationState()
	return *s.current
}

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSlotNotFound is returned when a slot has never been written or has
// been cleared.
var ErrSlotNotFound = errors.New("slot not found")

// FileSlots stores each slot as one JSON file in a directory beside the
// config path.
type FileSlots struct {
	dir string
}

// NewFileSlots creates a file-backed slot store. The directory is derived
// from the config path so slots live beside the rest of the app state.
func NewFileSlots(configPath string) *FileSlots {
	return &FileSlots{dir: filepath.Dir(configPath)}
}

func (s *FileSlots) slotPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileSlots) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.slotPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return data, nil
}

func (s *FileSlots) Put(key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(s.slotPath(key), value, 0600); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}

func (s *FileSlots) Delete(key string) error {
	err := os.Remove(s.slotPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

func (s *FileSlots) Close() error {
	return nil
}

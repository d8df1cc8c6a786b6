// Package storage provides the local persistence layer: a small key/value
// slot store with two interchangeable backends (JSON files or SQLite) and
// the two-slot primary/backup repository built on top of it.
package storage

import "strings"

// SlotStore is a named-slot byte store. Each logical slot holds one JSON
// payload keyed by a fixed name.
type SlotStore interface {
	// Get returns the payload for a slot. Missing slots return
	// (nil, ErrSlotNotFound).
	Get(key string) ([]byte, error)
	// Put writes a slot, creating or replacing it.
	Put(key string, value []byte) error
	// Delete removes a slot. Deleting a missing slot is a no-op.
	Delete(key string) error
	Close() error
}

// New selects a backend from the config path, mirroring how the CLI picks
// storage: a .db suffix selects SQLite, anything else the file backend.
func New(configPath string) (SlotStore, error) {
	if strings.HasSuffix(configPath, ".db") {
		return OpenSQLiteSlots(configPath)
	}
	return NewFileSlots(configPath), nil
}

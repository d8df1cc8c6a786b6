package storage

import (
	"time"
)

// Pair is the two-slot repository: a primary slot shadowed by a backup slot
// plus a backup timestamp. Every write lands in both slots; reads fall back
// to the backup when the primary is missing or unreadable by the caller.
type Pair struct {
	slots      SlotStore
	primary    string
	backup     string
	backupTime string
}

// NewPair builds a two-slot repository over the given keys.
func NewPair(slots SlotStore, primaryKey, backupKey, backupTimeKey string) *Pair {
	return &Pair{
		slots:      slots,
		primary:    primaryKey,
		backup:     backupKey,
		backupTime: backupTimeKey,
	}
}

// ReadPrimary returns the primary payload.
func (p *Pair) ReadPrimary() ([]byte, error) {
	return p.slots.Get(p.primary)
}

// ReadBackup returns the backup payload.
func (p *Pair) ReadBackup() ([]byte, error) {
	return p.slots.Get(p.backup)
}

// BackupTimestamp returns the recorded time of the last backup write, or
// the zero time when no backup exists.
func (p *Pair) BackupTimestamp() time.Time {
	raw, err := p.slots.Get(p.backupTime)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Write stores the payload in the primary slot, then unconditionally
// overwrites the backup slot with the same payload and records the backup
// timestamp. The first failing write aborts the sequence and its error is
// returned, so a failed primary write never touches the backup.
func (p *Pair) Write(payload []byte) error {
	if err := p.slots.Put(p.primary, payload); err != nil {
		return err
	}
	if err := p.slots.Put(p.backup, payload); err != nil {
		return err
	}
	return p.slots.Put(p.backupTime, []byte(time.Now().UTC().Format(time.RFC3339)))
}

// Restore promotes the backup payload into the primary slot and returns it.
// The backup itself is left untouched.
func (p *Pair) Restore() ([]byte, error) {
	payload, err := p.slots.Get(p.backup)
	if err != nil {
		return nil, err
	}
	if err := p.slots.Put(p.primary, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ClearBackup removes the backup slot and its timestamp, leaving the
// primary in place.
func (p *Pair) ClearBackup() error {
	if err := p.slots.Delete(p.backup); err != nil {
		return err
	}
	return p.slots.Delete(p.backupTime)
}

// Clear removes both slots and the timestamp. This is the only full
// deletion path.
func (p *Pair) Clear() error {
	if err := p.slots.Delete(p.primary); err != nil {
		return err
	}
	if err := p.slots.Delete(p.backup); err != nil {
		return err
	}
	return p.slots.Delete(p.backupTime)
}

package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BackupSuffix is appended to the primary slot key to form the backup
// slot key.
const BackupSuffix = "-backup"

// backupEnvelope wraps the backed-up session with its write timestamp.
type backupEnvelope struct {
	Session *Session `json:"session"`
	TS      int64    `json:"ts"`
}

// Backup keeps a redundant copy of the last known-good session in a
// slot this package owns exclusively. The provider client has been
// observed deleting its own slot after a failed background refresh
// even when the session was still serviceable; the backup survives
// that.
type Backup struct {
	store  Store
	reader *Reader
}

func NewBackup(store Store, reader *Reader) *Backup {
	return &Backup{store: store, reader: reader}
}

func (b *Backup) key() string {
	primary := b.reader.ResolveKey()
	if primary == "" {
		return ""
	}
	return primary + BackupSuffix
}

// Write stores a copy of the session in the backup slot.
func (b *Backup) Write(s *Session) error {
	if !s.complete() {
		return errors.New("refusing to back up incomplete session")
	}
	key := b.key()
	if key == "" {
		return errors.New("backup slot key cannot be resolved")
	}

	raw, err := json.Marshal(backupEnvelope{Session: s, TS: NowTimeFunc().Unix()})
	if err != nil {
		return fmt.Errorf("marshal session backup: %w", err)
	}
	return b.store.Set(key, raw)
}

// Read returns the backed-up session, or nil when the slot is missing
// or unreadable. Parse failures read as "absent".
func (b *Backup) Read() *Session {
	key := b.key()
	if key == "" {
		return nil
	}

	raw, err := b.store.Get(key)
	if err != nil {
		return nil
	}

	var env backupEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}
	if !env.Session.complete() {
		return nil
	}
	return env.Session
}

// Clear removes the backup slot. Called on intentional sign-out so a
// logged-out session cannot be resurrected. Safe to call repeatedly.
func (b *Backup) Clear() error {
	key := b.key()
	if key == "" {
		return nil
	}
	return b.store.Delete(key)
}

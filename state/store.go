package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gridbot/logger"
)

// FileStore persists one JSON state file per account under a directory.
// Writes are atomic (write temp + rename) so a crash mid-write can never
// leave a truncated file that parses as valid.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "data/state"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(login int64) string {
	return filepath.Join(f.dir, fmt.Sprintf("account_%d.json", login))
}

// Load reads the persisted state for an account.
// Missing file → fresh idle state. Corrupt file → logged reset to idle,
// never an error: trading must survive a bad state file.
func (f *FileStore) Load(login int64) *AccountState {
	data, err := os.ReadFile(f.path(login))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("⚠️  Account %d: state file unreadable, starting idle: %v", login, err)
		}
		return NewAccountState()
	}

	st := NewAccountState()
	if err := json.Unmarshal(data, st); err != nil {
		logger.Warnf("⚠️  Account %d: corrupt state file, resetting to idle: %v", login, err)
		return NewAccountState()
	}
	if st.Normalize() {
		logger.Warnf("⚠️  Account %d: state file violated invariants, repaired", login)
	}
	return st
}

// Save writes the state atomically
func (f *FileStore) Save(login int64, st *AccountState) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	final := f.path(login)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Package backup persists the open shift's state so it survives a crash.
package backup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zombor/shift-ledger/internal/errs"
	"github.com/zombor/shift-ledger/internal/ledger"
)

// FileName is the snapshot file inside the backup directory.
const FileName = "session_backup.json"

// Record is the persisted snapshot of an open shift. The cart is not part of
// it: unfinished carts are lost on a crash.
type Record struct {
	IsOpen       bool          `json:"is_open"`
	ShiftID      string        `json:"shift_id,omitempty"`
	Sales        []ledger.Sale `json:"sales"`
	ExchangeCash int64         `json:"exchange_cash"`
	OpenTime     *time.Time    `json:"open_time"`
	LastBackup   time.Time     `json:"last_backup"`
}

// Store defines the interface for snapshot persistence
type Store interface {
	// Save overwrites the snapshot
	Save(rec *Record) error

	// Load returns the snapshot, or nil when there is none
	Load() (*Record, error)

	// Clear removes the snapshot
	Clear() error
}

// FileStore implements Store with a single JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.IO(err, "creating backup directory")
	}
	return &FileStore{path: filepath.Join(dir, FileName)}, nil
}

// Path returns the snapshot file path
func (f *FileStore) Path() string {
	return f.path
}

// Save writes the snapshot to a temporary file and renames it over the old one
func (f *FileStore) Save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errs.IO(err, "marshaling backup")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errs.IO(err, "writing backup")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return errs.IO(err, "replacing backup")
	}
	return nil
}

// Load reads the snapshot. A missing file is not an error.
func (f *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(f.path)
	if errs.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.IO(err, "reading backup")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.IO(err, fmt.Sprintf("decoding backup %s", f.path))
	}
	return &rec, nil
}

// Clear removes the snapshot file. A missing file is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errs.Is(err, os.ErrNotExist) {
		return errs.IO(err, "deleting backup")
	}
	slog.Info("Backup removed", "path", f.path)
	return nil
}

package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/zombor/shift-ledger/internal/errs"
)

// Storage defines the interface for file storage operations
type Storage interface {
	// Save saves a file and returns its name
	Save(filename string, data []byte) (string, error)

	// Get retrieves a file by name
	Get(name string) ([]byte, error)

	// List returns the names of all stored files, sorted
	List() ([]string, error)
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errs.IO(err, "creating archive directory")
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save saves a file to local storage. Existing files are never overwritten.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", errs.IO(err, "creating file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", errs.IO(err, "writing file")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", errs.IO(err, "syncing file")
	}
	if err := f.Close(); err != nil {
		return "", errs.IO(err, "closing file")
	}
	return filename, nil
}

// Get retrieves a file from local storage
func (l *LocalStorage) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, name))
	if errs.Is(err, os.ErrNotExist) {
		return nil, errs.NotFound("archive %s not found", name)
	}
	if err != nil {
		return nil, errs.IO(err, fmt.Sprintf("reading file %s", name))
	}
	return data, nil
}

// List returns the regular files in local storage
func (l *LocalStorage) List() ([]string, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, errs.IO(err, "listing archive directory")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

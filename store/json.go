package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aluiziolira/pricewatch/models"
	json "github.com/goccy/go-json"
)

// JSONStore keeps the snapshot in a single indented JSON document.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the snapshot file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the snapshot file. A missing file is an empty snapshot.
func (s *JSONStore) Load(_ context.Context) (models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Snapshot{}, nil
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: read %s: %w", ErrCorrupt, s.path, err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: decode %s: %w", ErrCorrupt, s.path, err)
	}
	if snapshot == nil {
		snapshot = models.Snapshot{}
	}
	return snapshot, nil
}

// Save writes the snapshot to a temporary file in the same directory and
// renames it over the previous file.
func (s *JSONStore) Save(_ context.Context, snapshot models.Snapshot) error {
	if snapshot == nil {
		snapshot = models.Snapshot{}
	}
	data, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %w", ErrWrite, err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (s *JSONStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	committed = true
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

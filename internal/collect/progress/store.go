package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Store persists and restores collection state.
type Store interface {
	// Load returns the most recent checkpoint for a cycle, or nil when
	// none exists.
	Load(cycle int) (*State, error)

	// Commit durably replaces the checkpoint. The reader always sees
	// either the previous complete state or the new one, never a
	// partial write.
	Commit(state *State) error

	// Reset discards the checkpoint for a cycle.
	Reset(cycle int) error
}

// FileStore implements Store with an atomic temp-file-and-rename JSON
// checkpoint, one file per cycle.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(cycle int) string {
	return filepath.Join(s.dir, fmt.Sprintf("checkpoint_%d.json", cycle))
}

// Load reads the checkpoint for a cycle. A missing file is not an error; it
// means a fresh run.
func (s *FileStore) Load(cycle int) (*State, error) {
	data, err := os.ReadFile(s.path(cycle))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	state.rebuildIndex()

	return &state, nil
}

// Commit writes the checkpoint atomically: marshal, write to a temp file in
// the same directory, fsync, rename over the previous checkpoint.
func (s *FileStore) Commit(state *State) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}

	state.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, s.path(state.Cycle)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// Reset removes the checkpoint for a cycle. Missing is not an error.
func (s *FileStore) Reset(cycle int) error {
	err := os.Remove(s.path(cycle))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrStateNotFound is returned when no snapshot has been persisted yet.
var ErrStateNotFound = errors.New("engine: state not found")

// StateStore persists pipeline run snapshots between invocations.
type StateStore interface {
	Save(state State) error
	Load() (State, error)
}

// FileStore keeps the latest snapshot as a single JSON document on disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("engine: encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("engine: prepare state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("engine: write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("engine: replace state: %w", err)
	}
	return nil
}

func (s *FileStore) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, ErrStateNotFound
		}
		return State{}, fmt.Errorf("engine: read state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("engine: decode state: %w", err)
	}
	return state, nil
}

// NopStore discards snapshots. Useful for one-shot runs and tests.
type NopStore struct{}

func (NopStore) Save(State) error     { return nil }
func (NopStore) Load() (State, error) { return State{}, ErrStateNotFound }

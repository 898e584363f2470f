// Package checkpoint persists scrape progress between runs.
//
// The state file is the single source of truth for resumption: it is
// re-read at the start of every batch and rewritten at the end, so a killed
// process loses at most one in-flight batch.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-vessels/models"
)

// Store reads and writes the JSON state file.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the whole state file. A missing file yields the default state;
// a partial file (older schema) has its missing fields defaulted. A file
// that exists but cannot be parsed is an error, because resuming from a
// checkpoint we cannot trust would corrupt progress.
func (s *Store) Load() (*models.ScrapeState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewScrapeState(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	state := &models.ScrapeState{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	state.Normalize()
	return state, nil
}

// Save writes the whole state atomically (temp file then rename).
func (s *Store) Save(state *models.ScrapeState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory %q: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

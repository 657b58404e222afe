// Package paper implements the paper-trading side: portfolio state
// persistence, append-only CSV ledgers, and the daily rebalance engine.
package paper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/torisan/KabutoGo/internal/models"
)

// Store persists portfolio state as a single JSON file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the state file, or returns a fresh state seeded with
// initialCash when no file exists yet.
func (s *Store) Load(initialCash float64) (*models.PortfolioState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &models.PortfolioState{
			Cash:      initialCash,
			Positions: map[string]models.Position{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read portfolio state: %w", err)
	}
	var state models.PortfolioState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse portfolio state %s: %w", s.path, err)
	}
	if state.Positions == nil {
		state.Positions = map[string]models.Position{}
	}
	return &state, nil
}

// Save writes the state atomically: temp file in the same directory,
// fsync, then rename over the target. A crash mid-write leaves the old
// state intact.
func (s *Store) Save(state *models.PortfolioState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal portfolio state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".portfolio-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

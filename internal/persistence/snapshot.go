// Package persistence stores simulation runs: YAML snapshots for resuming,
// a compressed JSONL event log, and a SQLite event store for querying.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/selma/internal/models"
)

const (
	stateFile   = "state.yaml"
	historyFile = "history.yaml"
)

// history is the part of a snapshot that only grows.
type history struct {
	Events []models.Event `yaml:"events,omitempty"`
	Story  []string       `yaml:"story,omitempty"`
}

// SaveSnapshot writes snap under dir/name, replacing an earlier save.
func SaveSnapshot(dir, name string, snap *models.Snapshot) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid save name %q", name)
	}
	target := filepath.Join(dir, name)
	if err := os.MkdirAll(target, 0755); err != nil {
		return err
	}

	state := *snap
	state.Events, state.Story = nil, nil
	stateData, err := yaml.Marshal(&state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(target, stateFile), stateData, 0644); err != nil {
		return err
	}

	historyData, err := yaml.Marshal(history{Events: snap.Events, Story: snap.Story})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(target, historyFile), historyData, 0644)
}

// LoadSnapshot reads the save called name from dir.
func LoadSnapshot(dir, name string) (*models.Snapshot, error) {
	target := filepath.Join(dir, name)

	stateData, err := os.ReadFile(filepath.Join(target, stateFile))
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := yaml.Unmarshal(stateData, &snap); err != nil {
		return nil, fmt.Errorf("parse %s: %w", stateFile, err)
	}

	historyData, err := os.ReadFile(filepath.Join(target, historyFile))
	if err != nil {
		return nil, err
	}
	var h history
	if err := yaml.Unmarshal(historyData, &h); err != nil {
		return nil, fmt.Errorf("parse %s: %w", historyFile, err)
	}
	snap.Events = h.Events
	snap.Story = h.Story
	return &snap, nil
}

// ListSnapshots returns the names of the saves in dir.
func ListSnapshots(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// state.yaml marks a complete save.
		if _, err := os.Stat(filepath.Join(dir, entry.Name(), stateFile)); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

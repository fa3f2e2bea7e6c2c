package models

import (
	"time"

	"github.com/tatianab/selma/internal/value"
)

// Snapshot is the resumable state of a simulation run. Card and character
// definitions are not included; a snapshot is restored into a simulation
// that has loaded the same story.
type Snapshot struct {
	RunID     string                 `yaml:"run_id,omitempty"`
	SavedAt   time.Time              `yaml:"saved_at"`
	Steps     int                    `yaml:"steps"`
	Started   bool                   `yaml:"started"`
	Queue     []string               `yaml:"queue"` // "" is a wildcard slot
	Vars      map[string]value.Value `yaml:"vars,omitempty"`
	VarOrder  []string               `yaml:"var_order,omitempty"`
	Cast      []CharacterState       `yaml:"cast"`
	Events    []Event                `yaml:"events,omitempty"`
	Story     []string               `yaml:"story,omitempty"`
	RandState string                 `yaml:"rand_state"` // hex-encoded PCG state
}

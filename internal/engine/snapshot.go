package engine

import (
	"encoding/hex"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/script"
)

// Snapshot captures everything needed to resume the run, including the
// random source, so a restored run makes the same draws.
func (s *Simulation) Snapshot() (*models.Snapshot, error) {
	state, err := s.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal random state: %w", err)
	}
	snap := &models.Snapshot{
		SavedAt:   time.Now(),
		Steps:     s.steps,
		Started:   s.started,
		Queue:     slices.Clone(s.queue),
		Vars:      s.vars.Values(),
		VarOrder:  s.vars.Fields(),
		Story:     slices.Clone(s.story),
		RandState: hex.EncodeToString(state),
	}
	for _, name := range s.castOrder {
		snap.Cast = append(snap.Cast, s.cast[name].State())
	}
	for _, ev := range s.events {
		snap.Events = append(snap.Events, cloneEvent(ev))
	}
	return snap, nil
}

// Restore replaces the world state with snap. Cards and character
// definitions are left as registered.
func (s *Simulation) Restore(snap *models.Snapshot) error {
	state, err := hex.DecodeString(snap.RandState)
	if err != nil {
		return fmt.Errorf("decode random state: %w", err)
	}
	pcg := &rand.PCG{}
	if err := pcg.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("unmarshal random state: %w", err)
	}
	vars, err := script.VarMapFrom(snap.VarOrder, snap.Vars)
	if err != nil {
		return fmt.Errorf("restore world vars: %w", err)
	}
	cast := make(map[string]*models.Character, len(snap.Cast))
	var order []string
	for _, cs := range snap.Cast {
		c, err := models.CharacterFromState(cs, s)
		if err != nil {
			return fmt.Errorf("restore cast: %w", err)
		}
		if _, dup := cast[c.Name]; !dup {
			order = append(order, c.Name)
		}
		cast[c.Name] = c
	}

	s.pcg = pcg
	s.rng = rand.New(pcg)
	s.vars = vars
	s.cast = cast
	s.castOrder = order
	s.queue = slices.Clone(snap.Queue)
	s.started = snap.Started
	s.steps = snap.Steps
	s.story = slices.Clone(snap.Story)
	s.events = make([]models.Event, 0, len(snap.Events))
	for _, ev := range snap.Events {
		s.events = append(s.events, cloneEvent(ev))
	}
	s.trace("restored", "events", len(s.events))
	return nil
}

func cloneEvent(ev models.Event) models.Event {
	ev.Roles = slices.Clone(ev.Roles)
	ev.ValuesAffecting = slices.Clone(ev.ValuesAffecting)
	ev.ValuesModified = maps.Clone(ev.ValuesModified)
	ev.CausingEvents = slices.Clone(ev.CausingEvents)
	return ev
}

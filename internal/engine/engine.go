// Package engine runs the story simulation: it owns the world state, the
// cast and the draw queue, and turns one drawn card at a time into a logged
// Event.
package engine

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/tatianab/selma/internal/causal"
	"github.com/tatianab/selma/internal/deck"
	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/script"
)

const (
	DefaultDrawDeckSize    = 5
	DefaultMaxDrawAttempts = 1000

	// StartCard is run once, before the first draw, and never drawn.
	StartCard = deck.StartCard
)

// EventSink receives every committed event.
type EventSink interface {
	WriteEvent(ev models.Event) error
}

// Options configures a Simulation.
type Options struct {
	Seed            uint64
	DrawDeckSize    int
	MaxDrawAttempts int
	// Debug enables step tracing on Logger.
	Debug bool
	// Output receives print statements. Nil disables them.
	Output io.Writer
	Logger *slog.Logger
	Sinks  []EventSink
}

// ApplyDefaults fills zero-valued options.
func (o *Options) ApplyDefaults() {
	if o.DrawDeckSize <= 0 {
		o.DrawDeckSize = DefaultDrawDeckSize
	}
	if o.MaxDrawAttempts <= 0 {
		o.MaxDrawAttempts = DefaultMaxDrawAttempts
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Simulation is one world. It is not safe for concurrent use.
type Simulation struct {
	opts   Options
	log    *slog.Logger
	reg    *deck.Registry
	interp *script.Interpreter
	pcg    *rand.PCG
	rng    *rand.Rand

	cast      map[string]*models.Character
	castOrder []string
	vars      *script.VarMap

	queue     []string
	cardNames []string
	started   bool
	steps     int
	events    []models.Event
	story     []string
}

// New returns an empty simulation.
func New(opts Options) *Simulation {
	opts.ApplyDefaults()
	pcg := rand.NewPCG(opts.Seed, 0)
	s := &Simulation{
		opts:   opts,
		log:    opts.Logger,
		reg:    deck.New(),
		interp: script.NewInterpreter(opts.Output),
		pcg:    pcg,
		rng:    rand.New(pcg),
		cast:   make(map[string]*models.Character),
		vars:   script.NewVarMap(),
	}
	s.reg.OnCardsChanged(s.refreshCardNames)
	return s
}

// Registry exposes the card and character definitions.
func (s *Simulation) Registry() *deck.Registry { return s.reg }

// RegisterCard adds card, replacing any card of the same name.
func (s *Simulation) RegisterCard(card models.EventCard) error {
	return s.reg.AddCard(card)
}

// RegisterCharacter creates a character, runs its init effects against it
// and adds it to the cast. A character that fails to initialise is not added.
func (s *Simulation) RegisterCharacter(def models.CharacterDef) error {
	if def.Name == "" {
		return apperrors.New(apperrors.CodeSyntax, "character name must not be empty")
	}
	c := models.NewCharacter(def.Name, def.Attributes, def.Inventory)
	c.World = s
	for _, line := range def.Init {
		if _, err := s.interp.ExecuteEffect(c, line); err != nil {
			return apperrors.WithSource(err, def.Name)
		}
	}
	if err := s.reg.AddCharacter(def); err != nil {
		return err
	}
	if _, ok := s.cast[c.Name]; !ok {
		s.castOrder = append(s.castOrder, c.Name)
	}
	s.cast[c.Name] = c
	s.trace("character registered", "name", c.Name)
	return nil
}

// Character returns the cast member called name.
func (s *Simulation) Character(name string) (*models.Character, error) {
	c, ok := s.cast[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnknownCharacter, "there is no character named '%s'", name)
	}
	return c, nil
}

// CharacterNames returns the cast in registration order.
func (s *Simulation) CharacterNames() []string { return slices.Clone(s.castOrder) }

// ExecuteEffect runs one effect line. A nil scope means the world.
func (s *Simulation) ExecuteEffect(scope script.Holder, line string) ([]script.Change, error) {
	if scope == nil {
		scope = s
	}
	return s.interp.ExecuteEffect(scope, line)
}

// EvaluateCondition tests one condition line. A nil scope means the world.
func (s *Simulation) EvaluateCondition(scope script.Holder, line string) (bool, error) {
	if scope == nil {
		scope = s
	}
	return s.interp.EvaluateCondition(scope, line)
}

// Steps returns the number of committed steps.
func (s *Simulation) Steps() int { return s.steps }

// Events returns a copy of the event log.
func (s *Simulation) Events() []models.Event { return slices.Clone(s.events) }

// LastEvent returns the most recent event.
func (s *Simulation) LastEvent() (models.Event, bool) {
	if len(s.events) == 0 {
		return models.Event{}, false
	}
	return s.events[len(s.events)-1], true
}

// Queue returns the draw queue. Empty strings are wildcard slots.
func (s *Simulation) Queue() []string { return slices.Clone(s.queue) }

// Log returns the story told so far, one event text per line.
func (s *Simulation) Log() string {
	return strings.Join(s.story, "\n")
}

// AddSink registers a sink for events committed from now on.
func (s *Simulation) AddSink(sink EventSink) {
	s.opts.Sinks = append(s.opts.Sinks, sink)
}

// Explain returns the causal tree of an event down to depth levels.
func (s *Simulation) Explain(eventID, depth int) (causal.Node, error) {
	return causal.Explain(s.events, eventID, depth)
}

func (s *Simulation) refreshCardNames() {
	names := s.reg.CardNames()
	s.cardNames = slices.DeleteFunc(names, func(n string) bool { return n == StartCard })
}

func (s *Simulation) trace(msg string, args ...any) {
	if s.opts.Debug {
		s.log.Debug(msg, append([]any{"step", s.steps}, args...)...)
	}
}

func (s *Simulation) publish(ev models.Event) {
	for _, sink := range s.opts.Sinks {
		if err := sink.WriteEvent(ev); err != nil {
			s.log.Warn("event sink failed", "event", ev.ID, "error", err)
		}
	}
}

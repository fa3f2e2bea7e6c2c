package engine

import (
	"bytes"
	"fmt"
	"slices"
	"text/template"

	"github.com/tatianab/selma/internal/causal"
	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/script"
)

// Step draws cards until one qualifies, commits it and returns its event.
// Each draw attempt refills the queue with wildcards; a failed card loses one
// of its queue slots. After MaxDrawAttempts failed draws Step returns an
// UNSATISFIABLE error.
func (s *Simulation) Step() (models.Event, error) {
	if !s.started {
		s.started = true
		if err := s.runStartCard(); err != nil {
			return models.Event{}, err
		}
	}
	if len(s.cardNames) == 0 {
		return models.Event{}, apperrors.New(apperrors.CodeNoCardToDraw, "there are no cards to draw")
	}

	for attempt := 0; attempt < s.opts.MaxDrawAttempts; attempt++ {
		s.fillQueue()
		name := s.draw()
		card, err := s.reg.MustCard(name)
		if err != nil {
			return models.Event{}, err
		}
		bound, ok, err := s.fulfill(card)
		if err != nil {
			return models.Event{}, apperrors.WithSource(err, card.Name)
		}
		if !ok {
			s.discard(name)
			continue
		}
		return s.commit(card, bound)
	}
	return models.Event{}, apperrors.Newf(apperrors.CodeUnsatisfiable,
		"no card qualified in %d draws", s.opts.MaxDrawAttempts)
}

// runStartCard executes the start card once and seeds the queue with its
// next cards. It is logged like any other event but does not count as a step.
func (s *Simulation) runStartCard() error {
	card, ok := s.reg.Card(StartCard)
	if !ok {
		return nil
	}
	s.trace("start card")
	s.fillQueue()
	_, err := s.apply(card, nil)
	return err
}

func (s *Simulation) fillQueue() {
	for len(s.queue) < s.opts.DrawDeckSize {
		s.queue = append(s.queue, "")
	}
	s.trace("queue filled", "queue", s.queue)
}

// draw picks a random slot. Wildcards resolve to a random card name and stay
// in the queue.
func (s *Simulation) draw() string {
	slot := s.queue[s.rng.IntN(len(s.queue))]
	if slot != "" {
		s.trace("drew card", "card", slot)
		return slot
	}
	name := s.cardNames[s.rng.IntN(len(s.cardNames))]
	s.trace("drew wildcard", "card", name)
	return name
}

func (s *Simulation) discard(name string) {
	if i := slices.Index(s.queue, name); i >= 0 {
		s.queue = slices.Delete(s.queue, i, i+1)
	}
	s.trace("discarded", "card", name)
}

// fulfill binds the card's roles in declaration order, each to a random cast
// member that passes the role's conditions, then tests the card's own
// conditions. A role that no remaining character can fill fails the card;
// earlier bindings are not revisited.
func (s *Simulation) fulfill(card *models.EventCard) ([]binding, bool, error) {
	if card.Unconditional() {
		return nil, true, nil
	}
	var bound []binding
	used := make(map[string]bool, len(card.Roles))
	for _, role := range card.Roles {
		pool := slices.DeleteFunc(s.CharacterNames(), func(n string) bool { return used[n] })
		var pick *models.Character
		for len(pool) > 0 {
			i := s.rng.IntN(len(pool))
			c := s.cast[pool[i]]
			ok, err := s.testAll(c, role.Conditions)
			if err != nil {
				return nil, false, err
			}
			if ok {
				pick = c
				break
			}
			pool = slices.Delete(pool, i, i+1)
		}
		if pick == nil {
			s.trace("role unfilled", "card", card.Name, "role", role.Name)
			return nil, false, nil
		}
		used[pick.Name] = true
		bound = append(bound, binding{role: role.Name, char: pick})
		s.trace("role bound", "card", card.Name, "role", role.Name, "character", pick.Name)
	}
	ok, err := s.testAll(s.scope(bound), card.Conditions)
	return bound, ok, err
}

func (s *Simulation) testAll(scope script.Holder, conditions []string) (bool, error) {
	for _, line := range conditions {
		ok, err := s.interp.EvaluateCondition(scope, line)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (s *Simulation) commit(card *models.EventCard, bound []binding) (models.Event, error) {
	ev, err := s.apply(card, bound)
	if err != nil {
		return models.Event{}, err
	}
	s.steps++
	s.trace("committed", "card", card.Name, "event", ev.ID, "causes", len(ev.CausingEvents))
	return ev, nil
}

// apply enqueues the card's next cards, runs its effects and logs the
// resulting event. Effects already run stay applied if a later one fails.
func (s *Simulation) apply(card *models.EventCard, bound []binding) (models.Event, error) {
	for _, next := range card.NextCards {
		if err := s.reg.CheckNext(next); err != nil {
			return models.Event{}, err.WithSourceName(card.Name)
		}
	}
	scope := s.scope(bound)
	gates, err := s.gates(card, scope, bound)
	if err != nil {
		return models.Event{}, apperrors.WithSource(err, card.Name)
	}

	for _, next := range card.NextCards {
		if len(s.queue) > 0 {
			s.queue = s.queue[1:]
		}
		s.queue = append(s.queue, next)
	}

	modified := make(map[string]float64)
	for _, line := range card.Effects {
		changes, err := s.interp.ExecuteEffect(scope, line)
		if err != nil {
			return models.Event{}, apperrors.WithSource(err, card.Name)
		}
		record(modified, changes)
	}

	ev := models.Event{
		ID:             len(s.events),
		CardName:       card.Name,
		ValuesModified: modified,
		CausingEvents:  causal.Attribute(s.events, gates),
	}
	for i, b := range bound {
		ev.Roles = append(ev.Roles, models.RoleBinding{Role: b.role, Character: b.char.Name})
		switch i {
		case 0:
			ev.Subject = b.char.Name
		case 1:
			ev.Object = b.char.Name
		}
	}
	for _, g := range gates {
		ev.ValuesAffecting = append(ev.ValuesAffecting, g.Path)
	}
	text, err := renderText(card, ev)
	if err != nil {
		return models.Event{}, apperrors.WithSource(err, card.Name)
	}
	ev.Text = text

	s.events = append(s.events, ev)
	s.story = append(s.story, text)
	s.publish(ev)
	return ev, nil
}

// gates lists the variable paths that gated the card: its own conditions in
// world scope and each role's conditions in the bound character's scope.
func (s *Simulation) gates(card *models.EventCard, scope worldScope, bound []binding) ([]causal.Gate, error) {
	var gates []causal.Gate
	add := func(h script.Holder, line string) error {
		st, err := script.ParseCondition(h, line)
		if err != nil {
			return apperrors.WithLine(err, line)
		}
		gates = append(gates, causal.Gate{Path: st.GlobalPath, Rule: causal.RuleFor(st.Op, st.TargetKind)})
		return nil
	}
	for _, line := range card.Conditions {
		if err := add(scope, line); err != nil {
			return nil, err
		}
	}
	for i, role := range card.Roles {
		if i >= len(bound) {
			break
		}
		for _, line := range role.Conditions {
			if err := add(bound[i].char, line); err != nil {
				return nil, err
			}
		}
	}
	return causal.Dedupe(gates), nil
}

// record folds effect changes into values_modified. Numeric deltas add up;
// change flags keep the largest.
func record(modified map[string]float64, changes []script.Change) {
	for _, c := range changes {
		if c.Numeric {
			modified[c.Path] += c.Delta
			continue
		}
		if cur, ok := modified[c.Path]; !ok || c.Delta > cur {
			modified[c.Path] = c.Delta
		}
	}
}

type textData struct {
	ID      int
	Card    string
	Subject string
	Object  string
	Roles   map[string]string
}

func renderText(card *models.EventCard, ev models.Event) (string, error) {
	if card.Text == "" {
		return "#" + card.Name + "#", nil
	}
	tmpl, err := template.New(card.Name).Option("missingkey=zero").Parse(card.Text)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeSyntax, fmt.Sprintf("invalid card text: %v", err), err)
	}
	var buf bytes.Buffer
	data := textData{ID: ev.ID, Card: ev.CardName, Subject: ev.Subject, Object: ev.Object, Roles: ev.RoleMap()}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", apperrors.Wrap(apperrors.CodeSyntax, fmt.Sprintf("cannot render card text: %v", err), err)
	}
	return buf.String(), nil
}

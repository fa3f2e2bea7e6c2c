// Package deck owns the card and character definitions of a story.
package deck

import (
	"slices"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/models"
)

// StartCard names the card run once before the first draw. It is never drawn
// and may not appear as a next card.
const StartCard = "start"

// Registry holds exactly one card and one character definition per name.
// Names keep their first registration order; re-adding replaces in place.
type Registry struct {
	cards      map[string]*models.EventCard
	cardOrder  []string
	chars      map[string]*models.CharacterDef
	charOrder  []string
	onCardsSet []func()
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		cards: make(map[string]*models.EventCard),
		chars: make(map[string]*models.CharacterDef),
	}
}

// OnCardsChanged registers fn to run after every card registration.
func (r *Registry) OnCardsChanged(fn func()) {
	r.onCardsSet = append(r.onCardsSet, fn)
}

// AddCard registers a copy of card, replacing any card of the same name.
func (r *Registry) AddCard(card models.EventCard) error {
	if card.Name == "" {
		return apperrors.New(apperrors.CodeSyntax, "card name must not be empty")
	}
	seen := make(map[string]bool, len(card.Roles))
	for _, role := range card.Roles {
		if role.Name == "" {
			return apperrors.New(apperrors.CodeSyntax, "role name must not be empty").WithSourceName(card.Name)
		}
		if seen[role.Name] {
			return apperrors.Newf(apperrors.CodeDuplicateRole, "role '%s' is declared twice", role.Name).WithSourceName(card.Name)
		}
		seen[role.Name] = true
	}

	c := cloneCard(card)
	if _, ok := r.cards[c.Name]; !ok {
		r.cardOrder = append(r.cardOrder, c.Name)
	}
	r.cards[c.Name] = &c
	for _, fn := range r.onCardsSet {
		fn()
	}
	return nil
}

// Card returns the card registered under name.
func (r *Registry) Card(name string) (*models.EventCard, bool) {
	c, ok := r.cards[name]
	return c, ok
}

// MustCard returns the card registered under name or an UNKNOWN_CARD error.
func (r *Registry) MustCard(name string) (*models.EventCard, error) {
	c, ok := r.cards[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnknownCard, "there is no card named '%s'", name)
	}
	return c, nil
}

// CardNames returns card names in registration order.
func (r *Registry) CardNames() []string {
	return slices.Clone(r.cardOrder)
}

// AddCharacter registers a character definition, replacing any of the same name.
func (r *Registry) AddCharacter(def models.CharacterDef) error {
	if def.Name == "" {
		return apperrors.New(apperrors.CodeSyntax, "character name must not be empty")
	}
	d := models.CharacterDef{
		Name:       def.Name,
		Init:       slices.Clone(def.Init),
		Attributes: slices.Clone(def.Attributes),
		Inventory:  slices.Clone(def.Inventory),
	}
	if _, ok := r.chars[d.Name]; !ok {
		r.charOrder = append(r.charOrder, d.Name)
	}
	r.chars[d.Name] = &d
	return nil
}

// Character returns the definition registered under name.
func (r *Registry) Character(name string) (*models.CharacterDef, bool) {
	d, ok := r.chars[name]
	return d, ok
}

// CharacterNames returns character names in registration order.
func (r *Registry) CharacterNames() []string {
	return slices.Clone(r.charOrder)
}

// Validate reports the first next-card reference to an unregistered card or
// to the start card.
func (r *Registry) Validate() error {
	for _, name := range r.cardOrder {
		for _, next := range r.cards[name].NextCards {
			if err := r.CheckNext(next); err != nil {
				return err.WithSourceName(name)
			}
		}
	}
	return nil
}

// CheckNext reports whether next may be queued as a next card.
func (r *Registry) CheckNext(next string) *apperrors.Error {
	if next == StartCard {
		return apperrors.Newf(apperrors.CodeUnknownNextCard, "the start card '%s' cannot be a next card", next)
	}
	if _, ok := r.cards[next]; !ok {
		return apperrors.Newf(apperrors.CodeUnknownNextCard, "next card '%s' is not registered", next)
	}
	return nil
}

func cloneCard(c models.EventCard) models.EventCard {
	out := models.EventCard{
		Name:       c.Name,
		Conditions: slices.Clone(c.Conditions),
		Effects:    slices.Clone(c.Effects),
		NextCards:  slices.Clone(c.NextCards),
		Text:       c.Text,
	}
	for _, role := range c.Roles {
		out.Roles = append(out.Roles, models.Role{Name: role.Name, Conditions: slices.Clone(role.Conditions)})
	}
	return out
}

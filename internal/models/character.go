package models

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/script"
	"github.com/tatianab/selma/internal/value"
)

// Character is a cast member. Its fields are fixed at construction and keep
// their kind; custom fields live in Var.
type Character struct {
	Name        string
	Gender      string
	Age         float64
	Attributes  []string
	Personality []string
	Inventory   []string
	Mood        string
	Job         string
	Happiness   float64
	Var         *script.VarMap

	// World is the owning simulation, exposed read-only as "world".
	World script.Holder
}

var characterFields = []string{
	"name", "gender", "age", "attributes", "personality",
	"inventory", "mood", "job", "happiness",
}

// NewCharacter returns a character with default field values.
func NewCharacter(name string, attributes, inventory []string) *Character {
	return &Character{
		Name:        name,
		Attributes:  slices.Clone(attributes),
		Personality: []string{},
		Inventory:   slices.Clone(inventory),
		Mood:        "neutral",
		Var:         script.NewVarMap(),
	}
}

func (c *Character) Get(name string) (value.Value, bool) {
	switch name {
	case "name":
		return value.Text(c.Name), true
	case "gender":
		return value.Text(c.Gender), true
	case "age":
		return value.Number(c.Age), true
	case "attributes":
		return value.List(c.Attributes...), true
	case "personality":
		return value.List(c.Personality...), true
	case "inventory":
		return value.List(c.Inventory...), true
	case "mood":
		return value.Text(c.Mood), true
	case "job":
		return value.Text(c.Job), true
	case "happiness":
		return value.Number(c.Happiness), true
	}
	return value.Value{}, false
}

func (c *Character) Set(name string, v value.Value) error {
	cur, ok := c.Get(name)
	if !ok {
		return apperrors.Newf(apperrors.CodeNoSuchVariable, "there is no variable named '%s' on %s", name, c.Describe())
	}
	if name == "name" {
		return apperrors.Newf(apperrors.CodeIllegalScope, "the name of %s is read-only", c.Describe())
	}
	if cur.Kind() != v.Kind() {
		return apperrors.Newf(apperrors.CodeTypeMismatch, "cannot store a %s in '%s' because it is of type %s", v.Kind(), name, cur.Kind())
	}
	switch name {
	case "gender":
		c.Gender = v.Str()
	case "age":
		c.Age = v.Float()
	case "attributes":
		c.Attributes = v.Items()
	case "personality":
		c.Personality = v.Items()
	case "inventory":
		c.Inventory = v.Items()
	case "mood":
		c.Mood = v.Str()
	case "job":
		c.Job = v.Str()
	case "happiness":
		c.Happiness = v.Float()
	}
	return nil
}

func (c *Character) Child(name string) (script.Holder, bool) {
	switch name {
	case script.VarMapName:
		return c.Var, true
	case "world":
		if c.World != nil {
			return readOnly{c.World}, true
		}
	}
	return nil, false
}

func (c *Character) Fields() []string {
	return append(slices.Clone(characterFields), script.VarMapName)
}

// CanonicalPath places character-relative paths under cast.<name>. Paths
// through "world" are canonical in the world's terms.
func (c *Character) CanonicalPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "world."); ok && c.World != nil {
		return script.CanonicalPath(c.World, rest)
	}
	return "cast." + c.Name + "." + path
}

func (c *Character) Describe() string {
	return fmt.Sprintf("character '%s'", c.Name)
}

// readOnly lets character scope read world state without writing it.
type readOnly struct {
	script.Holder
}

func (r readOnly) Set(name string, _ value.Value) error {
	return apperrors.Newf(apperrors.CodeIllegalScope, "'world.%s' is read-only from character scope", name)
}

func (r readOnly) Child(name string) (script.Holder, bool) {
	h, ok := r.Holder.Child(name)
	if !ok {
		return nil, false
	}
	if vars, isVars := h.(*script.VarMap); isVars {
		return readOnlyVars{vars}, true
	}
	return readOnly{h}, true
}

type readOnlyVars struct {
	*script.VarMap
}

func (r readOnlyVars) Set(name string, _ value.Value) error {
	return apperrors.Newf(apperrors.CodeIllegalScope, "'world.var.%s' is read-only from character scope", name)
}

// CharacterState is the serialisable form of a Character.
type CharacterState struct {
	Name        string                 `yaml:"name"`
	Gender      string                 `yaml:"gender,omitempty"`
	Age         float64                `yaml:"age,omitempty"`
	Attributes  []string               `yaml:"attributes,omitempty"`
	Personality []string               `yaml:"personality,omitempty"`
	Inventory   []string               `yaml:"inventory,omitempty"`
	Mood        string                 `yaml:"mood"`
	Job         string                 `yaml:"job,omitempty"`
	Happiness   float64                `yaml:"happiness"`
	Vars        map[string]value.Value `yaml:"vars,omitempty"`
	VarOrder    []string               `yaml:"var_order,omitempty"`
}

// State captures the character for a snapshot.
func (c *Character) State() CharacterState {
	return CharacterState{
		Name:        c.Name,
		Gender:      c.Gender,
		Age:         c.Age,
		Attributes:  slices.Clone(c.Attributes),
		Personality: slices.Clone(c.Personality),
		Inventory:   slices.Clone(c.Inventory),
		Mood:        c.Mood,
		Job:         c.Job,
		Happiness:   c.Happiness,
		Vars:        c.Var.Values(),
		VarOrder:    c.Var.Fields(),
	}
}

// CharacterFromState rebuilds a character from a snapshot.
func CharacterFromState(s CharacterState, world script.Holder) (*Character, error) {
	c := NewCharacter(s.Name, s.Attributes, s.Inventory)
	c.Gender = s.Gender
	c.Age = s.Age
	if s.Personality != nil {
		c.Personality = slices.Clone(s.Personality)
	}
	c.Mood = s.Mood
	c.Job = s.Job
	c.Happiness = s.Happiness
	c.World = world
	vars, err := script.VarMapFrom(s.VarOrder, s.Vars)
	if err != nil {
		return nil, fmt.Errorf("character %s: %w", s.Name, err)
	}
	c.Var = vars
	return c, nil
}

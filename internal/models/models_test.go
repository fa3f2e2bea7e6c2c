package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/script"
	"github.com/tatianab/selma/internal/value"
)

func TestStoryYAML(t *testing.T) {
	src := `
title: Village
cards:
  - name: gift
    conditions:
      - var.season = "winter"
    effects:
      - roles.giver.happiness += 1
    next: [thanks]
    roles:
      - name: giver
        conditions:
          - happiness > 0
      - name: receiver
    text: "{{.Subject}} gives {{.Object}} a gift"
characters:
  - name: Anna
    init:
      - age = 30
    attributes: [kind]
    inventory: [apple]
`
	var story Story
	require.NoError(t, yaml.Unmarshal([]byte(src), &story))

	require.Len(t, story.Cards, 1)
	card := story.Cards[0]
	assert.Equal(t, "gift", card.Name)
	assert.Equal(t, []string{"thanks"}, card.NextCards)
	require.Len(t, card.Roles, 2)
	assert.Equal(t, "giver", card.Roles[0].Name)
	assert.Empty(t, card.Roles[1].Conditions)
	assert.False(t, card.Unconditional())

	require.Len(t, story.Characters, 1)
	assert.Equal(t, []string{"age = 30"}, story.Characters[0].Init)
}

func TestCharacterHolder(t *testing.T) {
	c := NewCharacter("Anna", []string{"kind"}, []string{"apple"})

	v, ok := c.Get("mood")
	require.True(t, ok)
	assert.Equal(t, "neutral", v.Str())

	require.NoError(t, c.Set("happiness", value.Number(3)))
	assert.Equal(t, 3.0, c.Happiness)

	require.NoError(t, c.Set("inventory", value.List("apple", "pear")))
	assert.Equal(t, []string{"apple", "pear"}, c.Inventory)

	assert.ErrorIs(t, c.Set("happiness", value.Text("x")), apperrors.ErrTypeMismatch)
	assert.ErrorIs(t, c.Set("name", value.Text("Bo")), apperrors.ErrIllegalScope)
	assert.ErrorIs(t, c.Set("height", value.Number(1)), apperrors.ErrNoSuchVariable)

	assert.Equal(t, "cast.Anna.happiness", c.CanonicalPath("happiness"))
}

func TestCharacterWorldIsReadOnly(t *testing.T) {
	world := script.NewVarMap()
	require.NoError(t, world.Define("season", value.Text("winter")))
	c := NewCharacter("Anna", nil, nil)
	c.World = &varsWorld{vars: world}

	in := script.NewInterpreter(nil)
	ok, err := in.EvaluateCondition(c, `world.var.season = "winter"`)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = in.ExecuteEffect(c, `world.var.season = "spring"`)
	assert.ErrorIs(t, err, apperrors.ErrIllegalScope)

	st, err := script.ParseCondition(c, `world.var.season = "winter"`)
	require.NoError(t, err)
	assert.Equal(t, "var.season", st.GlobalPath)
}

func TestCharacterStateRoundTrip(t *testing.T) {
	c := NewCharacter("Anna", []string{"kind"}, nil)
	c.Happiness = 4
	require.NoError(t, c.Var.Define("trust", value.Number(2)))

	data, err := yaml.Marshal(c.State())
	require.NoError(t, err)

	var state CharacterState
	require.NoError(t, yaml.Unmarshal(data, &state))
	back, err := CharacterFromState(state, nil)
	require.NoError(t, err)

	assert.Equal(t, 4.0, back.Happiness)
	assert.Equal(t, []string{"kind"}, back.Attributes)
	v, ok := back.Var.Get("trust")
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Float())
}

func TestEventRoleMap(t *testing.T) {
	e := Event{Roles: []RoleBinding{{Role: "giver", Character: "Anna"}, {Role: "receiver", Character: "Bo"}}}
	assert.Equal(t, map[string]string{"giver": "Anna", "receiver": "Bo"}, e.RoleMap())
}

type varsWorld struct {
	vars *script.VarMap
}

func (w *varsWorld) Get(string) (value.Value, bool) { return value.Value{}, false }
func (w *varsWorld) Set(name string, _ value.Value) error {
	return apperrors.New(apperrors.CodeNoSuchVariable, name)
}
func (w *varsWorld) Fields() []string { return []string{script.VarMapName} }
func (w *varsWorld) Child(name string) (script.Holder, bool) {
	if name == script.VarMapName {
		return w.vars, true
	}
	return nil, false
}

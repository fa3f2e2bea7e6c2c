package script

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/value"
)

// person is a fixed-schema holder used to exercise the interpreter without
// pulling in the models package.
type person struct {
	name   string
	fields map[string]value.Value
	vars   *VarMap
}

func newPerson(name string) *person {
	return &person{
		name: name,
		fields: map[string]value.Value{
			"happiness": value.Number(0),
			"mood":      value.Text("neutral"),
			"inventory": value.List(),
		},
		vars: NewVarMap(),
	}
}

func (p *person) Get(name string) (value.Value, bool) {
	v, ok := p.fields[name]
	return v, ok
}

func (p *person) Set(name string, v value.Value) error {
	cur, ok := p.fields[name]
	if !ok {
		return apperrors.Newf(apperrors.CodeNoSuchVariable, "no %s", name)
	}
	if cur.Kind() != v.Kind() {
		return apperrors.Newf(apperrors.CodeTypeMismatch, "%s is %s", name, cur.Kind())
	}
	p.fields[name] = v
	return nil
}

func (p *person) Child(name string) (Holder, bool) {
	if name == VarMapName {
		return p.vars, true
	}
	return nil, false
}

func (p *person) Fields() []string { return []string{"happiness", "mood", "inventory", VarMapName} }

func (p *person) CanonicalPath(path string) string { return "cast." + p.name + "." + path }

type group struct {
	order   []string
	members map[string]*person
}

func (g *group) Get(string) (value.Value, bool)    { return value.Value{}, false }
func (g *group) Set(name string, _ value.Value) error { return apperrors.New(apperrors.CodeIllegalScope, name) }
func (g *group) Fields() []string                  { return slices.Clone(g.order) }
func (g *group) Child(name string) (Holder, bool) {
	p, ok := g.members[name]
	return p, ok
}

type world struct {
	vars *VarMap
	cast *group
}

func newWorld(names ...string) *world {
	g := &group{members: map[string]*person{}}
	for _, n := range names {
		g.order = append(g.order, n)
		g.members[n] = newPerson(n)
	}
	return &world{vars: NewVarMap(), cast: g}
}

func (w *world) Get(string) (value.Value, bool)    { return value.Value{}, false }
func (w *world) Set(name string, _ value.Value) error { return apperrors.New(apperrors.CodeNoSuchVariable, name) }
func (w *world) Fields() []string                  { return []string{"cast", VarMapName} }
func (w *world) Child(name string) (Holder, bool) {
	switch name {
	case "cast":
		return w.cast, true
	case VarMapName:
		return w.vars, true
	}
	return nil, false
}

func TestResolve(t *testing.T) {
	w := newWorld("Anna")

	target, err := Resolve(w, "cast.Anna.happiness")
	require.NoError(t, err)
	assert.Equal(t, "happiness", target.Name)
	assert.Same(t, w.cast.members["Anna"], target.Holder)

	target, err = Resolve(w, "steps")
	require.NoError(t, err)
	assert.Same(t, w, target.Holder)

	_, err = Resolve(w, "cast.Bob.happiness")
	assert.ErrorIs(t, err, apperrors.ErrNoSuchVariable)

	_, err = Resolve(w, "cast..happiness")
	assert.ErrorIs(t, err, apperrors.ErrSyntax)
}

func TestExecuteEffectNumeric(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	changes, err := in.ExecuteEffect(w, "cast.Anna.happiness add-to 5")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Path: "cast.Anna.happiness", Delta: 5, Numeric: true}, changes[0])

	_, err = in.ExecuteEffect(w, "cast.Anna.happiness -= 2")
	require.NoError(t, err)
	_, err = in.ExecuteEffect(w, "cast.Anna.happiness multiply-numeric 4")
	require.NoError(t, err)
	changes, err = in.ExecuteEffect(w, "cast.Anna.happiness /= 3")
	require.NoError(t, err)
	assert.Equal(t, -8.0, changes[0].Delta)

	v, err := Lookup(w, "cast.Anna.happiness")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v.Float())
}

func TestDivideByZero(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	_, err := in.ExecuteEffect(w, "cast.Anna.happiness divide-numeric 0")
	require.ErrorIs(t, err, apperrors.ErrArithmetic)

	var e *apperrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "cast.Anna.happiness divide-numeric 0", e.Line)
}

func TestAssignRoundTrip(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	for _, line := range []string{
		"var create-num trust",
		"var create-string season",
		"var create-list rumours",
	} {
		_, err := in.ExecuteEffect(w, line)
		require.NoError(t, err, line)
	}

	tests := []struct {
		line string
		path string
		want value.Value
	}{
		{line: "var.trust assign-value 3.5", path: "var.trust", want: value.Number(3.5)},
		{line: `var.season = "winter"`, path: "var.season", want: value.Text("winter")},
		{line: `var.rumours = ["a", "b"]`, path: "var.rumours", want: value.List("a", "b")},
		{line: `cast.Anna.mood = 'glad'`, path: "cast.Anna.mood", want: value.Text("glad")},
		{line: `var.season = cast.Anna.mood`, path: "var.season", want: value.Text("glad")},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := in.ExecuteEffect(w, tt.line)
			require.NoError(t, err)
			got, err := Lookup(w, tt.path)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %#v", got)
		})
	}
}

func TestAssignListLiteralToTextKeepsRawText(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	_, err := in.ExecuteEffect(w, `cast.Anna.mood = ["a"]`)
	require.NoError(t, err)
	v, _ := Lookup(w, "cast.Anna.mood")
	assert.Equal(t, `["a"]`, v.Str())
}

func TestFixedSchemaRejectsKindChange(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	_, err := in.ExecuteEffect(w, `cast.Anna.happiness = "very"`)
	assert.ErrorIs(t, err, apperrors.ErrTypeMismatch)
}

func TestListEffects(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	changes, err := in.ExecuteEffect(w, `cast.Anna.inventory append "sword"`)
	require.NoError(t, err)
	assert.Equal(t, "cast.Anna.inventory.sword", changes[0].Path)
	assert.Equal(t, 1.0, changes[0].Delta)
	assert.False(t, changes[0].Numeric)

	_, err = in.ExecuteEffect(w, `cast.Anna.inventory add-these ["shield", "rope", "rope"]`)
	require.NoError(t, err)
	_, err = in.ExecuteEffect(w, `cast.Anna.inventory remove "rope"`)
	require.NoError(t, err)
	changes, err = in.ExecuteEffect(w, `cast.Anna.inventory remove "missing"`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, changes[0].Delta)

	v, _ := Lookup(w, "cast.Anna.inventory")
	assert.Equal(t, []string{"sword", "shield", "rope"}, v.Items())

	_, err = in.ExecuteEffect(w, `cast.Anna.inventory remove-from-list-many ["sword", "rope"]`)
	require.NoError(t, err)
	v, _ = Lookup(w, "cast.Anna.inventory")
	assert.Equal(t, []string{"shield"}, v.Items())

	_, err = in.ExecuteEffect(w, `cast.Anna.mood append "x"`)
	assert.ErrorIs(t, err, apperrors.ErrTypeMismatch)
	_, err = in.ExecuteEffect(w, `cast.Anna.inventory append-list "x"`)
	assert.ErrorIs(t, err, apperrors.ErrTypeMismatch)
}

func TestAddToConcatenatesText(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	changes, err := in.ExecuteEffect(w, `cast.Anna.mood += " but tired"`)
	require.NoError(t, err)
	assert.Equal(t, Change{Path: "cast.Anna.mood", Delta: 1}, changes[0])
	v, _ := Lookup(w, "cast.Anna.mood")
	assert.Equal(t, "neutral but tired", v.Str())

	_, err = in.ExecuteEffect(w, `cast.Anna.happiness += "x"`)
	assert.ErrorIs(t, err, apperrors.ErrTypeMismatch)
}

func TestPrint(t *testing.T) {
	w := newWorld("Anna")
	var buf bytes.Buffer
	in := NewInterpreter(&buf)

	changes, err := in.ExecuteEffect(w, `cast.Anna.mood print "Anna feels $"`)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, "Anna feels neutral\n", buf.String())

	silent := NewInterpreter(nil)
	_, err = silent.ExecuteEffect(w, `cast.Anna.mood print "Anna feels $"`)
	require.NoError(t, err)
}

func TestDefineVariable(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	changes, err := in.ExecuteEffect(w, "var define-numeric-variable trust")
	require.NoError(t, err)
	assert.Equal(t, "var.trust", changes[0].Path)

	v, err := Lookup(w, "var.trust")
	require.NoError(t, err)
	assert.True(t, value.Number(0).Equal(v))

	_, err = in.ExecuteEffect(w, "var define-numeric-variable trust")
	assert.ErrorIs(t, err, apperrors.ErrIllegalVariableName)

	_, err = in.ExecuteEffect(w, `var create-num "2fast"`)
	assert.ErrorIs(t, err, apperrors.ErrIllegalVariableName)
	_, err = in.ExecuteEffect(w, `var create-num "a-b"`)
	assert.ErrorIs(t, err, apperrors.ErrIllegalVariableName)

	_, err = in.ExecuteEffect(w, "cast create-num trust")
	assert.ErrorIs(t, err, apperrors.ErrIllegalScope)

	changes, err = in.ExecuteEffect(w.cast.members["Anna"], `var create-string nickname`)
	require.NoError(t, err)
	assert.Equal(t, "cast.Anna.var.nickname", changes[0].Path)
}

func TestDefineOnAll(t *testing.T) {
	w := newWorld("Anna", "Bo")
	in := NewInterpreter(nil)

	changes, err := in.ExecuteEffect(w, "cast define-number-on-all trust")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "cast.Anna.var.trust", changes[0].Path)
	assert.Equal(t, "cast.Bo.var.trust", changes[1].Path)

	for _, name := range []string{"Anna", "Bo"} {
		v, err := Lookup(w, "cast."+name+".var.trust")
		require.NoError(t, err)
		assert.True(t, value.Number(0).Equal(v))
	}

	_, err = in.ExecuteEffect(w, "var create-list-all tags")
	assert.ErrorIs(t, err, apperrors.ErrIllegalScope)
	_, err = in.ExecuteEffect(w, "cast.Anna.happiness create-num-all tags")
	assert.ErrorIs(t, err, apperrors.ErrTypeMismatch)
}

func TestEvaluateCondition(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)
	_, err := in.ExecuteEffect(w, `cast.Anna.inventory append "sword"`)
	require.NoError(t, err)
	_, err = in.ExecuteEffect(w, `cast.Anna.happiness = 5`)
	require.NoError(t, err)

	tests := []struct {
		line string
		want bool
	}{
		{"cast.Anna.happiness value-equals 5", true},
		{"cast.Anna.happiness = 4", false},
		{"cast.Anna.happiness != 4", true},
		{"cast.Anna.happiness > 4", true},
		{"cast.Anna.happiness greater-than 5", false},
		{"cast.Anna.happiness >= 5", true},
		{"cast.Anna.happiness < 5", false},
		{"cast.Anna.happiness lesser-or-equal 5", true},
		{`cast.Anna.mood = "neutral"`, true},
		{`cast.Anna.inventory = ["sword"]`, true},
		{`cast.Anna.inventory has "sword"`, true},
		{`cast.Anna.inventory list-doesnt-contain "sword"`, false},
		{`cast.Anna.missing = 1`, false},
		{`cast.Anna.missing value-not-equals 1`, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := in.EvaluateCondition(w, tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionErrors(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	tests := []struct {
		line string
		want error
	}{
		{"cast.Anna.happiness", apperrors.ErrSyntax},
		{"cast.Anna.happiness ~ 1", apperrors.ErrUnknownOperator},
		{"cast.Anna.happiness add-to 1", apperrors.ErrUnknownOperator},
		{`cast.Anna.mood > 1`, apperrors.ErrTypeMismatch},
		{`cast.Anna.happiness > "x"`, apperrors.ErrTypeMismatch},
		{`cast.Anna.happiness has "x"`, apperrors.ErrTypeMismatch},
		{`cast.Anna.happiness = "5"`, apperrors.ErrTypeMismatch},
		{`cast.Anna.missing > 1`, apperrors.ErrNoSuchVariable},
		{`cast.Anna.happiness = nowhere`, apperrors.ErrNoSuchVariable},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := in.EvaluateCondition(w, tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConditionsDoNotMutate(t *testing.T) {
	w := newWorld("Anna")
	in := NewInterpreter(nil)

	_, err := in.EvaluateCondition(w, "cast.Anna.happiness = 0")
	require.NoError(t, err)
	v, _ := Lookup(w, "cast.Anna.happiness")
	assert.Equal(t, 0.0, v.Float())
}

func TestParseConditionGlobalPath(t *testing.T) {
	w := newWorld("Anna")
	anna := w.cast.members["Anna"]

	st, err := ParseCondition(anna, `inventory has "sword"`)
	require.NoError(t, err)
	assert.Equal(t, "cast.Anna.inventory.sword", st.GlobalPath)
	assert.Equal(t, value.KindList, st.TargetKind)

	st, err = ParseCondition(w, "var.missing != 1")
	require.NoError(t, err)
	assert.Equal(t, "var.missing", st.GlobalPath)
	assert.Equal(t, value.KindInvalid, st.TargetKind)
}

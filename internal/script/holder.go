// Package script interprets story statements of the form
// "<path> <operator> <argument>" against a tree of variable holders.
package script

import (
	"slices"
	"strings"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/value"
)

// Holder exposes named fields. A name is either a leaf Value (Get/Set) or a
// nested Holder (Child), never both.
type Holder interface {
	Get(name string) (value.Value, bool)
	Set(name string, v value.Value) error
	Child(name string) (Holder, bool)
	Fields() []string
}

// Canonicalizer is implemented by scopes that rewrite a path relative to
// themselves into a global variable path.
type Canonicalizer interface {
	CanonicalPath(path string) string
}

// VarMap is the open-schema "var" holder. It is the only holder in which new
// fields may be declared at runtime.
type VarMap struct {
	vals  map[string]value.Value
	order []string
}

// VarMapName is the field name under which every holder exposes its VarMap.
const VarMapName = "var"

// NewVarMap returns an empty VarMap.
func NewVarMap() *VarMap {
	return &VarMap{vals: make(map[string]value.Value)}
}

func (m *VarMap) Get(name string) (value.Value, bool) {
	v, ok := m.vals[name]
	return v, ok
}

// Set replaces an existing field. The kind may change; the name must
// already have been declared.
func (m *VarMap) Set(name string, v value.Value) error {
	if _, ok := m.vals[name]; !ok {
		return apperrors.Newf(apperrors.CodeNoSuchVariable, "there is no variable named '%s' on var", name)
	}
	m.vals[name] = v.Clone()
	return nil
}

func (m *VarMap) Child(string) (Holder, bool) { return nil, false }

// Fields returns declared names in declaration order.
func (m *VarMap) Fields() []string { return slices.Clone(m.order) }

// Define declares a new field with a default value.
func (m *VarMap) Define(name string, def value.Value) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, ok := m.vals[name]; ok {
		return apperrors.Newf(apperrors.CodeIllegalVariableName, "variable '%s' is already defined", name)
	}
	m.vals[name] = def.Clone()
	m.order = append(m.order, name)
	return nil
}

// Clone returns a deep copy.
func (m *VarMap) Clone() *VarMap {
	c := NewVarMap()
	for _, k := range m.order {
		c.vals[k] = m.vals[k].Clone()
		c.order = append(c.order, k)
	}
	return c
}

// Values returns a copy of the map contents.
func (m *VarMap) Values() map[string]value.Value {
	out := make(map[string]value.Value, len(m.vals))
	for k, v := range m.vals {
		out[k] = v.Clone()
	}
	return out
}

const illegalNameChars = " \n\t\"'-+/*><[]{}()´–§#:;=|^$."

// ValidateName rejects empty names, names starting with a digit, and names
// containing characters that would break statement parsing.
func ValidateName(name string) error {
	if name == "" {
		return apperrors.New(apperrors.CodeIllegalVariableName, "name of variable must be longer than 0")
	}
	if name[0] >= '0' && name[0] <= '9' {
		return apperrors.Newf(apperrors.CodeIllegalVariableName, "variable names may not start with numbers (%s)", name)
	}
	if i := strings.IndexAny(name, illegalNameChars); i >= 0 {
		r := []rune(name[i:])[0]
		return apperrors.Newf(apperrors.CodeIllegalVariableName, "illegal character '%c' in variable name: '%s'", r, name)
	}
	return nil
}

// VarMapFrom rebuilds a VarMap from saved contents. Names missing from
// order are appended in sorted order.
func VarMapFrom(order []string, vals map[string]value.Value) (*VarMap, error) {
	m := NewVarMap()
	seen := make(map[string]bool, len(order))
	names := slices.Clone(order)
	var extra []string
	for _, k := range order {
		seen[k] = true
	}
	for k := range vals {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	names = append(names, extra...)
	for _, k := range names {
		v, ok := vals[k]
		if !ok {
			return nil, apperrors.Newf(apperrors.CodeNoSuchVariable, "saved variable order names '%s' but it has no value", k)
		}
		if err := m.Define(k, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

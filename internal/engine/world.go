package engine

import (
	"strings"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/script"
	"github.com/tatianab/selma/internal/value"
)

var worldFields = []string{"steps", "cast", "roles", script.VarMapName}

// Get exposes the world's leaf fields. The world itself has only "steps".
func (s *Simulation) Get(name string) (value.Value, bool) {
	if name == "steps" {
		return value.Number(float64(s.steps)), true
	}
	return value.Value{}, false
}

func (s *Simulation) Set(name string, _ value.Value) error {
	if name == "steps" {
		return apperrors.New(apperrors.CodeIllegalScope, "'steps' is read-only")
	}
	return apperrors.Newf(apperrors.CodeNoSuchVariable, "there is no variable named '%s' on world", name)
}

func (s *Simulation) Child(name string) (script.Holder, bool) {
	switch name {
	case "cast":
		return castHolder{s}, true
	case "roles":
		return roleHolder(nil), true
	case script.VarMapName:
		return s.vars, true
	}
	return nil, false
}

func (s *Simulation) Fields() []string { return append([]string(nil), worldFields...) }

func (s *Simulation) Describe() string { return "world" }

// binding is one filled role.
type binding struct {
	role string
	char *models.Character
}

// worldScope is the world as seen while a card is tested or committed: the
// "roles" child holds the card's current bindings.
type worldScope struct {
	sim   *Simulation
	roles roleHolder
}

func (s *Simulation) scope(roles []binding) worldScope {
	return worldScope{sim: s, roles: roles}
}

func (w worldScope) Get(name string) (value.Value, bool) { return w.sim.Get(name) }

func (w worldScope) Set(name string, v value.Value) error { return w.sim.Set(name, v) }

func (w worldScope) Fields() []string { return w.sim.Fields() }

func (w worldScope) Describe() string { return "world" }

func (w worldScope) Child(name string) (script.Holder, bool) {
	if name == "roles" {
		return w.roles, true
	}
	return w.sim.Child(name)
}

// CanonicalPath rewrites roles.<role>.<field> to the bound character's path.
func (w worldScope) CanonicalPath(path string) string {
	rest, ok := strings.CutPrefix(path, "roles.")
	if !ok {
		return path
	}
	role, field, ok := strings.Cut(rest, ".")
	if !ok {
		return path
	}
	for _, b := range w.roles {
		if b.role == role {
			return b.char.CanonicalPath(field)
		}
	}
	return path
}

type roleHolder []binding

func (r roleHolder) Get(string) (value.Value, bool) { return value.Value{}, false }

func (r roleHolder) Set(name string, _ value.Value) error {
	return apperrors.Newf(apperrors.CodeIllegalScope, "cannot assign to role '%s'", name)
}

func (r roleHolder) Child(name string) (script.Holder, bool) {
	for _, b := range r {
		if b.role == name {
			return b.char, true
		}
	}
	return nil, false
}

func (r roleHolder) Fields() []string {
	names := make([]string, len(r))
	for i, b := range r {
		names[i] = b.role
	}
	return names
}

func (r roleHolder) Describe() string { return "roles" }

type castHolder struct {
	sim *Simulation
}

func (c castHolder) Get(string) (value.Value, bool) { return value.Value{}, false }

func (c castHolder) Set(name string, _ value.Value) error {
	return apperrors.Newf(apperrors.CodeIllegalScope, "cannot assign to cast member '%s'", name)
}

func (c castHolder) Child(name string) (script.Holder, bool) {
	ch, ok := c.sim.cast[name]
	if !ok {
		return nil, false
	}
	return ch, true
}

func (c castHolder) Fields() []string { return c.sim.CharacterNames() }

func (c castHolder) Describe() string { return "cast" }

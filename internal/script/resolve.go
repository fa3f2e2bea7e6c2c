package script

import (
	"strings"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/value"
)

// Target is a resolved (holder, field) pair.
type Target struct {
	Holder Holder
	Name   string
}

// Value returns the current leaf value of the target.
func (t Target) Value() (value.Value, bool) {
	return t.Holder.Get(t.Name)
}

// Child returns the nested holder named by the target.
func (t Target) Child() (Holder, bool) {
	return t.Holder.Child(t.Name)
}

// Exists reports whether the target names a value or a nested holder.
func (t Target) Exists() bool {
	if _, ok := t.Holder.Get(t.Name); ok {
		return true
	}
	_, ok := t.Holder.Child(t.Name)
	return ok
}

// Resolve walks a dotted path from scope to the holder of its last segment.
// Only intermediate segments must exist; the last one is not checked.
func Resolve(scope Holder, path string) (Target, error) {
	if path == "" {
		return Target{}, apperrors.New(apperrors.CodeSyntax, "empty variable path")
	}
	head, rest, ok := strings.Cut(path, ".")
	if !ok {
		return Target{Holder: scope, Name: path}, nil
	}
	if head == "" || rest == "" {
		return Target{}, apperrors.Newf(apperrors.CodeSyntax, "malformed variable path '%s'", path)
	}
	child, ok := scope.Child(head)
	if !ok {
		return Target{}, apperrors.Newf(apperrors.CodeNoSuchVariable, "there is no variable named '%s' on %s", head, describe(scope))
	}
	return Resolve(child, rest)
}

// Lookup resolves path and returns its leaf value.
func Lookup(scope Holder, path string) (value.Value, error) {
	t, err := Resolve(scope, path)
	if err != nil {
		return value.Value{}, err
	}
	v, ok := t.Value()
	if !ok {
		if _, isHolder := t.Child(); isHolder {
			return value.Value{}, apperrors.Newf(apperrors.CodeTypeMismatch, "'%s' holds variables and cannot be used as a value", path)
		}
		return value.Value{}, apperrors.Newf(apperrors.CodeNoSuchVariable, "there is no variable named '%s' on %s", t.Name, describe(t.Holder))
	}
	return v, nil
}

// CanonicalPath rewrites path relative to scope into a global variable path.
func CanonicalPath(scope Holder, path string) string {
	if c, ok := scope.(Canonicalizer); ok {
		return c.CanonicalPath(path)
	}
	return path
}

type describer interface {
	Describe() string
}

func describe(h Holder) string {
	if d, ok := h.(describer); ok {
		return d.Describe()
	}
	if _, ok := h.(*VarMap); ok {
		return VarMapName
	}
	return "scope"
}

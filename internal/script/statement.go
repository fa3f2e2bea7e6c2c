package script

import (
	"regexp"
	"strings"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/value"
)

var statementPattern = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(.*)$`)

// Statement is one parsed line bound to its scope.
type Statement struct {
	Line    string
	Path    string
	Keyword string
	Op      Operator
	Literal value.Literal
	// Arg is the argument value with references already read. It is
	// invalid for define statements, whose argument is a name.
	Arg    value.Value
	Target Target
	// TargetKind is the kind of the current value, or KindInvalid when the
	// target is missing or is itself a holder.
	TargetKind value.Kind
	// GlobalPath identifies the touched variable for causal tracking.
	GlobalPath string
}

// ParseEffect parses line as an effect statement against scope.
func ParseEffect(scope Holder, line string) (*Statement, error) {
	return parse(scope, line, effectKeywords, conditionKeywords, "execute an effect")
}

// ParseCondition parses line as a condition statement against scope.
func ParseCondition(scope Holder, line string) (*Statement, error) {
	return parse(scope, line, conditionKeywords, effectKeywords, "evaluate a condition")
}

func parse(scope Holder, line string, table, other map[string]Operator, use string) (*Statement, error) {
	line = strings.TrimSpace(line)
	m := statementPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, apperrors.Newf(apperrors.CodeSyntax, "invalid syntax '%s'", line)
	}
	st := &Statement{Line: line, Path: m[1], Keyword: m[2]}

	op, ok := table[st.Keyword]
	if !ok {
		if _, known := other[st.Keyword]; known {
			return nil, apperrors.Newf(apperrors.CodeUnknownOperator, "operator '%s' can't be used to %s", st.Keyword, use)
		}
		return nil, apperrors.Newf(apperrors.CodeUnknownOperator, "unknown operator '%s'", st.Keyword)
	}
	st.Op = op

	target, err := Resolve(scope, st.Path)
	if err != nil {
		return nil, err
	}
	st.Target = target
	if cur, ok := target.Value(); ok {
		st.TargetKind = cur.Kind()
	}

	lit, err := value.Classify(m[3])
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSyntax, err.Error(), err)
	}
	st.Literal = lit
	switch {
	case op.takesName():
	case lit.Kind == value.LiteralReference:
		// References are read once, in the calling scope.
		v, err := Lookup(scope, lit.Raw)
		if err != nil {
			return nil, err
		}
		st.Arg = v
	default:
		st.Arg = lit.Value
	}

	st.GlobalPath = CanonicalPath(scope, st.Path)
	if st.TargetKind == value.KindList {
		st.GlobalPath += "." + st.argKey()
	}
	return st, nil
}

// argKey is the argument as it appears in a list target's global path.
func (st *Statement) argKey() string {
	if st.Literal.Kind == value.LiteralList || !st.Arg.IsValid() {
		return st.Literal.Raw
	}
	return st.Arg.String()
}

// name returns the variable name argument of a define statement.
func (st *Statement) name() string {
	if st.Literal.Kind == value.LiteralText {
		return st.Literal.Value.Str()
	}
	return st.Literal.Raw
}

func (st *Statement) mismatch(kind value.Kind) error {
	return apperrors.Newf(apperrors.CodeTypeMismatch,
		"cannot use operator '%s' on '%s' because it is of type %s", st.Keyword, st.Target.Name, kind)
}

func (st *Statement) argMismatch() error {
	return apperrors.Newf(apperrors.CodeTypeMismatch,
		"operator '%s' on '%s' cannot take a %s argument", st.Keyword, st.Target.Name, st.Arg.Kind())
}

func (st *Statement) missing() error {
	if _, ok := st.Target.Child(); ok {
		return apperrors.Newf(apperrors.CodeTypeMismatch, "'%s' holds variables and cannot be used with '%s'", st.Path, st.Keyword)
	}
	return apperrors.Newf(apperrors.CodeNoSuchVariable, "there is no variable named '%s' on %s", st.Target.Name, describe(st.Target.Holder))
}

package script

import (
	"fmt"
	"io"
	"strings"

	apperrors "github.com/tatianab/selma/internal/errors"
	"github.com/tatianab/selma/internal/value"
)

// Change records how an effect touched a global variable. Numeric changes
// carry the signed delta; other changes carry 1 if the value changed and 0
// if it did not.
type Change struct {
	Path    string
	Delta   float64
	Numeric bool
}

// Interpreter executes effects and evaluates conditions.
type Interpreter struct {
	// Output receives print statements. Nil disables printing.
	Output io.Writer
}

// NewInterpreter returns an Interpreter printing to out.
func NewInterpreter(out io.Writer) *Interpreter {
	return &Interpreter{Output: out}
}

// ExecuteEffect runs one effect line against scope. Errors carry the line.
func (in *Interpreter) ExecuteEffect(scope Holder, line string) ([]Change, error) {
	st, err := ParseEffect(scope, line)
	if err != nil {
		return nil, apperrors.WithLine(err, line)
	}
	changes, err := in.execute(scope, st)
	if err != nil {
		return nil, apperrors.WithLine(err, line)
	}
	return changes, nil
}

// EvaluateCondition tests one condition line against scope without
// mutating anything. Errors carry the line.
func (in *Interpreter) EvaluateCondition(scope Holder, line string) (bool, error) {
	st, err := ParseCondition(scope, line)
	if err != nil {
		return false, apperrors.WithLine(err, line)
	}
	ok, err := evaluate(st)
	if err != nil {
		return false, apperrors.WithLine(err, line)
	}
	return ok, nil
}

func (in *Interpreter) execute(scope Holder, st *Statement) ([]Change, error) {
	switch st.Op {
	case OpDefineNumber, OpDefineString, OpDefineList:
		return define(st)
	case OpDefineNumberOnAll, OpDefineStringOnAll, OpDefineListOnAll:
		return defineOnAll(scope, st)
	case OpPrint:
		return nil, in.print(st)
	}

	cur, ok := st.Target.Value()
	if !ok {
		return nil, st.missing()
	}
	next, err := apply(st, cur)
	if err != nil {
		return nil, err
	}
	if err := st.Target.Holder.Set(st.Target.Name, next); err != nil {
		return nil, err
	}
	return []Change{diff(st.GlobalPath, cur, next)}, nil
}

func apply(st *Statement, cur value.Value) (value.Value, error) {
	arg := st.Arg
	switch st.Op {
	case OpAssign:
		switch {
		case arg.IsNumber():
			return value.Number(arg.Float()), nil
		case arg.IsList() && (cur.IsList() || st.Literal.Kind == value.LiteralReference):
			return arg.Clone(), nil
		case arg.IsList():
			return value.Text(st.Literal.Raw), nil
		}
		return value.Text(arg.String()), nil

	case OpAppend, OpRemove:
		if !cur.IsList() {
			return cur, st.mismatch(cur.Kind())
		}
		if arg.IsList() {
			return cur, st.argMismatch()
		}
		if st.Op == OpAppend {
			return cur.Append(arg.String()), nil
		}
		return cur.Remove(arg.String()), nil

	case OpAppendList, OpRemoveMany:
		if !cur.IsList() {
			return cur, st.mismatch(cur.Kind())
		}
		if !arg.IsList() {
			return cur, st.argMismatch()
		}
		if st.Op == OpAppendList {
			return cur.Append(arg.Items()...), nil
		}
		next := cur
		for _, item := range arg.Items() {
			next = next.Remove(item)
		}
		return next, nil

	case OpAddTo:
		switch {
		case cur.IsText() && !arg.IsList():
			return value.Text(cur.Str() + arg.String()), nil
		case cur.IsNumber() && arg.IsNumber():
			return value.Number(cur.Float() + arg.Float()), nil
		case cur.IsNumber() || cur.IsText():
			return cur, st.argMismatch()
		}
		return cur, st.mismatch(cur.Kind())

	case OpSubtract, OpMultiply, OpDivide:
		if !cur.IsNumber() {
			return cur, st.mismatch(cur.Kind())
		}
		if !arg.IsNumber() {
			return cur, st.argMismatch()
		}
		switch st.Op {
		case OpSubtract:
			return value.Number(cur.Float() - arg.Float()), nil
		case OpMultiply:
			return value.Number(cur.Float() * arg.Float()), nil
		}
		if arg.Float() == 0 {
			return cur, apperrors.Newf(apperrors.CodeArithmetic, "division by zero on '%s'", st.Target.Name)
		}
		return value.Number(cur.Float() / arg.Float()), nil
	}
	return cur, apperrors.Newf(apperrors.CodeUnknownOperator, "operator '%s' can't be used to execute an effect", st.Keyword)
}

func diff(path string, before, after value.Value) Change {
	if before.IsNumber() && after.IsNumber() {
		return Change{Path: path, Delta: after.Float() - before.Float(), Numeric: true}
	}
	if before.Equal(after) {
		return Change{Path: path}
	}
	return Change{Path: path, Delta: 1}
}

func (in *Interpreter) print(st *Statement) error {
	cur, ok := st.Target.Value()
	if !ok {
		return st.missing()
	}
	if in.Output == nil {
		return nil
	}
	text := st.Arg.String()
	if text == "" {
		text = "$"
	}
	_, err := fmt.Fprintln(in.Output, strings.ReplaceAll(text, "$", cur.String()))
	return err
}

func defaultFor(op Operator) value.Value {
	switch op {
	case OpDefineString, OpDefineStringOnAll:
		return value.Text("")
	case OpDefineList, OpDefineListOnAll:
		return value.List()
	}
	return value.Number(0)
}

func define(st *Statement) ([]Change, error) {
	name := st.name()
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	child, ok := st.Target.Child()
	vars, isVars := child.(*VarMap)
	if !ok || !isVars || st.Target.Name != VarMapName {
		if !st.Target.Exists() {
			return nil, st.missing()
		}
		return nil, apperrors.Newf(apperrors.CodeIllegalScope,
			"you can only create custom variables in the 'var' maps (you tried '%s')", st.Path)
	}
	if err := vars.Define(name, defaultFor(st.Op)); err != nil {
		return nil, err
	}
	return []Change{{Path: st.GlobalPath + "." + name, Delta: 1}}, nil
}

func defineOnAll(scope Holder, st *Statement) ([]Change, error) {
	name := st.name()
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	group, ok := st.Target.Child()
	if !ok {
		if cur, isValue := st.Target.Value(); isValue {
			return nil, st.mismatch(cur.Kind())
		}
		return nil, st.missing()
	}
	if _, isVars := group.(*VarMap); isVars {
		return nil, apperrors.Newf(apperrors.CodeIllegalScope,
			"cannot create variables on '%s' because its members have no variable field", st.Path)
	}
	var changes []Change
	for _, field := range group.Fields() {
		member, ok := group.Child(field)
		var vars *VarMap
		if ok {
			h, _ := member.Child(VarMapName)
			vars, _ = h.(*VarMap)
		}
		if vars == nil {
			return changes, apperrors.Newf(apperrors.CodeIllegalScope,
				"cannot create variables on '%s' because its members have no variable field", st.Path)
		}
		if err := vars.Define(name, defaultFor(st.Op)); err != nil {
			return changes, err
		}
		path := strings.Join([]string{st.Path, field, VarMapName, name}, ".")
		changes = append(changes, Change{Path: CanonicalPath(scope, path), Delta: 1})
	}
	return changes, nil
}

func evaluate(st *Statement) (bool, error) {
	cur, ok := st.Target.Value()
	if !ok {
		if _, isHolder := st.Target.Child(); !isHolder {
			switch st.Op {
			case OpEquals:
				return false, nil
			case OpNotEquals:
				return true, nil
			}
		}
		return false, st.missing()
	}

	arg := st.Arg
	switch st.Op {
	case OpEquals, OpNotEquals:
		if cur.Kind() != arg.Kind() {
			if cur.IsList() {
				return false, st.argMismatch()
			}
			return false, st.mismatch(cur.Kind())
		}
		return cur.Equal(arg) == (st.Op == OpEquals), nil

	case OpGreater, OpLesser, OpGreaterOrEqual, OpLesserOrEqual:
		if !cur.IsNumber() {
			return false, st.mismatch(cur.Kind())
		}
		if !arg.IsNumber() {
			return false, st.argMismatch()
		}
		a, b := cur.Float(), arg.Float()
		switch st.Op {
		case OpGreater:
			return a > b, nil
		case OpLesser:
			return a < b, nil
		case OpGreaterOrEqual:
			return a >= b, nil
		}
		return a <= b, nil

	case OpContains, OpNotContains:
		if !cur.IsList() {
			return false, st.mismatch(cur.Kind())
		}
		if arg.IsList() {
			return false, st.argMismatch()
		}
		return cur.Contains(arg.String()) == (st.Op == OpContains), nil
	}
	return false, apperrors.Newf(apperrors.CodeUnknownOperator, "operator '%s' can't be used to evaluate a condition", st.Keyword)
}

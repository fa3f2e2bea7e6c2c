// Package value implements the tagged runtime values manipulated by story
// statements: numbers, text and ordered lists of text.
package value

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tags a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindText
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a number, a text or a list of texts. The zero Value is invalid.
type Value struct {
	kind Kind
	num  float64
	text string
	list []string
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Text returns a text Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// List returns a list Value holding a copy of items.
func List(items ...string) Value {
	l := make([]string, len(items))
	copy(l, items)
	return Value{kind: KindList, list: l}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsValid() bool   { return v.kind != KindInvalid }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsText() bool    { return v.kind == KindText }
func (v Value) IsList() bool    { return v.kind == KindList }
func (v Value) Float() float64  { return v.num }
func (v Value) Str() string     { return v.text }
func (v Value) Len() int        { return len(v.list) }
func (v Value) Items() []string { return slices.Clone(v.list) }

// Contains reports whether a list Value holds item.
func (v Value) Contains(item string) bool {
	return slices.Contains(v.list, item)
}

// Append returns a list Value with items appended.
func (v Value) Append(items ...string) Value {
	l := make([]string, 0, len(v.list)+len(items))
	l = append(l, v.list...)
	l = append(l, items...)
	return Value{kind: KindList, list: l}
}

// Remove returns a list Value without the first occurrence of item.
func (v Value) Remove(item string) Value {
	l := slices.Clone(v.list)
	if i := slices.Index(l, item); i >= 0 {
		l = slices.Delete(l, i, i+1)
	}
	return Value{kind: KindList, list: l}
}

// Clone returns a Value that shares no memory with v.
func (v Value) Clone() Value {
	if v.kind == KindList {
		return List(v.list...)
	}
	return v
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindList:
		return slices.Equal(v.list, o.list)
	}
	return true
}

// String renders the value the way print statements show it.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	case KindList:
		quoted := make([]string, len(v.list))
		for i, s := range v.list {
			quoted[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	}
	return "<invalid>"
}

// GoString is used by %#v in test failures.
func (v Value) GoString() string {
	return fmt.Sprintf("value.%s(%s)", v.kind, v.String())
}

// FormatNumber renders f without a trailing fraction when it is integral.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalYAML encodes the value as a plain scalar or sequence.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindText:
		return v.text, nil
	case KindList:
		if v.list == nil {
			return []string{}, nil
		}
		return v.list, nil
	}
	return nil, nil
}

// UnmarshalYAML decodes a scalar or sequence written by MarshalYAML.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var x any
	if err := node.Decode(&x); err != nil {
		return err
	}
	out, err := FromAny(x)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = out
	return nil
}

// FromAny converts a decoded YAML/JSON scalar or sequence into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case string:
		return Text(t), nil
	case []string:
		return List(t...), nil
	case []any:
		items := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return Value{}, fmt.Errorf("list element %d is %T, not a string", i, e)
			}
			items[i] = s
		}
		return List(items...), nil
	}
	return Value{}, fmt.Errorf("cannot convert %T to a value", x)
}

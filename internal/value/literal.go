package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LiteralKind classifies a raw argument token.
type LiteralKind int

const (
	LiteralNumber LiteralKind = iota + 1
	LiteralList
	LiteralText
	LiteralReference
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralNumber:
		return "number"
	case LiteralList:
		return "literal-list"
	case LiteralText:
		return "text"
	case LiteralReference:
		return "reference"
	}
	return "invalid"
}

var (
	numberPattern     = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	listPattern       = regexp.MustCompile(`^\[".*"\]$`)
	doubleQuotedToken = regexp.MustCompile(`^"[^"]*"$`)
	singleQuotedToken = regexp.MustCompile(`^'[^']*'$`)
)

// Literal is a classified argument token. Value is set for every kind but
// LiteralReference, whose Raw text is a dotted path.
type Literal struct {
	Kind  LiteralKind
	Raw   string
	Value Value
}

// Classify types a raw argument token. The checks run in order: number,
// bracketed list, quoted text, and anything else is a reference.
func Classify(raw string) (Literal, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case numberPattern.MatchString(raw):
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Literal{}, fmt.Errorf("parse number %q: %w", raw, err)
		}
		return Literal{Kind: LiteralNumber, Raw: raw, Value: Number(f)}, nil
	case listPattern.MatchString(raw):
		items, err := ParseList(raw)
		if err != nil {
			return Literal{}, err
		}
		return Literal{Kind: LiteralList, Raw: raw, Value: List(items...)}, nil
	case doubleQuotedToken.MatchString(raw), singleQuotedToken.MatchString(raw):
		return Literal{Kind: LiteralText, Raw: raw, Value: Text(raw[1 : len(raw)-1])}, nil
	}
	return Literal{Kind: LiteralReference, Raw: raw}, nil
}

// ParseList parses a bracketed list of quoted strings such as ["a", 'b'].
func ParseList(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("cannot parse %q as a list", raw)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	items := []string{}
	for s != "" {
		q := s[0]
		if q != '"' && q != '\'' {
			return nil, fmt.Errorf("cannot parse %q as a list: expected a quoted element at %q", raw, s)
		}
		end := strings.IndexByte(s[1:], q)
		if end < 0 {
			return nil, fmt.Errorf("cannot parse %q as a list: unterminated element", raw)
		}
		items = append(items, s[1:end+1])
		s = strings.TrimSpace(s[end+2:])
		if s == "" {
			break
		}
		if s[0] != ',' {
			return nil, fmt.Errorf("cannot parse %q as a list: expected ',' at %q", raw, s)
		}
		s = strings.TrimSpace(s[1:])
		if s == "" {
			return nil, fmt.Errorf("cannot parse %q as a list: trailing ','", raw)
		}
	}
	return items, nil
}

// Package causal weighs which logged events enabled a new one.
//
// Every condition that gated an event names a global variable path. Prior
// events that modified the path in the direction the condition needs are
// candidate causes; their weights are normalised per path and spread evenly
// across all gating paths, so an event's causes sum to at most one.
package causal

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/script"
	"github.com/tatianab/selma/internal/value"
)

// MaxCauses caps the causes kept per event.
const MaxCauses = 4

// Rule decides which past modifications of a path count as causes.
type Rule int

const (
	// RuleLatest credits only the most recent modification.
	RuleLatest Rule = iota
	// RuleIncrease credits every modification with a delta >= 0.
	RuleIncrease
	// RuleDecrease credits every modification with a delta <= 0.
	RuleDecrease
	// RuleRange credits every modification. A path bounded from both sides
	// gets it.
	RuleRange
)

func (r Rule) String() string {
	switch r {
	case RuleIncrease:
		return "increase"
	case RuleDecrease:
		return "decrease"
	case RuleRange:
		return "range"
	}
	return "latest"
}

// Gate is a variable path that gated an event and how it is credited.
type Gate struct {
	Path string
	Rule Rule
}

// RuleFor picks the rule for a condition operator on a target of kind.
func RuleFor(op script.Operator, kind value.Kind) Rule {
	if op.IsEquality() || kind == value.KindText || kind == value.KindList {
		return RuleLatest
	}
	switch {
	case op.IsLowerBound():
		return RuleIncrease
	case op.IsUpperBound():
		return RuleDecrease
	}
	return RuleLatest
}

// Dedupe keeps one gate per path in first-seen order, merging the rules of
// repeated paths.
func Dedupe(gates []Gate) []Gate {
	index := make(map[string]int, len(gates))
	out := make([]Gate, 0, len(gates))
	for _, g := range gates {
		if i, ok := index[g.Path]; ok {
			out[i].Rule = merge(out[i].Rule, g.Rule)
			continue
		}
		index[g.Path] = len(out)
		out = append(out, g)
	}
	return out
}

// merge combines two rules gating the same path. An equality pins the value,
// so RuleLatest wins; opposite bounds widen to RuleRange.
func merge(a, b Rule) Rule {
	switch {
	case a == b:
		return a
	case a == RuleLatest || b == RuleLatest:
		return RuleLatest
	}
	return RuleRange
}

type credit struct {
	id     int
	weight float64
}

// Attribute returns up to MaxCauses causes for an event gated by gates,
// sorted by descending weight. history must be in log order.
func Attribute(history []models.Event, gates []Gate) []models.Cause {
	gates = Dedupe(gates)
	if len(gates) == 0 {
		return nil
	}
	share := 1 / float64(len(gates))

	total := make(map[int]float64)
	var order []int
	for _, g := range gates {
		raw := scan(history, g)
		var sum float64
		for _, c := range raw {
			sum += c.weight
		}
		if sum == 0 {
			continue
		}
		for _, c := range raw {
			if _, ok := total[c.id]; !ok {
				order = append(order, c.id)
			}
			total[c.id] += c.weight / sum * share
		}
	}

	causes := make([]models.Cause, 0, len(order))
	for _, id := range order {
		if w := total[id]; w > 0 {
			causes = append(causes, models.Cause{EventID: id, Weight: w})
		}
	}
	sort.SliceStable(causes, func(i, j int) bool {
		if causes[i].Weight != causes[j].Weight {
			return causes[i].Weight > causes[j].Weight
		}
		return causes[i].EventID > causes[j].EventID
	})
	if len(causes) > MaxCauses {
		causes = causes[:MaxCauses]
	}
	if len(causes) == 0 {
		return nil
	}
	return causes
}

// scan walks history from the most recent event and collects raw credits.
func scan(history []models.Event, g Gate) []credit {
	var raw []credit
	for i := len(history) - 1; i >= 0; i-- {
		ev := &history[i]
		d, ok := ev.Touches(g.Path)
		if !ok {
			continue
		}
		switch g.Rule {
		case RuleLatest:
			return []credit{{id: ev.ID, weight: 1}}
		case RuleIncrease:
			if d >= 0 {
				raw = append(raw, credit{id: ev.ID, weight: math.Abs(d)})
			}
		case RuleDecrease:
			if d <= 0 {
				raw = append(raw, credit{id: ev.ID, weight: math.Abs(d)})
			}
		case RuleRange:
			raw = append(raw, credit{id: ev.ID, weight: math.Abs(d)})
		}
	}
	return raw
}

// Node is one event in a causal tree.
type Node struct {
	Event  models.Event
	Weight float64
	Causes []Node
}

// Explain builds the causal tree of the event with id, following causes up
// to depth levels. Event IDs index history.
func Explain(history []models.Event, id, depth int) (Node, error) {
	if id < 0 || id >= len(history) {
		return Node{}, fmt.Errorf("no event with id %d", id)
	}
	return explain(history, id, 1, depth), nil
}

func explain(history []models.Event, id int, weight float64, depth int) Node {
	n := Node{Event: history[id], Weight: weight}
	if depth <= 0 {
		return n
	}
	for _, c := range history[id].CausingEvents {
		if c.EventID < 0 || c.EventID >= id {
			continue
		}
		n.Causes = append(n.Causes, explain(history, c.EventID, c.Weight, depth-1))
	}
	return n
}

// Format renders the tree one event per line, children indented under the
// event they enabled.
func (n Node) Format() string {
	var b strings.Builder
	n.format(&b, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func (n Node) format(b *strings.Builder, level int) {
	b.WriteString(strings.Repeat("  ", level))
	if level > 0 {
		fmt.Fprintf(b, "<- %.2f ", n.Weight)
	}
	text := n.Event.Text
	if text == "" {
		text = "#" + n.Event.CardName + "#"
	}
	fmt.Fprintf(b, "[%d] %s\n", n.Event.ID, text)
	for _, c := range n.Causes {
		c.format(b, level+1)
	}
}

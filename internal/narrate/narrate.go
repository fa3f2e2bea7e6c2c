// Package narrate turns simulation events into prose.
package narrate

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/value"
)

// Narrator renders one event given its causes, strongest first.
type Narrator interface {
	Narrate(ctx context.Context, ev models.Event, causes []Cause) (string, error)
}

// Cause is a causing event with the weight it was credited.
type Cause struct {
	models.Event
	Weight float64
}

// Template narrates with the text the card rendered for the event.
type Template struct{}

func (Template) Narrate(_ context.Context, ev models.Event, causes []Cause) (string, error) {
	if len(causes) == 0 {
		return ev.Text, nil
	}
	names := make([]string, len(causes))
	for i, c := range causes {
		names[i] = c.Text
	}
	return fmt.Sprintf("%s (after %s)", ev.Text, strings.Join(names, ", ")), nil
}

// Causes looks up the causing events of ev in history. IDs missing from
// history are skipped.
func Causes(history []models.Event, ev models.Event) []Cause {
	var out []Cause
	for _, c := range ev.CausingEvents {
		if c.EventID >= 0 && c.EventID < len(history) {
			out = append(out, Cause{Event: history[c.EventID], Weight: c.Weight})
		}
	}
	return out
}

// describeChanges lists values_modified as "path +delta" lines, sorted by path.
func describeChanges(mods map[string]float64) []string {
	paths := make([]string, 0, len(mods))
	for p := range mods {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	out := make([]string, len(paths))
	for i, p := range paths {
		d := mods[p]
		sign := "+"
		if d < 0 {
			sign = ""
		}
		out[i] = fmt.Sprintf("%s %s%s", p, sign, value.FormatNumber(d))
	}
	return out
}

package causal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/script"
	"github.com/tatianab/selma/internal/value"
)

func history(mods ...map[string]float64) []models.Event {
	out := make([]models.Event, len(mods))
	for i, m := range mods {
		out[i] = models.Event{ID: i, CardName: "c", ValuesModified: m}
	}
	return out
}

func sum(causes []models.Cause) float64 {
	var s float64
	for _, c := range causes {
		s += c.Weight
	}
	return s
}

func TestNoGatesNoCauses(t *testing.T) {
	h := history(map[string]float64{"x": 1})
	assert.Empty(t, Attribute(h, nil))
}

func TestLatestOnlyCreditsMostRecent(t *testing.T) {
	h := history(
		map[string]float64{"var.season": 1},
		map[string]float64{"var.other": 1},
		map[string]float64{"var.season": 1},
	)
	causes := Attribute(h, []Gate{{Path: "var.season", Rule: RuleLatest}})
	require.Len(t, causes, 1)
	assert.Equal(t, models.Cause{EventID: 2, Weight: 1}, causes[0])
}

func TestIncreaseAccumulatesByDelta(t *testing.T) {
	h := history(
		map[string]float64{"cast.Anna.happiness": 3},
		map[string]float64{"cast.Anna.happiness": -2},
		map[string]float64{"cast.Anna.happiness": 1},
	)
	causes := Attribute(h, []Gate{{Path: "cast.Anna.happiness", Rule: RuleIncrease}})
	require.Len(t, causes, 2)
	assert.Equal(t, 0, causes[0].EventID)
	assert.InDelta(t, 0.75, causes[0].Weight, 1e-9)
	assert.Equal(t, 2, causes[1].EventID)
	assert.InDelta(t, 0.25, causes[1].Weight, 1e-9)
}

func TestDecreaseOnlyCountsNonPositiveDeltas(t *testing.T) {
	h := history(
		map[string]float64{"x": 3},
		map[string]float64{"x": -4},
	)
	causes := Attribute(h, []Gate{{Path: "x", Rule: RuleDecrease}})
	require.Len(t, causes, 1)
	assert.Equal(t, models.Cause{EventID: 1, Weight: 1}, causes[0])
}

func TestWeightsSpreadAcrossPaths(t *testing.T) {
	h := history(
		map[string]float64{"a": 1},
		map[string]float64{"b": 1},
	)
	causes := Attribute(h, []Gate{
		{Path: "a", Rule: RuleLatest},
		{Path: "b", Rule: RuleLatest},
		{Path: "c", Rule: RuleLatest},
	})
	require.Len(t, causes, 2)
	for _, c := range causes {
		assert.InDelta(t, 1.0/3, c.Weight, 1e-9)
	}
	assert.Equal(t, 1, causes[0].EventID, "ties break toward the more recent event")
	assert.LessOrEqual(t, sum(causes), 1.0)
}

func TestCapsAtMaxCausesSortedDescending(t *testing.T) {
	var mods []map[string]float64
	for i := 1; i <= 6; i++ {
		mods = append(mods, map[string]float64{"x": float64(i)})
	}
	causes := Attribute(history(mods...), []Gate{{Path: "x", Rule: RuleIncrease}})
	require.Len(t, causes, MaxCauses)
	for i := 1; i < len(causes); i++ {
		assert.GreaterOrEqual(t, causes[i-1].Weight, causes[i].Weight)
	}
	assert.Equal(t, 5, causes[0].EventID)
	assert.LessOrEqual(t, sum(causes), 1.0+1e-9)
}

func TestDuplicateGatePathsCountOnce(t *testing.T) {
	h := history(map[string]float64{"x": 1})
	causes := Attribute(h, []Gate{{Path: "x", Rule: RuleLatest}, {Path: "x", Rule: RuleIncrease}})
	require.Len(t, causes, 1)
	assert.Equal(t, 1.0, causes[0].Weight)
}

func TestOppositeBoundsOnOnePathCreditBothDirections(t *testing.T) {
	h := history(
		map[string]float64{"trust": 3},
		map[string]float64{"trust": -1},
	)
	gates := Dedupe([]Gate{{Path: "trust", Rule: RuleIncrease}, {Path: "trust", Rule: RuleDecrease}})
	require.Equal(t, []Gate{{Path: "trust", Rule: RuleRange}}, gates)

	causes := Attribute(h, gates)
	require.Len(t, causes, 2)
	assert.Equal(t, models.Cause{EventID: 0, Weight: 0.75}, causes[0])
	assert.Equal(t, models.Cause{EventID: 1, Weight: 0.25}, causes[1])
}

func TestMergeRules(t *testing.T) {
	assert.Equal(t, RuleIncrease, merge(RuleIncrease, RuleIncrease))
	assert.Equal(t, RuleLatest, merge(RuleIncrease, RuleLatest))
	assert.Equal(t, RuleLatest, merge(RuleRange, RuleLatest))
	assert.Equal(t, RuleRange, merge(RuleDecrease, RuleIncrease))
	assert.Equal(t, RuleRange, merge(RuleRange, RuleDecrease))
}

func TestRuleFor(t *testing.T) {
	assert.Equal(t, RuleLatest, RuleFor(script.OpEquals, value.KindNumber))
	assert.Equal(t, RuleLatest, RuleFor(script.OpGreater, value.KindText))
	assert.Equal(t, RuleLatest, RuleFor(script.OpContains, value.KindList))
	assert.Equal(t, RuleIncrease, RuleFor(script.OpGreaterOrEqual, value.KindNumber))
	assert.Equal(t, RuleDecrease, RuleFor(script.OpLesser, value.KindNumber))
}

func TestExplain(t *testing.T) {
	h := history(
		map[string]float64{"a": 1},
		map[string]float64{"b": 1},
		map[string]float64{"c": 1},
	)
	h[1].CausingEvents = []models.Cause{{EventID: 0, Weight: 1}}
	h[2].CausingEvents = []models.Cause{{EventID: 1, Weight: 0.5}}

	root, err := Explain(h, 2, 5)
	require.NoError(t, err)
	require.Len(t, root.Causes, 1)
	assert.Equal(t, 1, root.Causes[0].Event.ID)
	assert.Equal(t, 0.5, root.Causes[0].Weight)
	require.Len(t, root.Causes[0].Causes, 1)
	assert.Equal(t, 0, root.Causes[0].Causes[0].Event.ID)

	shallow, err := Explain(h, 2, 1)
	require.NoError(t, err)
	assert.Empty(t, shallow.Causes[0].Causes)

	_, err = Explain(h, 7, 1)
	assert.Error(t, err)
}

func TestNodeFormat(t *testing.T) {
	h := history(
		map[string]float64{"a": 1},
		map[string]float64{"b": 1},
		map[string]float64{"c": 1},
	)
	h[1].Text = "Anna hugs Bo"
	h[1].CausingEvents = []models.Cause{{EventID: 0, Weight: 1}}
	h[2].CausingEvents = []models.Cause{{EventID: 1, Weight: 0.5}}

	root, err := Explain(h, 2, 5)
	require.NoError(t, err)
	want := "[2] #c#\n" +
		"  <- 0.50 [1] Anna hugs Bo\n" +
		"    <- 1.00 [0] #c#"
	assert.Equal(t, want, root.Format())
}

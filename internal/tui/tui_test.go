package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/selma/internal/engine"
	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/narrate"
	"github.com/tatianab/selma/internal/persistence"
)

func key(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, cards ...models.EventCard) model {
	t.Helper()
	sim := engine.New(engine.Options{Seed: 3})
	require.NoError(t, sim.RegisterCharacter(models.CharacterDef{Name: "Anna", Inventory: []string{"bread"}}))
	for _, c := range cards {
		require.NoError(t, sim.RegisterCard(c))
	}
	m := NewModel(sim, narrate.Template{}, Session{Title: "village", RunID: "run-1", SaveDir: t.TempDir()})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(model)
}

// press sends a key and feeds the command's result back into the model.
func press(t *testing.T, m model, k string) model {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(model)
	require.Equal(t, stateBusy, m.state)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	return next.(model)
}

func TestStepAppendsNarration(t *testing.T) {
	m := newTestModel(t, models.EventCard{Name: "gift"})

	m = press(t, m, "enter")
	assert.Equal(t, stateIdle, m.state)
	assert.False(t, m.failed)
	assert.Contains(t, m.storyLog, "[0] #gift#")
	assert.Equal(t, 1, m.sim.Steps())

	m = press(t, m, "t")
	assert.Equal(t, 1+burstSteps, m.sim.Steps())
	assert.Contains(t, m.storyLog, "[10] #gift#")
}

func TestKeysIgnoredWhileBusy(t *testing.T) {
	m := newTestModel(t, models.EventCard{Name: "gift"})
	next, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)

	_, again := next.(model).Update(key("enter"))
	assert.Nil(t, again)
}

func TestStepErrorShownInStatus(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "enter")
	assert.True(t, m.failed)
	assert.Contains(t, m.status, "no cards to draw")
	assert.Equal(t, stateIdle, m.state)
}

func TestExplainShowsCausalTree(t *testing.T) {
	m := newTestModel(t, models.EventCard{Name: "gift"})
	m = press(t, m, "w")
	assert.True(t, m.failed)

	m = press(t, m, "enter")
	m = press(t, m, "w")
	assert.False(t, m.failed)
	assert.Equal(t, "Why the last event happened.", m.status)
}

func TestSaveWritesSnapshot(t *testing.T) {
	m := newTestModel(t, models.EventCard{Name: "gift"})
	m = press(t, m, "enter")
	m = press(t, m, "s")
	require.False(t, m.failed, m.status)
	assert.Contains(t, m.status, "step-1")

	names, err := persistence.ListSnapshots(m.session.SaveDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"step-1"}, names)

	snap, err := persistence.LoadSnapshot(m.session.SaveDir, "step-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", snap.RunID)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestViewShowsCastAndQueue(t *testing.T) {
	m := newTestModel(t, models.EventCard{Name: "gift"})
	m = press(t, m, "enter")
	view := m.View()
	assert.Contains(t, view, "Anna")
	assert.Contains(t, view, "bread")
	assert.Contains(t, view, "Steps: 1")
}

func TestViewUsesPanelCachedBeforeStep(t *testing.T) {
	m := newTestModel(t, models.EventCard{Name: "gift"})
	next, cmd := m.Update(key("t"))
	busy := next.(model)
	require.NotNil(t, cmd)

	done := make(chan tea.Msg)
	go func() { done <- cmd() }()
	for range 200 {
		assert.Contains(t, busy.View(), "Steps: 0")
	}
	next, _ = busy.Update(<-done)
	assert.Contains(t, next.(model).View(), "Steps: 10")
}

func TestFormatQueue(t *testing.T) {
	assert.Equal(t, "(empty)", formatQueue(nil))
	assert.Equal(t, "* hug *", formatQueue([]string{"", "hug", ""}))
}

package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/selma/internal/engine"
	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/narrate"
	"github.com/tatianab/selma/internal/persistence"
)

const (
	burstSteps   = 10
	explainDepth = 3
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateBusy
)

// Session is what the viewer needs besides the simulation.
type Session struct {
	Title   string
	RunID   string
	SaveDir string
}

type model struct {
	state    sessionState
	sim      *engine.Simulation
	narrator narrate.Narrator
	session  Session
	viewport viewport.Model
	ready    bool
	storyLog string
	// panel is the side panel text, rebuilt in Update only while no
	// command holds the simulation.
	panel    string
	status   string
	failed   bool
	width    int
	height   int
}

var (
	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	whyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			PaddingLeft(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func NewModel(sim *engine.Simulation, narrator narrate.Narrator, session Session) model {
	if narrator == nil {
		narrator = narrate.Template{}
	}
	m := model{
		sim:      sim,
		narrator: narrator,
		session:  session,
		status:   "Press enter to run the first step.",
	}
	m.panel = m.describe()
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

type steppedMsg struct {
	passages []string
	err      error
}

type explainedMsg struct {
	tree string
	err  error
}

type savedMsg struct {
	name string
	err  error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
		if m.state == stateBusy {
			return m, nil
		}
		switch msg.String() {
		case "enter", "n":
			m.state = stateBusy
			return m, m.step(1)
		case "t":
			m.state = stateBusy
			return m, m.step(burstSteps)
		case "w":
			m.state = stateBusy
			return m, m.explain()
		case "s":
			m.state = stateBusy
			return m, m.save()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logWidth := int(float64(msg.Width) * 0.7)
		if !m.ready {
			m.viewport = viewport.New(logWidth, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = logWidth
			m.viewport.Height = msg.Height - 6
		}
		m.viewport.SetContent(m.storyLog)

	case steppedMsg:
		m.state = stateIdle
		for _, p := range msg.passages {
			m.appendLog(stepStyle.Width(m.viewport.Width).Render(p))
		}
		m.panel = m.describe()
		m.setStatus(fmt.Sprintf("Step %d.", m.sim.Steps()), msg.err)
		return m, nil

	case explainedMsg:
		m.state = stateIdle
		if msg.err == nil {
			m.appendLog(whyStyle.Width(m.viewport.Width).Render(msg.tree))
		}
		m.setStatus("Why the last event happened.", msg.err)
		return m, nil

	case savedMsg:
		m.state = stateIdle
		m.setStatus("Saved as "+msg.name+".", msg.err)
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *model) appendLog(s string) {
	if m.storyLog != "" {
		m.storyLog += "\n\n"
	}
	m.storyLog += s
	m.viewport.SetContent(m.storyLog)
	m.viewport.GotoBottom()
}

func (m *model) setStatus(ok string, err error) {
	m.failed = err != nil
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = ok
}

func (m model) View() string {
	if !m.ready {
		return "\n  Loading...\n"
	}

	mainView := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		m.renderState(),
	)

	status := m.status
	if m.state == stateBusy {
		status = "Working..."
	}
	if m.failed {
		status = errorStyle.Render(status)
	}
	help := helpStyle.Render("enter: step  t: ten steps  w: why  s: save  q: quit")

	return "\n" + lipgloss.JoinVertical(lipgloss.Left,
		mainView,
		"\n"+status,
		help,
	) + "\n"
}

func (m model) renderState() string {
	stateWidth := int(float64(m.width) * 0.27)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(m.panel)
}

// describe reads the simulation for the side panel. It must not run while a
// step, explain or save command is in flight.
func (m model) describe() string {
	var b strings.Builder

	title := m.session.Title
	if title == "" {
		title = "STORY"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	fmt.Fprintf(&b, "Steps: %d\n", m.sim.Steps())
	fmt.Fprintf(&b, "Queue: %s\n\n", formatQueue(m.sim.Queue()))

	if vars, ok := m.sim.Child("var"); ok && len(vars.Fields()) > 0 {
		b.WriteString(titleStyle.Render("WORLD") + "\n")
		for _, name := range vars.Fields() {
			v, _ := vars.Get(name)
			fmt.Fprintf(&b, "%s: %s\n", name, v)
		}
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("CAST") + "\n")
	names := m.sim.CharacterNames()
	if len(names) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, name := range names {
		c, err := m.sim.Character(name)
		if err != nil {
			continue
		}
		b.WriteString(formatCharacter(c.State()) + "\n")
	}
	return b.String()
}

func formatQueue(queue []string) string {
	if len(queue) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(queue))
	for i, q := range queue {
		if q == "" {
			q = "*"
		}
		parts[i] = q
	}
	return strings.Join(parts, " ")
}

func formatCharacter(c models.CharacterState) string {
	line := fmt.Sprintf("%s (%s, %+g)", c.Name, c.Mood, c.Happiness)
	if len(c.Inventory) > 0 {
		line += "\n  carries " + strings.Join(c.Inventory, ", ")
	}
	return line
}

func (m model) step(n int) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var passages []string
		for range n {
			ev, err := m.sim.Step()
			if err != nil {
				return steppedMsg{passages, err}
			}
			text, err := m.narrator.Narrate(ctx, ev, narrate.Causes(m.sim.Events(), ev))
			if err != nil {
				slog.Warn("narration failed", "event", ev.ID, "error", err)
				text = ev.Text
			}
			passages = append(passages, fmt.Sprintf("[%d] %s", ev.ID, text))
		}
		return steppedMsg{passages: passages}
	}
}

func (m model) explain() tea.Cmd {
	return func() tea.Msg {
		ev, ok := m.sim.LastEvent()
		if !ok {
			return explainedMsg{err: fmt.Errorf("nothing has happened yet")}
		}
		node, err := m.sim.Explain(ev.ID, explainDepth)
		if err != nil {
			return explainedMsg{err: err}
		}
		return explainedMsg{tree: node.Format()}
	}
}

func (m model) save() tea.Cmd {
	return func() tea.Msg {
		name := fmt.Sprintf("step-%d", m.sim.Steps())
		snap, err := m.sim.Snapshot()
		if err != nil {
			return savedMsg{name, err}
		}
		snap.RunID = m.session.RunID
		return savedMsg{name, persistence.SaveSnapshot(m.session.SaveDir, name, snap)}
	}
}

// Run shows the simulation until the user quits.
func Run(sim *engine.Simulation, narrator narrate.Narrator, session Session) error {
	p := tea.NewProgram(NewModel(sim, narrator, session), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"squish/internal/pipeline"
)

// Model drains pipeline progress events into a single step/percent display.
type Model struct {
	events   <-chan pipeline.ProgressEvent
	started  time.Time
	width    int
	step     pipeline.Step
	value    int
	quitting bool
}

type doneMsg struct{}

type eventMsg pipeline.ProgressEvent

func NewModel(events <-chan pipeline.ProgressEvent) Model {
	return Model{events: events, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForEvents(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.step = msg.Step
		if msg.Value > m.value {
			m.value = msg.Value
		}
		return m, listenForEvents(m.events)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	bar := renderBar(barWidth, float64(m.value)/100.0)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("squish 🗜"),
		labelStyle.Render(fmt.Sprintf("Step: %s", m.step)) + dimStyle.Render(fmt.Sprintf("  %d%%", m.value)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	}

	return strings.Join(lines, "\n")
}

func listenForEvents(events <-chan pipeline.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(event)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
)

// Package tui is the terminal front end: a bubbletea program showing the
// gauge as a progress bar with the time breakdown underneath.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/goodtune/daygauge/internal/display"
	"github.com/goodtune/daygauge/internal/submit"
	"github.com/goodtune/daygauge/internal/window"
	"github.com/jonboulle/clockwork"
)

const (
	defaultWidth  = 80
	minBarWidth   = 20
	maxBarWidth   = 96
	submitTimeout = 10 * time.Second

	// ClockLayout is the live clock in the header.
	ClockLayout = "3:04:05 PM"
)

// SubmitFunc stores a start time for the signed-in owner.
type SubmitFunc func(ctx context.Context, candidate string) error

type submittedMsg struct {
	candidate string
	err       error
}

var placeholders = map[display.State]string{
	display.StateUnauthenticated: "Not signed in. Run `daygauge token` and pass it with --token.",
	display.StateLoading:         "Loading…",
	display.StateNoRecord:        "No start time yet. Press e to set one.",
	display.StateUnavailable:     "Start time unavailable. Retrying…",
}

// Model is the bubbletea model of the watch screen.
type Model struct {
	submit SubmitFunc
	clock  clockwork.Clock
	loc    *time.Location

	help  help.Model
	bar   progress.Model
	input textinput.Model
	width int

	state     display.State
	scene     *display.Scene
	axis      [2]string
	percent   float64
	statistic string
	readout   *window.Metrics

	editing bool
	notice  string
	err     error
}

// NewModel creates the watch screen.
func NewModel(submitFn SubmitFunc, clock clockwork.Clock, loc *time.Location) Model {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}

	input := textinput.New()
	input.Placeholder = submit.InputLayout
	input.CharLimit = len("2006-01-02T15:04:05")
	input.Prompt = "Day started at: "

	m := Model{
		submit: submitFn,
		clock:  clock,
		loc:    loc,
		help:   help.New(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		input:  input,
		state:  display.StateLoading,
	}
	m.resize(defaultWidth)
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width)
		return m, nil

	case sceneMsg:
		scene := msg.scene
		m.scene = &scene
		m.state = display.StateActive
		m.percent = scene.Gauge.Percent
		m.statistic = scene.Gauge.Statistic(scene.Gauge.Percent)
		m.axis = buildAxis(scene.Gauge, m.bar.Width)
		return m, nil

	case valueMsg:
		if m.scene == nil {
			return m, nil
		}
		m.percent = msg.percent
		m.statistic = m.scene.Gauge.Statistic(msg.percent)
		return m, nil

	case readoutMsg:
		metrics := msg.metrics
		m.readout = &metrics
		return m, nil

	case stateMsg:
		m.state = msg.state
		m.scene = nil
		m.readout = nil
		m.axis = [2]string{}
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.notice = ""
		} else {
			m.err = nil
			m.notice = "Saved start time " + msg.candidate
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Edit):
			m.editing = true
			m.err = nil
			m.notice = ""
			m.input.SetValue(submit.DefaultCandidate(m.clock.Now().In(m.loc)))
			m.input.CursorEnd()
			return m, m.input.Focus()
		}
	}

	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, keys.Cancel):
		m.editing = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, keys.Submit):
		m.editing = false
		m.input.Blur()
		return m, m.submitCmd(strings.TrimSpace(m.input.Value()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitCmd writes in the background; the screen keeps updating meanwhile.
func (m Model) submitCmd(candidate string) tea.Cmd {
	submitFn := m.submit
	return func() tea.Msg {
		if submitFn == nil {
			return submittedMsg{candidate: candidate, err: fmt.Errorf("read-only session")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return submittedMsg{candidate: candidate, err: submitFn(ctx, candidate)}
	}
}

func (m *Model) resize(width int) {
	m.width = width
	m.bar.Width = max(minBarWidth, min(maxBarWidth, width-6))
	m.help.Width = width
	if m.scene != nil {
		m.axis = buildAxis(m.scene.Gauge, m.bar.Width)
	}
}

func (m Model) View() string {
	var lines []string

	header := titleStyle.Render("daygauge")
	if m.readout != nil {
		header += "  " + clockStyle.Render(m.readout.Now.In(m.loc).Format(ClockLayout))
	}
	lines = append(lines, header)

	if m.scene == nil {
		text, ok := placeholders[m.state]
		if !ok {
			text = m.state.String()
		}
		lines = append(lines, placeholder.Render(text))
	} else {
		lines = append(lines, "", m.bar.ViewAs(math.Max(0, math.Min(1, m.percent))))
		lines = append(lines, axisStyle.Render(m.axis[0]), axisStyle.Render(m.axis[1]))
		lines = append(lines, "", statisticStyle.Render(m.statistic), "")
		if m.readout != nil {
			lines = append(lines, m.readoutLines(*m.readout)...)
		}
	}

	lines = append(lines, "")
	if m.editing {
		lines = append(lines, m.input.View())
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render("Error: "+m.err.Error()))
	} else if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	lines = append(lines, m.help.View(keys))

	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) readoutLines(r window.Metrics) []string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}

	left := window.FormatClock(r.Remaining)
	if r.Overrun() {
		left = overrunStyle.Render(left + " (over)")
	}

	return []string{
		row("Start", window.FormatStamp(r.Start.In(m.loc))),
		row("End", window.FormatStamp(r.End.In(m.loc))),
		row("Time spent", fmt.Sprintf("%s  (%s, %s)", window.FormatClock(r.Elapsed), window.FormatMinutes(r.Elapsed), window.FormatPercent(r.PercentSpent))),
		row("Time left", fmt.Sprintf("%s  (%s, %s)", left, window.FormatMinutes(r.Remaining), window.FormatPercent(r.PercentLeft))),
		row("15 min blocks", fmt.Sprintf("%s spent, %s left", window.FormatBlocks(r.QuarterHoursSpent), window.FormatBlocks(r.QuarterHoursLeft))),
		row("10 min blocks", fmt.Sprintf("%s spent, %s left", window.FormatBlocks(r.TenMinutesSpent), window.FormatBlocks(r.TenMinutesLeft))),
	}
}

// buildAxis lays the gauge's two-line tick labels out under a bar of the
// given width, dropping labels that would overlap their left neighbour.
func buildAxis(g display.GaugeConfig, width int) [2]string {
	if g.TickInterval <= 0 || g.Max <= g.Min || g.AxisLabel == nil || width <= 0 {
		return [2]string{}
	}

	top := []byte(strings.Repeat(" ", width))
	bottom := []byte(strings.Repeat(" ", width))

	n := int(math.Round((g.Max - g.Min) / g.TickInterval))
	next := 0
	for i := 0; i <= n; i++ {
		v := g.Min + float64(i)*g.TickInterval
		parts := strings.SplitN(g.AxisLabel(v), "\n", 2)
		if len(parts) == 1 {
			parts = append(parts, "")
		}

		w := max(len(parts[0]), len(parts[1]))
		if w > width {
			continue
		}

		col := int(math.Round((v-g.Min)/(g.Max-g.Min)*float64(width-1))) - w/2
		col = max(0, min(col, width-w))
		if col < next {
			continue
		}

		copy(top[col:], parts[0])
		copy(bottom[col:], parts[1])
		next = col + w + 1
	}

	return [2]string{
		strings.TrimRight(string(top), " "),
		strings.TrimRight(string(bottom), " "),
	}
}

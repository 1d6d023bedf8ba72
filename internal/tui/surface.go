package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/goodtune/daygauge/internal/display"
	"github.com/goodtune/daygauge/internal/window"
)

// Messages delivered from the display loop into the program.
type sceneMsg struct {
	scene display.Scene
}

type valueMsg struct {
	percent float64
}

type readoutMsg struct {
	metrics window.Metrics
}

type stateMsg struct {
	state display.State
}

// Surface forwards display calls to a bubbletea program, one message per
// call. send is normally (*tea.Program).Send.
type Surface struct {
	send func(tea.Msg)
}

// NewSurface creates a surface delivering messages through send.
func NewSurface(send func(tea.Msg)) *Surface {
	return &Surface{send: send}
}

func (s *Surface) Render(scene display.Scene) {
	s.send(sceneMsg{scene: scene})
	scene.Gauge.OnReady(gauge{send: s.send})
}

func (s *Surface) Readout(m window.Metrics) {
	s.send(readoutMsg{metrics: m})
}

func (s *Surface) Blank(state display.State) {
	s.send(stateMsg{state: state})
}

type gauge struct {
	send func(tea.Msg)
}

func (g gauge) SetValue(percent float64) {
	g.send(valueMsg{percent: percent})
}

package web

import (
	"math"
	"time"

	"github.com/goodtune/daygauge/internal/display"
	"github.com/goodtune/daygauge/internal/window"
)

// ClockLayout is the live clock readout.
const ClockLayout = "3:04:05 PM"

// Frame types sent to the browser.
const (
	frameScene   = "scene"
	frameValue   = "value"
	frameReadout = "readout"
	frameState   = "state"
	frameError   = "error"
)

// Frame types received from the browser.
const (
	frameAuth = "auth"
)

type axisTick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

type gaugeFrame struct {
	Min          float64    `json:"min"`
	Max          float64    `json:"max"`
	Percent      float64    `json:"percent"`
	TickInterval float64    `json:"tickInterval"`
	Ticks        []axisTick `json:"ticks"`
	Statistic    string     `json:"statistic"`
}

type sceneFrame struct {
	Type       string     `json:"type"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	StartLabel string     `json:"startLabel"`
	EndLabel   string     `json:"endLabel"`
	Gauge      gaugeFrame `json:"gauge"`
}

type valueFrame struct {
	Type      string  `json:"type"`
	Percent   float64 `json:"percent"`
	Statistic string  `json:"statistic"`
}

// Readout is the numeric breakdown shown next to the gauge.
type Readout struct {
	Clock             string `json:"clock"`
	Start             string `json:"start"`
	End               string `json:"end"`
	Spent             string `json:"spent"`
	Left              string `json:"left"`
	SpentMinutes      string `json:"spentMinutes"`
	LeftMinutes       string `json:"leftMinutes"`
	PercentSpent      string `json:"percentSpent"`
	PercentLeft       string `json:"percentLeft"`
	QuarterHoursSpent string `json:"quarterHoursSpent"`
	QuarterHoursLeft  string `json:"quarterHoursLeft"`
	TenMinutesSpent   string `json:"tenMinutesSpent"`
	TenMinutesLeft    string `json:"tenMinutesLeft"`
	Overrun           bool   `json:"overrun"`
}

type readoutFrame struct {
	Type string `json:"type"`
	Readout
}

type stateFrame struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type clientFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NewReadout formats m for display in loc.
func NewReadout(m window.Metrics, loc *time.Location) Readout {
	return Readout{
		Clock:             m.Now.In(loc).Format(ClockLayout),
		Start:             window.FormatStamp(m.Start.In(loc)),
		End:               window.FormatStamp(m.End.In(loc)),
		Spent:             window.FormatClock(m.Elapsed),
		Left:              window.FormatClock(m.Remaining),
		SpentMinutes:      window.FormatMinutes(m.Elapsed),
		LeftMinutes:       window.FormatMinutes(m.Remaining),
		PercentSpent:      window.FormatPercent(m.PercentSpent),
		PercentLeft:       window.FormatPercent(m.PercentLeft),
		QuarterHoursSpent: window.FormatBlocks(m.QuarterHoursSpent),
		QuarterHoursLeft:  window.FormatBlocks(m.QuarterHoursLeft),
		TenMinutesSpent:   window.FormatBlocks(m.TenMinutesSpent),
		TenMinutesLeft:    window.FormatBlocks(m.TenMinutesLeft),
		Overrun:           m.Overrun(),
	}
}

func newSceneFrame(scene display.Scene, loc *time.Location) sceneFrame {
	g := scene.Gauge
	return sceneFrame{
		Type:       frameScene,
		Start:      scene.Start,
		End:        scene.End,
		StartLabel: window.FormatStamp(scene.Start.In(loc)),
		EndLabel:   window.FormatStamp(scene.End.In(loc)),
		Gauge: gaugeFrame{
			Min:          g.Min,
			Max:          g.Max,
			Percent:      g.Percent,
			TickInterval: g.TickInterval,
			Ticks:        axisTicks(g),
			Statistic:    g.Statistic(g.Percent),
		},
	}
}

// axisTicks labels every tick position between Min and Max. Positions are
// computed by index so rounding does not accumulate.
func axisTicks(g display.GaugeConfig) []axisTick {
	if g.TickInterval <= 0 || g.Max <= g.Min {
		return nil
	}

	n := int(math.Round((g.Max - g.Min) / g.TickInterval))
	ticks := make([]axisTick, 0, n+1)
	for i := 0; i <= n; i++ {
		v := g.Min + float64(i)*g.TickInterval
		ticks = append(ticks, axisTick{Value: v, Label: g.AxisLabel(v)})
	}
	return ticks
}

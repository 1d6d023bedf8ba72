package display

import (
	"time"

	"github.com/goodtune/daygauge/internal/window"
)

// State is the lifecycle state of a display.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateNoRecord
	StateActive
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoading:
		return "loading"
	case StateNoRecord:
		return "no_record"
	case StateActive:
		return "active"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Gauge tick spacing on the 0..1 axis.
const (
	WideTickInterval   = 0.05
	NarrowTickInterval = 0.2
)

// Gauge is the handle of a rendered widget. SetValue is called once per tick
// and must not rebuild the widget.
type Gauge interface {
	SetValue(percent float64)
}

// GaugeConfig describes a gauge to build. Min and Max bound the value range,
// Percent is the value to show immediately.
type GaugeConfig struct {
	Min          float64
	Max          float64
	Percent      float64
	TickInterval float64

	// AxisLabel labels the tick at position v. It closes over the start the
	// gauge was built for.
	AxisLabel func(v float64) string
	Statistic func(percent float64) string

	// OnReady must be called with the widget handle once it exists. Handles
	// delivered for a superseded gauge are ignored.
	OnReady func(Gauge)
}

// Scene is a structural render: everything that changes only when the start
// time does.
type Scene struct {
	Start   time.Time
	End     time.Time
	Gauge   GaugeConfig
	Initial window.Metrics
}

// Surface is where a display draws. Render builds a new gauge, Readout
// updates the numeric breakdowns and Blank replaces everything with a
// placeholder for the given state.
type Surface interface {
	Render(Scene)
	Readout(window.Metrics)
	Blank(State)
}

// Status is a snapshot of a synchronizer for diagnostics.
type Status struct {
	State State
	Owner string
	Start time.Time
}

// Stats counts what a synchronizer has pushed to its surface.
type Stats struct {
	Renders int64
	Ticks   int64
}

// Package window computes elapsed and remaining time within the fixed-length
// day window anchored at a start instant.
//
// Everything here is a pure function of (start, now, length). Values are
// computed at second resolution to match the 1 Hz display refresh, and the
// percentages and the clock strings are derived from the same Elapsed value so
// the two readouts can never drift apart.
package window

import (
	"time"
)

const (
	// Length is the size of the tracking window.
	Length = 16 * time.Hour

	// QuarterHour is the size of a 15-minute block.
	QuarterHour = 15 * time.Minute

	// TenMinutes is the size of a 10-minute block.
	TenMinutes = 10 * time.Minute
)

// Metrics are the derived values for one instant within a window.
type Metrics struct {
	Start time.Time
	End   time.Time
	Now   time.Time

	// Elapsed may exceed the window length once the day overruns.
	Elapsed time.Duration
	// Remaining goes negative once the day overruns.
	Remaining time.Duration

	// PercentSpent and PercentLeft are fractions of the window (0.5 == 50%).
	// They are not clamped.
	PercentSpent float64
	PercentLeft  float64

	QuarterHoursSpent float64
	QuarterHoursLeft  float64
	TenMinutesSpent   float64
	TenMinutesLeft    float64
}

// Compute derives the metrics for now within the window that starts at start.
func Compute(start, now time.Time, length time.Duration) Metrics {
	elapsed := now.Sub(start).Truncate(time.Second)
	remaining := length - elapsed

	spent := elapsed.Seconds() / length.Seconds()

	return Metrics{
		Start:             start,
		End:               start.Add(length),
		Now:               now,
		Elapsed:           elapsed,
		Remaining:         remaining,
		PercentSpent:      spent,
		PercentLeft:       1 - spent,
		QuarterHoursSpent: blocks(elapsed, QuarterHour),
		QuarterHoursLeft:  blocks(remaining, QuarterHour),
		TenMinutesSpent:   blocks(elapsed, TenMinutes),
		TenMinutesLeft:    blocks(remaining, TenMinutes),
	}
}

// Overrun reports whether the window has fully elapsed.
func (m Metrics) Overrun() bool {
	return m.Remaining < 0
}

func blocks(d, size time.Duration) float64 {
	return d.Seconds() / size.Seconds()
}

package window

import (
	"fmt"
	"math"
	"time"
)

const (
	// StampLayout is used for the start and end readouts.
	StampLayout = "03:04 PM, Jan 02"

	// AxisTimeLayout is the clock part of a gauge tick label.
	AxisTimeLayout = "03:04PM"
)

// FormatClock renders d as "H hrs, M min, S secs". Negative durations get a
// leading minus sign and absolute components.
func FormatClock(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Truncate(time.Second)

	h := int64(d / time.Hour)
	m := int64(d % time.Hour / time.Minute)
	s := int64(d % time.Minute / time.Second)

	return fmt.Sprintf("%s%d hrs, %d min, %d secs", sign, h, m, s)
}

// FormatMinutes renders d as whole minutes, truncated toward zero.
func FormatMinutes(d time.Duration) string {
	return fmt.Sprintf("%d minutes", int64(d/time.Minute))
}

// FormatPercent renders a fraction as a percentage with 3 decimals.
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.3f%%", fraction*100)
}

// FormatBlocks renders a block count with 1 decimal.
func FormatBlocks(n float64) string {
	return fmt.Sprintf("%.1f", n)
}

// FormatStamp renders t for the start and end readouts.
func FormatStamp(t time.Time) string {
	return t.Format(StampLayout)
}

// AxisLabel is the gauge tick label for fractional position v: the percentage
// on the first line and the wall-clock time at that point of the window on
// the second.
func AxisLabel(start time.Time, length time.Duration, v float64) string {
	at := start.Add(time.Duration(v * float64(length)))
	return fmt.Sprintf("%.0f%%\n%s", math.Round(v*100), at.Format(AxisTimeLayout))
}

// Statistic is the caption shown inside the gauge.
func Statistic(fraction float64) string {
	return "Day Spent: " + FormatPercent(fraction)
}

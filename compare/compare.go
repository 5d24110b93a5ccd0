// Package compare classifies the change of every metric between a
// baseline snapshot and a current snapshot.
package compare

import (
	"math"
	"strings"

	"diagcompare/diagnostics"
)

// DefaultThresholdMillis is the tolerance applied to time metrics when
// the caller does not configure one.
const DefaultThresholdMillis = 300

// Status is the significance of a metric change.
type Status int

const (
	Unchanged Status = iota
	Increased
	Decreased
)

func (s Status) String() string {
	switch s {
	case Increased:
		return "increased"
	case Decreased:
		return "decreased"
	default:
		return "unchanged"
	}
}

// Symbol is the marker shown in reports.
func (s Status) Symbol() string {
	switch s {
	case Increased:
		return "▲"
	case Decreased:
		return "▼"
	default:
		return "±"
	}
}

// Delta is the comparison of one metric between two runs.
type Delta struct {
	Name       string
	Previous   diagnostics.Metric
	Current    diagnostics.Metric
	Absolute   float64 // Current.Value - Previous.Value
	Percentage float64 // Absolute relative to Current.Value, 0 when undefined
	Status     Status
}

// Classify compares every metric of current against previous. Metrics
// that exist only in previous are not reported; metrics missing from
// previous are compared against zero.
//
// Metrics whose name contains "time" are treated as seconds and count as
// unchanged while abs(delta)*1000 <= thresholdMillis. Every other metric is
// unchanged only when the values are equal. A delta involving an
// unparseable (NaN) value is unchanged.
func Classify(previous, current *diagnostics.Snapshot, thresholdMillis float64) []Delta {
	deltas := make([]Delta, 0, current.Len())
	for _, cur := range current.Metrics() {
		prev, ok := previous.Get(cur.Name)
		if !ok {
			prev = diagnostics.Metric{Name: cur.Name, Unit: diagnostics.UnitNone}
		}

		abs := cur.Value - prev.Value
		deltas = append(deltas, Delta{
			Name:       cur.Name,
			Previous:   prev,
			Current:    cur,
			Absolute:   abs,
			Percentage: percentage(abs, cur.Value),
			Status:     status(cur.Name, abs, thresholdMillis),
		})
	}
	return deltas
}

func percentage(abs, current float64) float64 {
	if current == 0 {
		return 0
	}
	pct := abs / current * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) || pct == 0 {
		return 0
	}
	return pct
}

func status(name string, abs, thresholdMillis float64) Status {
	switch {
	case abs == 0 || math.IsNaN(abs):
		return Unchanged
	case thresholdEligible(name) && math.Abs(abs)*1000 <= thresholdMillis:
		return Unchanged
	case abs > 0:
		return Increased
	default:
		return Decreased
	}
}

func thresholdEligible(name string) bool {
	return strings.Contains(strings.ToLower(name), "time")
}

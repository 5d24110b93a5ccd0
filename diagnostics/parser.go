// Package diagnostics turns the "key: value" text a compiler prints about
// its own build performance into an ordered Snapshot of metrics.
package diagnostics

import (
	"math"
	"strconv"
	"strings"
)

// Parse reads every "key: value" line of text. Lines that do not split
// into exactly two parts on ":" are skipped, so headers, blank lines and
// anything carrying a timestamp never become metrics. Values that fail to
// parse are kept as NaN.
func Parse(text string) *Snapshot {
	snap := NewSnapshot()
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, ":")
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		value, unit := parseValue(strings.TrimSpace(parts[1]))
		snap.set(Metric{Name: name, Value: value, Unit: unit})
	}
	return snap
}

func parseValue(raw string) (float64, Unit) {
	switch {
	case strings.HasSuffix(raw, "s"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(raw, "s"), 64)
		if err != nil {
			return math.NaN(), UnitSeconds
		}
		return f, UnitSeconds
	case strings.HasSuffix(raw, "K"):
		return parseInt(strings.TrimSuffix(raw, "K")), UnitKilo
	default:
		return parseInt(raw), UnitNone
	}
}

func parseInt(raw string) float64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return math.NaN()
	}
	return float64(n)
}

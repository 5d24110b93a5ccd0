package compare

import (
	"math"
	"testing"

	"diagcompare/diagnostics"
)

func deltaByName(t *testing.T, deltas []Delta, name string) Delta {
	t.Helper()
	for _, d := range deltas {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("delta %q not found", name)
	return Delta{}
}

func TestClassifyWorkedExample(t *testing.T) {
	var previous = diagnostics.Parse("Check time: 1.200s\nMemory used: 100K")
	var current = diagnostics.Parse("Check time: 1.450s\nMemory used: 100K\nFiles: 42")

	var deltas = Classify(previous, current, 200)
	if len(deltas) != 3 {
		t.Fatalf("expected three deltas, got %d", len(deltas))
	}
	if deltas[0].Name != "Check time" || deltas[1].Name != "Memory used" || deltas[2].Name != "Files" {
		t.Fatalf("deltas must follow current order, got %v %v %v", deltas[0].Name, deltas[1].Name, deltas[2].Name)
	}

	var check = deltas[0]
	if check.Status != Increased {
		t.Fatalf("expected check time to increase, got %v", check.Status)
	}
	if math.Abs(check.Percentage-17.2413793) > 1e-6 {
		t.Fatalf("unexpected percentage %v", check.Percentage)
	}

	if deltas[1].Status != Unchanged || deltas[1].Percentage != 0 {
		t.Fatalf("expected memory to be unchanged, got %+v", deltas[1])
	}

	var files = deltas[2]
	if files.Previous.Value != 0 || files.Previous.Unit != diagnostics.UnitNone {
		t.Fatalf("absent previous metric must default to zero, got %+v", files.Previous)
	}
	if files.Status != Increased || files.Percentage != 100 {
		t.Fatalf("unexpected new metric delta %+v", files)
	}
}

func TestClassifyTimeWithinThresholdIsUnchanged(t *testing.T) {
	var previous = diagnostics.Parse("Check time: 1.200s")
	var current = diagnostics.Parse("Check time: 1.450s")

	var d = Classify(previous, current, DefaultThresholdMillis)[0]
	if d.Status != Unchanged {
		t.Fatalf("a 250ms change is inside the 300ms default, got %v", d.Status)
	}
	if d.Percentage <= 0 {
		t.Fatalf("percentage must still be reported, got %v", d.Percentage)
	}
}

func TestClassifyThresholdBoundaryIsInclusive(t *testing.T) {
	var previous = diagnostics.Parse("Total time: 1.00s")
	var current = diagnostics.Parse("Total time: 1.50s")

	if s := Classify(previous, current, 500)[0].Status; s != Unchanged {
		t.Fatalf("delta equal to threshold must be unchanged, got %v", s)
	}
	if s := Classify(previous, current, 499)[0].Status; s != Increased {
		t.Fatalf("delta above threshold must be increased, got %v", s)
	}
	if s := Classify(current, previous, 500)[0].Status; s != Unchanged {
		t.Fatalf("boundary must hold for decreases too, got %v", s)
	}
}

func TestClassifyThresholdIsCaseInsensitive(t *testing.T) {
	var previous = diagnostics.Parse("Emit TIME: 0.10s")
	var current = diagnostics.Parse("Emit TIME: 0.20s")
	if s := Classify(previous, current, 300)[0].Status; s != Unchanged {
		t.Fatalf("expected upper-case time metric to be thresholded, got %v", s)
	}
}

func TestClassifyNonTimeMetricsIgnoreThreshold(t *testing.T) {
	var previous = diagnostics.Parse("Types: 1000\nMemory used: 5000K")
	var current = diagnostics.Parse("Types: 1001\nMemory used: 4999K")

	for _, threshold := range []float64{0, 300, 1e9} {
		var deltas = Classify(previous, current, threshold)
		if deltas[0].Status != Increased {
			t.Fatalf("threshold %v: expected types to increase, got %v", threshold, deltas[0].Status)
		}
		if deltas[1].Status != Decreased {
			t.Fatalf("threshold %v: expected memory to decrease, got %v", threshold, deltas[1].Status)
		}
	}
}

func TestClassifyIdenticalSnapshotsAreUnchanged(t *testing.T) {
	var snap = diagnostics.Parse("Files: 10\nCheck time: 2.5s\nMemory used: 0K\nZero: 0\nTypes: many\nEmit time: n/as")
	for _, threshold := range []float64{0, 300} {
		for _, d := range Classify(snap, snap, threshold) {
			if d.Status != Unchanged || d.Percentage != 0 || (d.Absolute != 0 && !math.IsNaN(d.Absolute)) {
				t.Fatalf("expected %s to be unchanged, got %+v", d.Name, d)
			}
		}
	}
}

func TestClassifyDropsMetricsOnlyInPrevious(t *testing.T) {
	var previous = diagnostics.Parse("Files: 10\nRemoved: 3")
	var current = diagnostics.Parse("Files: 10")
	var deltas = Classify(previous, current, 300)
	if len(deltas) != 1 || deltas[0].Name != "Files" {
		t.Fatalf("expected only current metrics, got %+v", deltas)
	}
}

func TestClassifySwapInvertsSigns(t *testing.T) {
	var a = diagnostics.Parse("Files: 10\nCheck time: 1.0s\nTypes: 50\nSame: 7")
	var b = diagnostics.Parse("Files: 12\nCheck time: 2.0s\nTypes: 40\nSame: 7")

	var forward = Classify(a, b, 300)
	var backward = Classify(b, a, 300)
	for _, f := range forward {
		var r = deltaByName(t, backward, f.Name)
		if f.Absolute != -r.Absolute {
			t.Fatalf("%s: expected inverted delta, got %v and %v", f.Name, f.Absolute, r.Absolute)
		}
		switch f.Status {
		case Increased:
			if r.Status != Decreased {
				t.Fatalf("%s: expected reflected status, got %v", f.Name, r.Status)
			}
		case Decreased:
			if r.Status != Increased {
				t.Fatalf("%s: expected reflected status, got %v", f.Name, r.Status)
			}
		default:
			if r.Status != Unchanged {
				t.Fatalf("%s: expected unchanged to stay unchanged, got %v", f.Name, r.Status)
			}
		}
	}
}

func TestClassifyNeutralisesUndefinedPercentages(t *testing.T) {
	var previous = diagnostics.Parse("Files: 5\nCheck time: 1.0s")
	var current = diagnostics.Parse("Files: 0\nCheck time: brokens")

	var deltas = Classify(previous, current, 300)
	if deltas[0].Percentage != 0 {
		t.Fatalf("zero current value must give 0%%, got %v", deltas[0].Percentage)
	}
	if deltas[0].Status != Decreased {
		t.Fatalf("expected decrease to zero, got %v", deltas[0].Status)
	}
	if deltas[1].Percentage != 0 || math.IsNaN(deltas[1].Percentage) {
		t.Fatalf("NaN value must give 0%%, got %v", deltas[1].Percentage)
	}
}

func TestClassifyNilSnapshots(t *testing.T) {
	if deltas := Classify(nil, nil, 300); len(deltas) != 0 {
		t.Fatalf("expected no deltas, got %+v", deltas)
	}
	var deltas = Classify(nil, diagnostics.Parse("Files: 3"), 300)
	if len(deltas) != 1 || deltas[0].Previous.Value != 0 {
		t.Fatalf("nil previous must be treated as empty, got %+v", deltas)
	}
}

func TestStatusSymbols(t *testing.T) {
	if Unchanged.Symbol() != "±" || Increased.Symbol() != "▲" || Decreased.Symbol() != "▼" {
		t.Fatalf("unexpected symbols")
	}
	if Increased.String() != "increased" {
		t.Fatalf("unexpected status name %q", Increased.String())
	}
}

func TestClassifyMalformedValuesAreUnchanged(t *testing.T) {
	var previous = diagnostics.Parse("Files: 5\nCheck time: 1.0s")
	var current = diagnostics.Parse("Files: many\nCheck time: n/as")

	for _, pair := range [][2]*diagnostics.Snapshot{{previous, current}, {current, previous}} {
		for _, d := range Classify(pair[0], pair[1], 300) {
			if d.Status != Unchanged || d.Percentage != 0 {
				t.Fatalf("%s: NaN delta must be unchanged with 0%%, got %+v", d.Name, d)
			}
		}
	}
}

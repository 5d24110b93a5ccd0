package diagnostics

// Unit tells how a diagnostic value was written and how it is displayed.
type Unit int

const (
	UnitNone    Unit = iota // plain integer, e.g. "Files: 42"
	UnitSeconds             // float with an "s" suffix, e.g. "Check time: 1.20s"
	UnitKilo                // integer with a "K" suffix, e.g. "Memory used: 100K"
)

// Suffix returns the characters appended to a value of this unit.
func (u Unit) Suffix() string {
	switch u {
	case UnitSeconds:
		return "s"
	case UnitKilo:
		return "K"
	default:
		return ""
	}
}

func (u Unit) String() string {
	switch u {
	case UnitSeconds:
		return "seconds"
	case UnitKilo:
		return "kilo"
	default:
		return "none"
	}
}

// Metric holds a single numeric diagnostic together with its unit.
type Metric struct {
	Name  string  // e.g. "Check time"
	Value float64 // NaN when the value could not be parsed
	Unit  Unit
}

// Snapshot is the result of parsing one diagnostics blob.
// Names keep the order in which they first appeared.
type Snapshot struct {
	names   []string
	metrics map[string]Metric
}

// NewSnapshot builds a snapshot from metrics in order. A repeated name
// overwrites the earlier value but keeps its position.
func NewSnapshot(metrics ...Metric) *Snapshot {
	s := &Snapshot{metrics: make(map[string]Metric, len(metrics))}
	for _, m := range metrics {
		s.set(m)
	}
	return s
}

func (s *Snapshot) set(m Metric) {
	if _, ok := s.metrics[m.Name]; !ok {
		s.names = append(s.names, m.Name)
	}
	s.metrics[m.Name] = m
}

// Names returns the metric names in order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get looks a metric up by name.
func (s *Snapshot) Get(name string) (Metric, bool) {
	if s == nil {
		return Metric{}, false
	}
	m, ok := s.metrics[name]
	return m, ok
}

// Len returns the number of distinct metrics.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Metrics returns a copy of the metrics in order.
func (s *Snapshot) Metrics() []Metric {
	if s == nil {
		return nil
	}
	out := make([]Metric, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.metrics[name])
	}
	return out
}

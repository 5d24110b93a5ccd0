package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"diagcompare/compare"
)

// Output formats understood by Encode.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Row is the machine-readable form of one delta. Values are kept as
// display strings because a metric may hold NaN, which JSON cannot carry.
type Row struct {
	Metric     string  `json:"metric" yaml:"metric"`
	Previous   string  `json:"previous" yaml:"previous"`
	Current    string  `json:"current" yaml:"current"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Status     string  `json:"status" yaml:"status"`
	Symbol     string  `json:"symbol" yaml:"symbol"`
}

// Document wraps the rows with the report marker.
type Document struct {
	Title string `json:"title" yaml:"title"`
	Rows  []Row  `json:"rows" yaml:"rows"`
}

// Rows converts deltas into rows, keeping their order.
func Rows(deltas []compare.Delta) []Row {
	rows := make([]Row, 0, len(deltas))
	for _, d := range deltas {
		rows = append(rows, Row{
			Metric:     d.Name,
			Previous:   FormatValue(d.Previous),
			Current:    FormatValue(d.Current),
			Percentage: d.Percentage,
			Status:     d.Status.String(),
			Symbol:     d.Status.Symbol(),
		})
	}
	return rows
}

// ValidFormat reports whether Encode understands format.
func ValidFormat(format string) bool {
	switch format {
	case FormatMarkdown, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Encode writes deltas to w in the requested format.
func Encode(w io.Writer, deltas []compare.Delta, format string) error {
	switch format {
	case FormatMarkdown, "":
		_, err := io.WriteString(w, Render(deltas))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Document{Title: Marker, Rows: Rows(deltas)})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Document{Title: Marker, Rows: Rows(deltas)}); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

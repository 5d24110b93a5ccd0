// Package report renders classified deltas for humans and for tools.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"diagcompare/compare"
	"diagcompare/diagnostics"
)

// Marker identifies a rendered report. Publishers search for it to
// update an earlier report instead of posting a second one.
const Marker = "Diagnostics Comparison"

const (
	title   = "## " + Marker
	summary = "Build diagnostics of this change compared to the base branch"
)

// Render formats deltas as a collapsible markdown table, one row per delta
// in the given order. The same input always yields the same string.
func Render(deltas []compare.Delta) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	b.WriteString("<details>\n")
	b.WriteString("<summary>" + summary + "</summary>\n\n")
	b.WriteString("| Metric | Previous | New | Status |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, d := range deltas {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escapeCell(d.Name),
			FormatValue(d.Previous),
			FormatValue(d.Current),
			FormatStatus(d),
		)
	}
	b.WriteString("\n</details>\n")
	return b.String()
}

// FormatValue writes a metric value the way it was parsed: 1.2s, 100K, 42.
func FormatValue(m diagnostics.Metric) string {
	return formatNumber(m.Value) + m.Unit.Suffix()
}

// FormatStatus returns the status cell, e.g. "▲ (+17.24%)".
func FormatStatus(d compare.Delta) string {
	return fmt.Sprintf("%s (%s)", d.Status.Symbol(), FormatPercentage(d.Percentage))
}

// FormatPercentage prints a signed percentage with two decimals; zero is
// shown as +0.00%.
func FormatPercentage(pct float64) string {
	if pct == 0 || math.IsNaN(pct) {
		pct = 0
	}
	return fmt.Sprintf("%+.2f%%", pct)
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

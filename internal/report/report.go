package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/obsidianstack/waterwatch/internal/compute"
	"github.com/obsidianstack/waterwatch/pkg/types"
)

// Fixed report text.
const (
	Heading       = " WATER QUALITY REPORT "
	AlertsHeading = " ALERTS: Unsafe Readings Detected "
	AllClear      = " All readings are within safe limits!"
	NoData        = "No valid data found."

	ruleWidth        = 40
	DefaultPrecision = 2
)

// Report is everything one run prints.
type Report struct {
	Stats  []compute.Stats
	Alerts []types.Alert

	// Precision is the number of decimals for stats lines. Zero or negative
	// means DefaultPrecision.
	Precision int
}

// Build assembles a Report.
func Build(stats []compute.Stats, alerts []types.Alert, precision int) *Report {
	return &Report{Stats: stats, Alerts: alerts, Precision: precision}
}

// Render writes the report to w.
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder

	b.WriteString("\n" + Heading + "\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")

	for _, s := range r.Stats {
		b.WriteString(StatsLine(s, r.precision()) + "\n")
	}

	if len(r.Alerts) == 0 {
		b.WriteString("\n" + AllClear + "\n")
	} else {
		b.WriteString("\n" + AlertsHeading + "\n")
		for _, a := range r.Alerts {
			b.WriteString(AlertLine(a) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Report) precision() int {
	if r.Precision <= 0 {
		return DefaultPrecision
	}
	return r.Precision
}

// RenderNoData writes the empty-dataset message.
func RenderNoData(w io.Writer) error {
	_, err := fmt.Fprintln(w, NoData)
	return err
}

// StatsLine formats one parameter summary, e.g.
// "Ph → Min: 7.00, Max: 9.00, Avg: 8.00".
func StatsLine(s compute.Stats, precision int) string {
	return fmt.Sprintf("%s → Min: %s, Max: %s, Avg: %s",
		Title(s.Param), formatFixed(s.Min, precision), formatFixed(s.Max, precision), formatFixed(s.Average, precision))
}

// AlertLine formats one alert, e.g. "- t2 | locB | PH = 9.0".
func AlertLine(a types.Alert) string {
	return fmt.Sprintf("- %s | %s | %s = %s",
		a.Timestamp, a.Location, strings.ToUpper(string(a.Param)), FormatValue(a.Value))
}

// Title returns the display name of p ("ph" → "Ph").
// A Caser keeps state between calls, so each call builds its own.
func Title(p types.Param) string {
	return cases.Title(language.Und).String(string(p))
}

// formatFixed prints v with precision decimals, spelling non-finite values
// the same way FormatValue does.
func formatFixed(v float64, precision int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nonFinite(v)
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func nonFinite(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	default:
		return "-inf"
	}
}

// FormatValue prints v with the fewest digits that round-trip, always keeping
// a decimal point for plain notation: 9 → "9.0", 10.25 → "10.25",
// 1e-05 → "1e-05".
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nonFinite(v)
	}

	abs := math.Abs(v)
	if abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

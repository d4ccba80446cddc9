package alerts

import (
	"fmt"

	"github.com/obsidianstack/waterwatch/pkg/types"
)

// Range is the inclusive safe interval for one parameter.
type Range struct {
	Param types.Param
	Low   float64
	High  float64
}

// Violated reports whether v is strictly below Low or strictly above High.
// NaN never violates a range.
func (r Range) Violated(v float64) bool {
	return v < r.Low || v > r.High
}

// Table is an ordered, immutable set of safe ranges. The zero Table has no
// ranges and therefore never alerts.
type Table struct {
	ranges []Range
}

// DefaultTable returns the built-in safe ranges:
// ph [6.5, 8.5], turbidity [0, 10] NTU, temperature [0, 35] °C.
func DefaultTable() Table {
	return Table{ranges: []Range{
		{Param: types.PH, Low: 6.5, High: 8.5},
		{Param: types.Turbidity, Low: 0, High: 10},
		{Param: types.Temperature, Low: 0, High: 35},
	}}
}

// NewTable validates ranges and returns them as a Table in the given order.
func NewTable(ranges ...Range) (Table, error) {
	seen := make(map[types.Param]bool, len(ranges))
	out := make([]Range, 0, len(ranges))
	for i, r := range ranges {
		if !r.Param.Valid() {
			return Table{}, fmt.Errorf("alerts: range[%d]: unknown param %q", i, r.Param)
		}
		if r.Low > r.High {
			return Table{}, fmt.Errorf("alerts: range[%d] %q: low %v > high %v", i, r.Param, r.Low, r.High)
		}
		if seen[r.Param] {
			return Table{}, fmt.Errorf("alerts: range[%d]: duplicate param %q", i, r.Param)
		}
		seen[r.Param] = true
		out = append(out, r)
	}
	return Table{ranges: out}, nil
}

// Ranges returns a copy of the table's ranges in order.
func (t Table) Ranges() []Range {
	out := make([]Range, len(t.ranges))
	copy(out, t.ranges)
	return out
}

// Lookup returns the range for p, if the table has one.
func (t Table) Lookup(p types.Param) (Range, bool) {
	for _, r := range t.ranges {
		if r.Param == p {
			return r, true
		}
	}
	return Range{}, false
}

// Len returns the number of ranges.
func (t Table) Len() int { return len(t.ranges) }

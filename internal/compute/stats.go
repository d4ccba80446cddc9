package compute

import (
	"errors"
	"fmt"

	"github.com/obsidianstack/waterwatch/pkg/types"
)

// ErrEmptySeries is returned when no record carries a value for the parameter.
var ErrEmptySeries = errors.New("empty parameter series")

// Stats is the summary of one parameter across a record set.
type Stats struct {
	Param   types.Param
	Min     float64
	Max     float64
	Average float64
	Count   int
}

// Compute summarises param over records.
func Compute(records []types.Record, param types.Param) (Stats, error) {
	values := Series(records, param)
	if len(values) == 0 {
		return Stats{Param: param}, fmt.Errorf("compute %q: %w", param, ErrEmptySeries)
	}

	out := Stats{
		Param: param,
		Min:   values[0],
		Max:   values[0],
		Count: len(values),
	}
	var sum float64
	for _, v := range values {
		if v < out.Min {
			out.Min = v
		}
		if v > out.Max {
			out.Max = v
		}
		sum += v
	}
	out.Average = clamp(sum/float64(len(values)), out.Min, out.Max)
	return out, nil
}

// Series extracts the values of param from records, in record order.
func Series(records []types.Record, param types.Param) []float64 {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Value(param); ok {
			values = append(values, v)
		}
	}
	return values
}

// clamp keeps the mean inside [lo, hi]; summation rounding can push it a
// few ULPs outside for series of identical values.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

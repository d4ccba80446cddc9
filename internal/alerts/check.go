package alerts

import (
	"log/slog"

	"github.com/obsidianstack/waterwatch/pkg/types"
)

// Check scans records against table and returns every violation.
//
// Alerts are grouped by record, in record order, and within a record follow
// the table order. Values equal to a bound are safe.
func Check(records []types.Record, table Table) []types.Alert {
	var out []types.Alert
	for _, rec := range records {
		for _, r := range table.ranges {
			v, ok := rec.Value(r.Param)
			if !ok || !r.Violated(v) {
				continue
			}
			out = append(out, types.Alert{
				Timestamp: rec.Timestamp,
				Location:  rec.Location,
				Param:     r.Param,
				Value:     v,
			})
		}
	}
	if len(out) > 0 {
		slog.Debug("alerts: unsafe readings", "count", len(out), "records", len(records))
	}
	return out
}

// CountByParam tallies alerts per parameter.
func CountByParam(alerts []types.Alert) map[types.Param]int {
	out := make(map[types.Param]int)
	for _, a := range alerts {
		out[a.Param]++
	}
	return out
}

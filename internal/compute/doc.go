// Package compute derives summary statistics from loaded records.
//
// Compute(records, param) reduces one parameter across all records into
// min, max and arithmetic mean. No rounding is applied here; the report
// rounds at presentation time. An empty series is an error (ErrEmptySeries)
// rather than a zero-valued result, so callers decide how to present it.
package compute

// Package report renders the human-readable water-quality report.
//
// Build assembles a Report value from computed statistics and alerts;
// Render writes it in the fixed console layout. Rendering never logs, so
// the report can be tested without capturing diagnostics.
package report

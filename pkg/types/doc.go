// Package types defines the shared in-memory representations used across
// waterwatch: validated measurement records, parameter names and alerts.
// Records are built by the loader and never mutated afterwards.
package types

// Package exporter renders the outcome of a report run as Prometheus
// metrics in the text exposition format, suitable for the node_exporter
// textfile collector.
//
// Each run builds a fresh registry, so the output reflects exactly one
// run and nothing leaks between runs.
package exporter

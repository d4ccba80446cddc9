// Package alerts checks records against a table of safe ranges and collects
// one Alert per out-of-range (record, parameter) pair.
package alerts

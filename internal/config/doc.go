// Package config loads and watches the waterwatch configuration file.
//
// Top-level types:
//   - Config{Input, Thresholds, Report, Log, Metrics, Schedule}
//   - InputConfig: path (default water_samples.csv), delimiter, comment
//   - ThresholdConfig: param, low, high; the ordered safe-range table
//   - ReportConfig: precision of the stats lines (default 2)
//   - LogConfig: level (debug|info|warn|error), format (text|json)
//   - MetricsConfig: textfile path for Prometheus output, "-" for stdout
//
// Load(path) applies defaults, unmarshals YAML on top, then validates. An
// empty path returns the defaults, so the tool runs without a config file.
//
// Watch(ctx, paths, onChange) uses fsnotify to call onChange whenever one of
// the files is written or re-created by an atomic save.
package config

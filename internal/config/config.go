package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/waterwatch/internal/alerts"
	"github.com/obsidianstack/waterwatch/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultInputPath = "water_samples.csv"
	DefaultDelimiter = ","
	DefaultPrecision = 2
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config is the top-level configuration.
type Config struct {
	Input InputConfig `yaml:"input"`

	// Thresholds is the safe-range table, checked in the listed order.
	Thresholds []ThresholdConfig `yaml:"thresholds"`

	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`

	// Schedule is an optional cron spec ("0 * * * *", "@every 10m") that
	// re-runs the report periodically instead of exiting after one run.
	Schedule string `yaml:"schedule"`
}

// InputConfig describes the measurement table.
type InputConfig struct {
	// Path is the delimited file to read.
	Path string `yaml:"path"`

	// Delimiter is a single character separating fields.
	Delimiter string `yaml:"delimiter"`

	// Comment, if set, is a single character starting lines to ignore.
	Comment string `yaml:"comment"`
}

// DelimiterRune returns the delimiter as a rune.
func (i InputConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(i.Delimiter)
	return r
}

// CommentRune returns the comment marker, or 0 if none is configured.
func (i InputConfig) CommentRune() rune {
	if i.Comment == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(i.Comment)
	return r
}

// ThresholdConfig is one inclusive safe range.
type ThresholdConfig struct {
	Param string  `yaml:"param"`
	Low   float64 `yaml:"low"`
	High  float64 `yaml:"high"`
}

// ReportConfig controls report presentation.
type ReportConfig struct {
	// Precision is the number of decimals printed for min/max/avg.
	Precision int `yaml:"precision"`
}

// LogConfig controls the diagnostic logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to Info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MetricsConfig configures the Prometheus textfile output.
type MetricsConfig struct {
	// Textfile is where metrics are written after each run. Empty disables
	// the output; "-" writes to stdout.
	Textfile string `yaml:"textfile"`
}

// Load reads and parses the YAML config file at path.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Table builds the safe-range table from Thresholds.
func (c *Config) Table() (alerts.Table, error) {
	ranges := make([]alerts.Range, 0, len(c.Thresholds))
	for _, t := range c.Thresholds {
		ranges = append(ranges, alerts.Range{
			Param: types.Param(t.Param),
			Low:   t.Low,
			High:  t.High,
		})
	}
	return alerts.NewTable(ranges...)
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	def := alerts.DefaultTable().Ranges()
	thresholds := make([]ThresholdConfig, 0, len(def))
	for _, r := range def {
		thresholds = append(thresholds, ThresholdConfig{Param: string(r.Param), Low: r.Low, High: r.High})
	}
	return &Config{
		Input: InputConfig{
			Path:      DefaultInputPath,
			Delimiter: DefaultDelimiter,
		},
		Thresholds: thresholds,
		Report:     ReportConfig{Precision: DefaultPrecision},
		Log:        LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	if utf8.RuneCountInString(cfg.Input.Delimiter) != 1 {
		return fmt.Errorf("input.delimiter %q must be a single character", cfg.Input.Delimiter)
	}
	if !validMarker(cfg.Input.DelimiterRune()) {
		return fmt.Errorf("input.delimiter %q is not allowed", cfg.Input.Delimiter)
	}
	if cfg.Input.Comment != "" {
		if utf8.RuneCountInString(cfg.Input.Comment) != 1 {
			return fmt.Errorf("input.comment %q must be a single character", cfg.Input.Comment)
		}
		if !validMarker(cfg.Input.CommentRune()) {
			return fmt.Errorf("input.comment %q is not allowed", cfg.Input.Comment)
		}
		if cfg.Input.Comment == cfg.Input.Delimiter {
			return fmt.Errorf("input.comment must differ from input.delimiter")
		}
	}
	if _, err := cfg.Table(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if cfg.Report.Precision < 1 || cfg.Report.Precision > 10 {
		return fmt.Errorf("report.precision %d is out of range [1, 10]", cfg.Report.Precision)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("log.format %q unknown: want text|json", cfg.Log.Format)
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
		}
	}
	return nil
}

// validMarker reports whether r can serve as a field delimiter or comment
// character for encoding/csv.
func validMarker(r rune) bool {
	switch r {
	case 0, '"', '\r', '\n', utf8.RuneError:
		return false
	}
	return utf8.ValidRune(r)
}

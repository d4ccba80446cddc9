package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/obsidianstack/waterwatch/internal/config"
	"github.com/obsidianstack/waterwatch/internal/loader"
	"github.com/obsidianstack/waterwatch/internal/runner"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used if empty)")
	input := flag.String("input", "", "measurement table to read (overrides input.path)")
	watch := flag.Bool("watch", false, "re-run the report whenever the input or config file changes")
	schedule := flag.String("schedule", "", `cron spec to re-run the report, e.g. "0 * * * *" or "@every 10m"`)
	metricsOut := flag.String("metrics-out", "", `write Prometheus metrics to this file after each run ("-" for stdout)`)
	logLevel := flag.String("log-level", "", "debug|info|warn|error (overrides log.level)")
	logFormat := flag.String("log-format", "", "text|json (overrides log.format)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, overrides{
		input:      *input,
		schedule:   *schedule,
		metricsOut: *metricsOut,
		logLevel:   *logLevel,
		logFormat:  *logFormat,
	})
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	slog.Debug("config loaded",
		"input", cfg.Input.Path,
		"thresholds", len(cfg.Thresholds),
		"schedule", cfg.Schedule,
		"metrics", cfg.Metrics.Textfile,
	)

	r := &reporter{out: os.Stdout}
	if err := r.setConfig(cfg); err != nil {
		slog.Error("invalid thresholds", "err", err)
		os.Exit(1)
	}

	if !*watch && cfg.Schedule == "" {
		if err := r.run(); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// First report immediately, then on every trigger.
	if err := r.run(); err != nil {
		slog.Error("report failed", "err", err)
	}

	if cfg.Schedule != "" {
		logger := cronLogger{}
		c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
		if _, err := c.AddFunc(cfg.Schedule, func() {
			if err := r.run(); err != nil {
				slog.Error("scheduled report failed", "err", err)
			}
		}); err != nil {
			slog.Error("failed to set up schedule", "schedule", cfg.Schedule, "err", err)
			os.Exit(1)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		slog.Info("report scheduled", "schedule", cfg.Schedule)
	}

	if *watch {
		go func() {
			paths := []string{cfg.Input.Path, *configPath}
			if err := config.Watch(ctx, paths, func(changed string) {
				if *configPath != "" && sameFile(changed, *configPath) {
					r.reload(*configPath, overrides{
						input:      *input,
						schedule:   *schedule,
						metricsOut: *metricsOut,
						logLevel:   *logLevel,
						logFormat:  *logFormat,
					})
				}
				if err := r.run(); err != nil {
					slog.Error("report failed", "err", err)
				}
			}); err != nil {
				slog.Error("watcher stopped", "err", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	slog.Info("waterwatch shutting down")
}

// overrides holds flag values that take precedence over the config file.
type overrides struct {
	input      string
	schedule   string
	metricsOut string
	logLevel   string
	logFormat  string
}

func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o.input != "" {
		cfg.Input.Path = o.input
	}
	if o.schedule != "" {
		cfg.Schedule = o.schedule
	}
	if o.metricsOut != "" {
		cfg.Metrics.Textfile = o.metricsOut
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

func setupLogger(lc config.LogConfig) {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	var h slog.Handler
	if lc.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// reporter serialises report runs triggered by the watcher and the scheduler.
type reporter struct {
	out io.Writer

	mu   sync.Mutex
	opts runner.Options
}

func (r *reporter) setConfig(cfg *config.Config) error {
	table, err := cfg.Table()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = runner.Options{
		Input: cfg.Input.Path,
		Loader: loader.Options{
			Delimiter: cfg.Input.DelimiterRune(),
			Comment:   cfg.Input.CommentRune(),
		},
		Table:      table,
		Precision:  cfg.Report.Precision,
		MetricsOut: cfg.Metrics.Textfile,
	}
	return nil
}

// reload re-reads the config file. On failure the previous options stay.
// The input path and schedule are fixed for the life of the process.
func (r *reporter) reload(path string, o overrides) {
	cfg, err := loadConfig(path, o)
	if err != nil {
		slog.Error("config reload failed, keeping previous config", "path", path, "err", err)
		return
	}
	r.mu.Lock()
	input := r.opts.Input
	r.mu.Unlock()
	cfg.Input.Path = input

	if err := r.setConfig(cfg); err != nil {
		slog.Error("config reload failed, keeping previous config", "path", path, "err", err)
		return
	}
	setupLogger(cfg.Log)
	slog.Info("config reloaded", "path", path)
}

func (r *reporter) run() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := runner.Run(r.out, r.opts)
	return err
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// cronLogger routes scheduler diagnostics to slog instead of stdout.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}

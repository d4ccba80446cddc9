package runner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/obsidianstack/waterwatch/internal/alerts"
	"github.com/obsidianstack/waterwatch/internal/compute"
	"github.com/obsidianstack/waterwatch/internal/exporter"
	"github.com/obsidianstack/waterwatch/internal/loader"
	"github.com/obsidianstack/waterwatch/internal/report"
	"github.com/obsidianstack/waterwatch/pkg/types"
)

// Options configures one run.
type Options struct {
	// Input is the path of the measurement table.
	Input string

	Loader loader.Options
	Table  alerts.Table

	// Precision is the number of decimals for stats lines.
	Precision int

	// MetricsOut, if set, receives a Prometheus textfile after the run.
	// "-" appends the metrics to the report writer.
	MetricsOut string

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// Result is what one run produced.
type Result struct {
	Records []types.Record
	Skipped []*loader.RowError
	Stats   []compute.Stats
	Alerts  []types.Alert

	// NoData is true when the run short-circuited without stats or checks.
	NoData bool
}

// Run executes one report run and writes the report to w.
// Data problems never produce an error; only failures to write the report or
// the metrics output do.
func Run(w io.Writer, opts Options) (*Result, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runAt := now()

	res := &Result{}
	ds, err := loader.Load(opts.Input, opts.Loader)
	switch {
	case errors.Is(err, loader.ErrFileNotFound):
		slog.Error("runner: file not found", "path", opts.Input)
	case errors.Is(err, loader.ErrMissingColumn):
		slog.Error("runner: input is missing a required column", "path", opts.Input, "err", err)
	case err != nil:
		slog.Error("runner: load failed", "path", opts.Input, "err", err)
	default:
		res.Records = ds.Records
		res.Skipped = ds.Skipped
	}

	if len(res.Records) == 0 {
		res.NoData = true
		if err := report.RenderNoData(w); err != nil {
			return res, fmt.Errorf("runner: write report: %w", err)
		}
		return res, export(w, opts, res, runAt)
	}

	for _, p := range types.Params {
		st, err := compute.Compute(res.Records, p)
		if err != nil {
			slog.Warn("runner: no values for parameter, skipping stats", "param", p, "err", err)
			continue
		}
		res.Stats = append(res.Stats, st)
	}

	res.Alerts = alerts.Check(res.Records, opts.Table)

	if err := report.Build(res.Stats, res.Alerts, opts.Precision).Render(w); err != nil {
		return res, fmt.Errorf("runner: write report: %w", err)
	}

	slog.Info("runner: report complete",
		"path", opts.Input,
		"records", len(res.Records),
		"skipped", len(res.Skipped),
		"alerts", len(res.Alerts),
	)
	return res, export(w, opts, res, runAt)
}

func export(w io.Writer, opts Options, res *Result, runAt time.Time) error {
	if opts.MetricsOut == "" {
		return nil
	}
	snap := exporter.Snapshot{
		Source:  opts.Input,
		Records: len(res.Records),
		Skipped: len(res.Skipped),
		Stats:   res.Stats,
		Alerts:  res.Alerts,
		Table:   opts.Table,
		RunAt:   runAt,
	}
	if opts.MetricsOut == "-" {
		return exporter.Write(w, snap)
	}
	if err := exporter.WriteFile(opts.MetricsOut, snap); err != nil {
		return err
	}
	slog.Debug("runner: metrics written", "path", opts.MetricsOut)
	return nil
}

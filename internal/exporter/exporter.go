package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/waterwatch/internal/alerts"
	"github.com/obsidianstack/waterwatch/internal/compute"
	"github.com/obsidianstack/waterwatch/pkg/types"
)

const namespace = "waterwatch"

// Snapshot is the data exported for one run.
type Snapshot struct {
	Source  string
	Records int
	Skipped int
	Stats   []compute.Stats
	Alerts  []types.Alert
	Table   alerts.Table
	RunAt   time.Time
}

// Registry builds a registry populated from s.
func Registry(s Snapshot) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"source": s.Source}

	records := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "records",
		Help:        "Number of valid records loaded in the last run.",
		ConstLabels: constLabels,
	})
	skipped := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "rows_skipped",
		Help:        "Number of rows dropped because a numeric field did not parse.",
		ConstLabels: constLabels,
	})
	stat := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "parameter_value",
		Help:        "Summary statistic of a parameter across all valid records.",
		ConstLabels: constLabels,
	}, []string{"param", "stat"})
	bound := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "safe_range_bound",
		Help:        "Inclusive safe-range bound of a parameter.",
		ConstLabels: constLabels,
	}, []string{"param", "bound"})
	alertCount := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "alerts",
		Help:        "Number of out-of-range readings per parameter in the last run.",
		ConstLabels: constLabels,
	}, []string{"param"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "last_run_timestamp_seconds",
		Help:        "Unix time of the last report run.",
		ConstLabels: constLabels,
	})

	for _, c := range []prometheus.Collector{records, skipped, stat, bound, alertCount, lastRun} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("exporter: register: %w", err)
		}
	}

	records.Set(float64(s.Records))
	skipped.Set(float64(s.Skipped))
	for _, st := range s.Stats {
		p := string(st.Param)
		stat.WithLabelValues(p, "min").Set(st.Min)
		stat.WithLabelValues(p, "max").Set(st.Max)
		stat.WithLabelValues(p, "avg").Set(st.Average)
		stat.WithLabelValues(p, "count").Set(float64(st.Count))
	}

	counts := alerts.CountByParam(s.Alerts)
	for _, r := range s.Table.Ranges() {
		p := string(r.Param)
		bound.WithLabelValues(p, "low").Set(r.Low)
		bound.WithLabelValues(p, "high").Set(r.High)
		alertCount.WithLabelValues(p).Set(float64(counts[r.Param]))
	}
	if !s.RunAt.IsZero() {
		lastRun.Set(float64(s.RunAt.UnixNano()) / 1e9)
	}
	return reg, nil
}

// Gather returns the metric families for s.
func Gather(s Snapshot) ([]*dto.MetricFamily, error) {
	reg, err := Registry(s)
	if err != nil {
		return nil, err
	}
	mfs, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("exporter: gather: %w", err)
	}
	return mfs, nil
}

// Write encodes s to w in the Prometheus text format.
func Write(w io.Writer, s Snapshot) error {
	mfs, err := Gather(s)
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("exporter: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile atomically replaces path with the text encoding of s.
func WriteFile(path string, s Snapshot) error {
	reg, err := Registry(s)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("exporter: write %q: %w", path, err)
	}
	return nil
}

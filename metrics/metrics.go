// Package metrics records the outcome of an export run for the node
// exporter textfile collector.
package metrics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
)

const lastSuccessName = "calibre_export_last_success_timestamp_seconds"

// Failure kinds used as the "kind" label.
const (
	KindConfig = "config"
	KindStore  = "store"
	KindQuery  = "query"
	KindOutput = "output"
)

// ExportMetrics holds the gauges of a single run on a private registry.
type ExportMetrics struct {
	registry *prometheus.Registry

	records     prometheus.Gauge
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	failed      *prometheus.GaugeVec
	runInfo     *prometheus.GaugeVec
}

func NewExportMetrics() *ExportMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &ExportMetrics{
		registry: reg,
		records: f.NewGauge(prometheus.GaugeOpts{
			Name: "calibre_export_records",
			Help: "Number of records written by the last export run",
		}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "calibre_export_duration_seconds",
			Help: "Wall time of the last export run",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: lastSuccessName,
			Help: "Unix time of the last successful export run",
		}),
		failed: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "calibre_export_failed",
			Help: "1 if the last export run failed, by failure kind",
		}, []string{"kind"}),
		runInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "calibre_export_run_info",
			Help: "Identifier of the last export run",
		}, []string{"run_id"}),
	}
}

// SetRun records the run identifier.
func (m *ExportMetrics) SetRun(id string) {
	m.runInfo.WithLabelValues(id).Set(1)
}

// ObserveSuccess records a completed run.
func (m *ExportMetrics) ObserveSuccess(records int, took time.Duration, at time.Time) {
	m.records.Set(float64(records))
	m.duration.Set(took.Seconds())
	m.lastSuccess.Set(float64(at.Unix()))
}

// ObserveFailure records a failed run of the given kind.
func (m *ExportMetrics) ObserveFailure(kind string, took time.Duration) {
	m.records.Set(0)
	m.duration.Set(took.Seconds())
	m.failed.WithLabelValues(kind).Set(1)
}

// RestoreLastSuccess carries the last success timestamp over from a
// textfile written by an earlier run. A missing file is not an error.
func (m *ExportMetrics) RestoreLastSuccess(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return fmt.Errorf("parse metrics textfile %s: %w", path, err)
	}

	mf, ok := families[lastSuccessName]
	if !ok || len(mf.GetMetric()) == 0 {
		return nil
	}
	m.lastSuccess.Set(mf.GetMetric()[0].GetGauge().GetValue())
	return nil
}

// WriteTextfile writes the registry in text exposition format, atomically.
func (m *ExportMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

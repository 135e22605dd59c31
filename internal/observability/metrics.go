// Package observability provides the pipeline metrics recorder and its
// prometheus-backed implementation.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives pipeline events. Implementations must be safe for
// concurrent use. Inject it; never reach for a global.
type Recorder interface {
	FileValidated()
	FileRejected(reason string)
	RefreshResult(table string, ok bool)
	SettleDuration(d time.Duration)
	RowsAnalyzed(n int)
}

// Noop discards every event.
type Noop struct{}

// FileValidated implements Recorder.
func (Noop) FileValidated() {}

// FileRejected implements Recorder.
func (Noop) FileRejected(string) {}

// RefreshResult implements Recorder.
func (Noop) RefreshResult(string, bool) {}

// SettleDuration implements Recorder.
func (Noop) SettleDuration(time.Duration) {}

// RowsAnalyzed implements Recorder.
func (Noop) RowsAnalyzed(int) {}

// PrometheusRecorder implements Recorder with prometheus collectors.
type PrometheusRecorder struct {
	validated prometheus.Counter
	rejected  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	settle    prometheus.Histogram
	analyzed  prometheus.Counter
}

// NewPrometheusRecorder builds and registers the collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		validated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdtcore_files_validated_total",
			Help: "Uploaded files that passed schema validation.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdtcore_files_rejected_total",
			Help: "Uploaded files refused by the validator, by reason.",
		}, []string{"reason"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdtcore_table_refreshes_total",
			Help: "Per-table ingestion refresh outcomes.",
		}, []string{"table", "status"}),
		settle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdtcore_settle_seconds",
			Help:    "Time spent waiting for warehouse ingestion to settle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		analyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdtcore_rows_analyzed_total",
			Help: "Combined-view rows run through the analyzer.",
		}),
	}
	for _, c := range []prometheus.Collector{r.validated, r.rejected, r.refreshes, r.settle, r.analyzed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FileValidated implements Recorder.
func (r *PrometheusRecorder) FileValidated() { r.validated.Inc() }

// FileRejected implements Recorder.
func (r *PrometheusRecorder) FileRejected(reason string) {
	r.rejected.WithLabelValues(reason).Inc()
}

// RefreshResult implements Recorder.
func (r *PrometheusRecorder) RefreshResult(table string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.refreshes.WithLabelValues(table, status).Inc()
}

// SettleDuration implements Recorder.
func (r *PrometheusRecorder) SettleDuration(d time.Duration) {
	r.settle.Observe(d.Seconds())
}

// RowsAnalyzed implements Recorder.
func (r *PrometheusRecorder) RowsAnalyzed(n int) { r.analyzed.Add(float64(n)) }

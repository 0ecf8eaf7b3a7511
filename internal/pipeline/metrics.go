package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/piculet/internal/model"
)

// Outcome labels of the documents counter.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors of batch runs.
//
// Design decision: We register on a private registry instead of the
// default one. piculet is a command, not a server, so metrics are exported
// by writing a node_exporter textfile at the end of a run, and the Go
// runtime collectors of the default registry would only add noise.
type Metrics struct {
	registry *prometheus.Registry

	documents *prometheus.CounterVec
	bytes     prometheus.Counter
	duration  prometheus.Histogram
	lastRun   prometheus.Gauge
	runTime   prometheus.Gauge
}

// NewMetrics creates and registers the batch collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "piculet",
			Name:      "documents_total",
			Help:      "Documents processed, by outcome.",
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "piculet",
			Name:      "document_bytes_total",
			Help:      "Bytes read from documents.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "piculet",
			Name:      "scrape_duration_seconds",
			Help:      "Time spent reading, parsing and scraping one document.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "piculet",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch run finished.",
		}),
		runTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "piculet",
			Name:      "last_run_duration_seconds",
			Help:      "Wall clock duration of the last batch run.",
		}),
	}

	m.registry.MustRegister(m.documents, m.bytes, m.duration, m.lastRun, m.runTime)
	return m
}

// Observe records the outcome of one document.
func (m *Metrics) Observe(r *model.Result) {
	m.documents.WithLabelValues(outcome(r)).Inc()
	m.bytes.Add(float64(r.Size))
	m.duration.Observe(r.Duration.Seconds())
}

// ObserveRun records the end of a batch run that took elapsed.
func (m *Metrics) ObserveRun(elapsed time.Duration) {
	m.lastRun.SetToCurrentTime()
	m.runTime.Set(elapsed.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format to path,
// atomically, for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// outcome classifies a result for the documents counter.
func outcome(r *model.Result) string {
	switch {
	case r.Failed():
		return OutcomeFailed
	case len(r.Data) == 0:
		return OutcomeEmpty
	default:
		return OutcomeSucceeded
	}
}

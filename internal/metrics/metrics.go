// Package metrics instruments fetches and probes with Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hlshealth"

// Metrics holds the collectors updated during an analysis run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Fetches       *prometheus.CounterVec
	FetchBytes    prometheus.Counter
	FetchDuration prometheus.Histogram
	Retries       prometheus.Counter
	Probes        *prometheus.CounterVec
}

// New creates and registers the collectors with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Fetches by outcome.",
		}, []string{"outcome"}),
		FetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Total payload bytes fetched.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Duration of fetches including retries.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "HTTP retry attempts after transient failures.",
		}),
		Probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segment",
			Name:      "probes_total",
			Help:      "Sampled segments by detected container.",
		}, []string{"container"}),
	}

	reg.MustRegister(
		m.Fetches,
		m.FetchBytes,
		m.FetchDuration,
		m.Retries,
		m.Probes,
	)

	return m
}

// ObserveFetch records one completed fetch.
func (m *Metrics) ObserveFetch(ok bool, size int, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
		m.FetchBytes.Add(float64(size))
	}
	m.Fetches.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

// ObserveRetry records one retry attempt.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

// ObserveProbe records one classified segment.
func (m *Metrics) ObserveProbe(container string) {
	if m == nil {
		return
	}
	m.Probes.WithLabelValues(container).Inc()
}

// WriteFile writes everything gathered by g to path in the Prometheus text
// format, suitable for the node_exporter textfile collector.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

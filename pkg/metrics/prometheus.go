// Package metrics provides Prometheus metrics for trial batches.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the Prometheus instruments for the analysis pipeline.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	trialsRun        prometheus.Counter
	trialFallbacks   prometheus.Counter
	trialDuration    prometheus.Histogram
	flareWindows     prometheus.Counter
	batchesCompleted prometheus.Counter
	peakMemoryBytes  prometheus.Gauge
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// NewManager builds a metrics manager on its own registry, avoiding
// the default Go collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "flarehunt",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.trialsRun = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "trials_run_total",
		Help:      "Total number of pseudo-experiment trials completed",
	})
	m.trialFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "trial_fallbacks_total",
		Help:      "Trials whose quasi-Newton fit stalled and fell back to the brute-force grid",
	})
	m.trialDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "trial_duration_seconds",
		Help:      "Wall-clock duration of one trial (dataset draw, objective build, fit)",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	m.flareWindows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "flare_windows_scanned_total",
		Help:      "Candidate flare windows minimized during flare searches",
	})
	m.batchesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "batches_completed_total",
		Help:      "Trial batches completed",
	})
	m.peakMemoryBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "peak_memory_bytes",
		Help:      "Peak heap allocation observed during the last batch",
	})
	return m
}

// Handler exposes the registry over HTTP.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) RecordTrial(seconds float64, fellBack bool) {
	m.trialsRun.Inc()
	m.trialDuration.Observe(seconds)
	if fellBack {
		m.trialFallbacks.Inc()
	}
}

func (m *Manager) RecordFlareWindows(n int) {
	m.flareWindows.Add(float64(n))
}

func (m *Manager) RecordBatch(peakMemBytes uint64) {
	m.batchesCompleted.Inc()
	m.peakMemoryBytes.Set(float64(peakMemBytes))
}

// Global manager used by components that are not handed one.
var global = NewManager() //nolint:gochecknoglobals // singleton metrics manager

// Get returns the global metrics manager.
func Get() *Manager { return global }

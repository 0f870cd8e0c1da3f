// Package metrics exposes Prometheus metrics for the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Format request outcomes.
const (
	OutcomeEdit    = "edit"
	OutcomeNoop    = "noop"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Metrics holds the server's metric descriptors in a private registry.
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	formatRequests  *prometheus.CounterVec
	formatDuration  prometheus.Histogram
	engineLoads     *prometheus.CounterVec
	settingsFetches prometheus.Counter
	cachedSettings  prometheus.Gauge
	cachedEngines   prometheus.Gauge
	uptimeSeconds   prometheus.Gauge
}

// New creates and registers the metrics.
func New(startTime time.Time) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: startTime,
		formatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formatls_format_requests_total",
			Help: "Formatting requests by outcome.",
		}, []string{"outcome"}),
		formatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "formatls_format_duration_seconds",
			Help:    "Time spent answering formatting requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		engineLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formatls_engine_loads_total",
			Help: "Engine loads by result.",
		}, []string{"result"}),
		settingsFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formatls_settings_fetches_total",
			Help: "Settings requests sent to the client.",
		}),
		cachedSettings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "formatls_cached_settings",
			Help: "Documents with resolved settings.",
		}),
		cachedEngines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "formatls_cached_engines",
			Help: "Documents with a loaded engine.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "formatls_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
	}

	m.registry.MustRegister(
		m.formatRequests,
		m.formatDuration,
		m.engineLoads,
		m.settingsFetches,
		m.cachedSettings,
		m.cachedEngines,
		m.uptimeSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) FormatRequest(outcome string, d time.Duration) {
	m.formatRequests.WithLabelValues(outcome).Inc()
	m.formatDuration.Observe(d.Seconds())
}

func (m *Metrics) EngineLoad(result string) {
	m.engineLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) SettingsFetch(uri string) {
	m.settingsFetches.Inc()
}

// SetCacheSizes records how many documents have cached settings and
// engines.
func (m *Metrics) SetCacheSizes(settings, engines int) {
	m.cachedSettings.Set(float64(settings))
	m.cachedEngines.Set(float64(engines))
}

// Update refreshes the gauges that are computed on demand.
func (m *Metrics) Update() {
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		h.ServeHTTP(w, r)
	})
}

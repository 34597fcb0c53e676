package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/fieldtrial/pkg/observability"
)

const metricsPrefix = "fieldtrial_"

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics records pipeline, cache and HTTP events as Prometheus collectors.
// It implements the observability hook interfaces.
type Metrics struct {
	registry *prometheus.Registry

	generateTotal    *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
	generatedCells   prometheus.Counter
	exhausted        *prometheus.CounterVec
	renderTotal      *prometheus.CounterVec
	renderDuration   prometheus.Histogram

	cacheEvents *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge
}

// NewMetrics creates collectors on a private registry, along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "generate_total",
			Help: "Layouts generated, by strategy and outcome",
		}, []string{"strategy", "result"}),
		generateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "generate_duration_seconds",
			Help:    "Time spent generating a layout",
			Buckets: durationBuckets,
		}, []string{"strategy"}),
		generatedCells: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricsPrefix + "generated_cells_total",
			Help: "Cells labeled across all generated layouts",
		}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "arrange_exhausted_total",
			Help: "Arrangement searches that ran out of attempts",
		}, []string{"strategy"}),
		renderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "render_total",
			Help: "Render calls, by outcome",
		}, []string{"result"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricsPrefix + "render_duration_seconds",
			Help:    "Time spent rendering artifacts",
			Buckets: durationBuckets,
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "cache_events_total",
			Help: "Cache lookups and writes, by key type and event",
		}, []string{"key_type", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "cache_written_bytes_total",
			Help: "Bytes written to the cache, by key type",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "http_requests_total",
			Help: "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: durationBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricsPrefix + "http_inflight_requests",
			Help: "Requests currently being served",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generateTotal, m.generateDuration, m.generatedCells, m.exhausted,
		m.renderTotal, m.renderDuration,
		m.cacheEvents, m.cacheBytes,
		m.httpRequests, m.httpDuration, m.httpInflight,
	)
	return m
}

// Register installs m as the process-wide observability hooks.
func (m *Metrics) Register() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests and embedding.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

func (m *Metrics) OnGenerateStart(context.Context, string, int) {}

func (m *Metrics) OnGenerateComplete(_ context.Context, strategy string, cells int, d time.Duration, err error) {
	m.generateTotal.WithLabelValues(strategy, outcome(err)).Inc()
	m.generateDuration.WithLabelValues(strategy).Observe(d.Seconds())
	if err == nil {
		m.generatedCells.Add(float64(cells))
	}
}

func (m *Metrics) OnArrangeExhausted(_ context.Context, strategy string, _ int) {
	m.exhausted.WithLabelValues(strategy).Inc()
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	m.renderTotal.WithLabelValues(outcome(err)).Inc()
	m.renderDuration.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.httpInflight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpInflight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// routeLabel keeps unmatched paths from creating unbounded label values.
func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

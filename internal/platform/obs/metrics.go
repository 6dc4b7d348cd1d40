package obs

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry          *prometheus.Registry
	operationDuration *prometheus.HistogramVec
	runsTotal         *prometheus.CounterVec
	lookupsTotal      *prometheus.CounterVec
	unrecognizedKinds prometheus.Counter
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	httpRequestsTotal *prometheus.CounterVec
}

var defaultMetrics atomic.Pointer[Metrics]

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yard_kpi_operation_duration_seconds",
			Help:    "Duration of timed operations by name and result.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "result"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yard_kpi_reconcile_runs_total",
			Help: "Reconciliation runs by final status.",
		}, []string{"status"}),
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yard_kpi_distance_lookups_total",
			Help: "Distance lookups by outcome.",
		}, []string{"outcome"}),
		unrecognizedKinds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yard_kpi_unrecognized_movement_kinds_total",
			Help: "Movements whose raw kind was not recognized.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yard_kpi_dashboard_cache_hits_total",
			Help: "Dashboard cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yard_kpi_dashboard_cache_misses_total",
			Help: "Dashboard cache misses.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yard_kpi_http_requests_total",
			Help: "HTTP requests by method and status.",
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		m.operationDuration,
		m.runsTotal,
		m.lookupsTotal,
		m.unrecognizedKinds,
		m.cacheHits,
		m.cacheMisses,
		m.httpRequestsTotal,
	)

	return m
}

// SetDefault installs m as the metrics used by Time.
func SetDefault(m *Metrics) {
	defaultMetrics.Store(m)
}

func Default() *Metrics {
	return defaultMetrics.Load()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveOperation(name string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operationDuration.WithLabelValues(name, result).Observe(dur.Seconds())
}

func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Lookups(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.lookupsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) UnrecognizedKinds(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unrecognizedKinds.Add(float64(n))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

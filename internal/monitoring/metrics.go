// Package monitoring holds the server's traffic alerts, its Prometheus
// metrics and the health endpoint.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

const namespace = "dnslog"

// Metrics is the set of collectors the server exports on /metrics
type Metrics struct {
	registry *prometheus.Registry
	factory  promauto.Factory

	ImportsTotal   *prometheus.CounterVec
	ImportedRows   prometheus.Counter
	SkippedRows    *prometheus.CounterVec
	RemovedRows    prometheus.Counter
	ImportDuration prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	AlertsRaised  *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry together with the
// Go runtime and process collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		factory:  f,

		ImportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Total number of import runs",
			},
			[]string{"source", "status"},
		),
		ImportedRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_rows_total",
			Help:      "Total number of query rows inserted by imports",
		}),
		SkippedRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_rows_total",
				Help:      "Total number of fetched rows not stored",
			},
			[]string{"reason"},
		),
		RemovedRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_removed_rows_total",
			Help:      "Total number of rows removed by the retention policy",
		}),
		ImportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of import runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "code"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		AlertsRaised: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_raised_total",
				Help:      "Total number of spike alerts raised",
			},
			[]string{"kind"},
		),
		Notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of Telegram notifications attempted",
			},
			[]string{"status"},
		),
	}
}

// Gauge exports a value read on every scrape
func (m *Metrics) Gauge(name, help string, value func() float64) {
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, value)
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveImport records one finished import run
func (m *Metrics) ObserveImport(source string, result models.ImportResult, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ImportsTotal.WithLabelValues(source, status).Inc()
	m.ImportDuration.Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	m.ImportedRows.Add(float64(result.InsertedCount))
	m.RemovedRows.Add(float64(result.Removed))
	m.SkippedRows.WithLabelValues("future").Add(float64(result.SkippedFuture))
	m.SkippedRows.WithLabelValues("local").Add(float64(result.SkippedLocal))
	m.SkippedRows.WithLabelValues("invalid").Add(float64(result.SkippedBad))
}

// Middleware counts requests per chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Catalog operation outcomes, e.g. {operation="add_one", result="duplicate"}
	CatalogOperations *prometheus.CounterVec
	StorageFailures   *prometheus.CounterVec
	CatalogSize       prometheus.Gauge

	AdminLogins    *prometheus.CounterVec
	OrdersExported *prometheus.CounterVec
}

// New registers all collectors on a fresh registry using the given name prefix.
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		CatalogOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_catalog_operations_total",
				Help: "Total number of catalog operations by outcome",
			},
			[]string{"operation", "result"},
		),
		StorageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_storage_failures_total",
				Help: "Total number of absorbed catalog storage failures",
			},
			[]string{"direction"},
		),
		CatalogSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_catalog_products",
				Help: "Number of products in the catalog after the last read",
			},
		),
		AdminLogins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_admin_logins_total",
				Help: "Total number of admin unlock attempts",
			},
			[]string{"result"},
		),
		OrdersExported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_orders_exported_total",
				Help: "Total number of exported order sheets",
			},
			[]string{"format"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCatalogOperation is nil-safe so services can run without metrics.
func (m *Metrics) RecordCatalogOperation(operation, result string) {
	if m == nil {
		return
	}
	m.CatalogOperations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) RecordStorageFailure(direction string) {
	if m == nil {
		return
	}
	m.StorageFailures.WithLabelValues(direction).Inc()
}

func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogSize.Set(float64(n))
}

func (m *Metrics) RecordAdminLogin(result string) {
	if m == nil {
		return
	}
	m.AdminLogins.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordExport(format string) {
	if m == nil {
		return
	}
	m.OrdersExported.WithLabelValues(format).Inc()
}

// Middleware tracks request count and duration per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, path, strconv.Itoa(status)}

		m.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

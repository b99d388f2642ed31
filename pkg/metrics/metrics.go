// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginAttempts *prometheus.CounterVec
	LeadsListed   prometheus.Counter
	LeadsImported prometheus.Counter
	LeadsDropped  prometheus.Counter
	BulkAssigns   prometheus.Counter
	CityLookups   *prometheus.CounterVec
	LeadsTotal    prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadadmin_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leadadmin_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadadmin_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		LeadsListed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadadmin_leads_listed_total",
			Help: "Lead rows served by the listing.",
		}),
		LeadsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadadmin_leads_imported_total",
			Help: "Leads accepted from CSV uploads.",
		}),
		LeadsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadadmin_import_rows_dropped_total",
			Help: "CSV rows dropped during import.",
		}),
		BulkAssigns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadadmin_bulk_assigns_total",
			Help: "Successful bulk reassignments.",
		}),
		CityLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadadmin_city_lookups_total",
			Help: "Pincode to city resolutions by result.",
		}, []string{"result"}),
		LeadsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leadadmin_leads_total",
			Help: "Total leads in the store, refreshed by the nightly job.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttempts,
		m.LeadsListed,
		m.LeadsImported,
		m.LeadsDropped,
		m.BulkAssigns,
		m.CityLookups,
		m.LeadsTotal,
	)
	return m
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

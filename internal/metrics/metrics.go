// Package metrics provides Prometheus instrumentation for the settlement engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExpensesTotal counts recorded expenses, partitioned by split method.
	ExpensesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitpool_expenses_total",
		Help: "Total number of expenses recorded",
	}, []string{"method"})

	// SettlementRunsTotal counts computed settlement plans.
	SettlementRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitpool_settlement_runs_total",
		Help: "Total number of settlement plans computed",
	})

	// SettlementTransfers observes the transfer count per settlement plan.
	SettlementTransfers = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "splitpool_settlement_transfers",
		Help:    "Number of transfers per computed settlement plan",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	// RateLookupFailures counts failed exchange-rate lookups.
	RateLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitpool_rate_lookup_failures_total",
		Help: "Exchange rate lookups that returned no rate",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "splitpool_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitpool_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitpool_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Label by the chi route pattern, not the raw path, so group
		// and expense IDs do not explode label cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

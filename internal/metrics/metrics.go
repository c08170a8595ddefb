// Package metrics provides Prometheus instrumentation for the engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DepositsTotal counts real-money deposits applied.
	DepositsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnp_deposits_total",
		Help: "Total number of money deposits applied",
	})

	// TradesTotal counts investment trades executed, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnp_trades_total",
		Help: "Total number of investment trades executed",
	}, []string{"side"})

	// RewardsTotal counts reward grants, partitioned by source kind.
	RewardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnp_rewards_total",
		Help: "Total reward grants dispatched",
	}, []string{"source"})

	// ListingsTotal counts marketplace listing transitions by status.
	ListingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnp_listings_total",
		Help: "Marketplace listing state transitions",
	}, []string{"status"})

	// AllowancePayouts counts allowance payments applied by the catch-up job.
	AllowancePayouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnp_allowance_payouts_total",
		Help: "Allowance payments applied",
	})

	// PriceTicks counts price simulation steps applied to options.
	PriceTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnp_price_ticks_total",
		Help: "Investment option price simulation steps",
	})

	// LockTimeouts counts owner-lock acquisitions that timed out as Busy.
	LockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnp_lock_timeouts_total",
		Help: "Per-owner lock acquisitions that timed out",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnp_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mnp_http_request_duration_seconds",
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

		path := r.URL.Path
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

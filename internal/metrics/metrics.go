// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers the application's Prometheus metrics. Handlers and
// services record through it; nil-safe so wiring it is optional in tools.
type Collector struct {
	loginAttempts    *prometheus.CounterVec
	rateLimitHits    *prometheus.CounterVec
	requestDecisions *prometheus.CounterVec
	inquiries        prometheus.Counter
	activeSessions   prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolgate_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolgate_rate_limit_hits_total",
			Help: "Login attempts refused by the rate limiter, by reason.",
		}, []string{"reason"}),
		requestDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolgate_admin_request_decisions_total",
			Help: "Admin access request lifecycle decisions, by resulting status.",
		}, []string{"status"}),
		inquiries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schoolgate_inquiries_total",
			Help: "Public admission inquiries received.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schoolgate_active_sessions",
			Help: "Dashboard sessions currently tracked.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolgate_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schoolgate_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.loginAttempts,
		c.rateLimitHits,
		c.requestDecisions,
		c.inquiries,
		c.activeSessions,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// RecordLoginAttempt records one login attempt outcome.
func (c *Collector) RecordLoginAttempt(result string) {
	if c == nil {
		return
	}
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordRateLimitHit records a login refused by the rate limiter.
func (c *Collector) RecordRateLimitHit(reason string) {
	if c == nil {
		return
	}
	c.rateLimitHits.WithLabelValues(reason).Inc()
}

// RecordRequestDecision records an admin request lifecycle decision.
func (c *Collector) RecordRequestDecision(status string) {
	if c == nil {
		return
	}
	c.requestDecisions.WithLabelValues(status).Inc()
}

// RecordInquiry counts one received admission inquiry.
func (c *Collector) RecordInquiry() {
	if c == nil {
		return
	}
	c.inquiries.Inc()
}

// SessionStarted and SessionEnded track the active session gauge.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

func (c *Collector) SessionEnded() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	code := strconv.Itoa(status)
	c.httpRequests.WithLabelValues(method, path, code).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

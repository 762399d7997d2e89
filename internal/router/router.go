package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schoolgate/schoolgate/internal/auth"
	"github.com/schoolgate/schoolgate/internal/csrf"
	"github.com/schoolgate/schoolgate/internal/handler"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/metrics"
	"github.com/schoolgate/schoolgate/internal/middleware"
	"github.com/schoolgate/schoolgate/internal/session"
)

// Deps carries everything the router wires together
type Deps struct {
	Handler  *handler.Handler
	MW       *middleware.Middleware
	Log      *logger.Logger
	TokenSvc *auth.TokenService
	Sessions *session.Manager
	Guard    *csrf.Guard
	Gatherer prometheus.Gatherer
	Inquiry  *middleware.InquiryLimiter
}

// New creates and configures the HTTP router
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	h := d.Handler
	mw := d.MW

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	if d.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(d.Gatherer))
	}

	// API v1 routes
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"SchoolGate API v1","version":"0.1.0"}`))
	})

	// Public routes, rate limited per IP. The per-email login lockout runs
	// inside the login flow; this layer bounds raw request volume.
	loginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  20,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	submitRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  5,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})
	registerRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  5,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})

	mux.Handle("POST /api/v1/auth/login", loginRateLimit(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/v1/requests", submitRateLimit(http.HandlerFunc(h.SubmitRequest)))
	mux.Handle("POST /api/v1/auth/register", registerRateLimit(http.HandlerFunc(h.Register)))

	// Public admission inquiry form, own in-process limiter
	inquiryLimit := d.Inquiry.Middleware()
	mux.Handle("POST /api/v1/inquiries", inquiryLimit(http.HandlerFunc(h.SubmitInquiry)))

	// Protected routes: session auth plus anti-forgery on mutations
	authMw := mw.Auth(d.TokenSvc, d.Sessions)
	observeMw := mw.AuthObserve(d.TokenSvc, d.Sessions)
	csrfMw := mw.CSRF(d.Guard)
	protected := func(next http.Handler) http.Handler {
		return authMw(csrfMw(next))
	}

	mux.Handle("POST /api/v1/auth/logout", protected(http.HandlerFunc(h.Logout)))

	// Session timeout surface. Status is read-only and must not count as
	// activity; extend is the explicit "stay signed in" action.
	mux.Handle("GET /api/v1/session/status", observeMw(http.HandlerFunc(h.SessionStatus)))
	mux.Handle("POST /api/v1/session/extend", protected(http.HandlerFunc(h.ExtendSession)))
	mux.Handle("GET /api/v1/session/csrf", authMw(http.HandlerFunc(h.CSRFToken)))

	// Admin request management
	mux.Handle("GET /api/v1/requests", authMw(http.HandlerFunc(h.ListRequests)))
	mux.Handle("GET /api/v1/requests/watch", authMw(http.HandlerFunc(h.WatchRequests)))
	mux.Handle("GET /api/v1/requests/{id}", authMw(http.HandlerFunc(h.GetRequest)))
	mux.Handle("POST /api/v1/requests/{id}/approve", protected(http.HandlerFunc(h.ApproveRequest)))
	mux.Handle("POST /api/v1/requests/{id}/reject", protected(http.HandlerFunc(h.RejectRequest)))
	mux.Handle("POST /api/v1/requests/{id}/revoke", protected(http.HandlerFunc(h.RevokeRequest)))
	mux.Handle("DELETE /api/v1/requests/{id}", protected(http.HandlerFunc(h.DeleteRequest)))
	mux.Handle("POST /api/v1/requests/cleanup", protected(http.HandlerFunc(h.CleanupRequests)))

	// Inquiry follow-up
	mux.Handle("GET /api/v1/inquiries", authMw(http.HandlerFunc(h.ListInquiries)))
	mux.Handle("PATCH /api/v1/inquiries/{id}", protected(http.HandlerFunc(h.UpdateInquiryStatus)))

	// Apply global middleware: recover -> request ID -> logging -> headers
	var final http.Handler = mux
	final = mw.SecurityHeaders(final)
	final = mw.Logger(final)
	final = mw.RequestID(final)
	final = mw.Recover(final)

	return final
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schoolgate/schoolgate/internal/auth"
	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/csrf"
	"github.com/schoolgate/schoolgate/internal/database"
	"github.com/schoolgate/schoolgate/internal/email"
	"github.com/schoolgate/schoolgate/internal/handler"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/metrics"
	"github.com/schoolgate/schoolgate/internal/middleware"
	"github.com/schoolgate/schoolgate/internal/ratelimit"
	"github.com/schoolgate/schoolgate/internal/repository"
	"github.com/schoolgate/schoolgate/internal/router"
	"github.com/schoolgate/schoolgate/internal/service"
	"github.com/schoolgate/schoolgate/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting SchoolGate server")

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Initialize repositories
	requestRepo := repository.NewAdminRequestRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	inquiryRepo := repository.NewInquiryRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Token service
	tokenSvc, err := auth.NewTokenService(cfg.Security.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token service")
	}

	// Security controls: login lockout, anti-forgery, inactivity timeout
	limiter := ratelimit.New(ratelimit.NewRedisStore(rdb), cfg.Security.RateLimit, log)
	guard := csrf.NewGuard(csrf.NewRedisStore(rdb), cfg.Security.CSRF, log)
	sessions := session.NewManager(cfg.Session, log)
	defer sessions.Close()

	// Email sender
	sender, err := newSender(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize email sender")
	}

	// Authentication backend
	params := auth.NewParams(
		cfg.Security.Password.Argon2Memory,
		cfg.Security.Password.Argon2Iterations,
		cfg.Security.Password.Argon2Parallelism,
	)
	authenticator := auth.NewLocalAuthenticator(accountRepo, params)

	// Services
	requestSvc := service.NewAdminRequestService(requestRepo, auditRepo, authenticator, sender, rdb, cfg, log)
	loginSvc := service.NewLoginService(authenticator, requestRepo, auditRepo, limiter, tokenSvc, sessions, guard, log)
	inquirySvc := service.NewInquiryService(inquiryRepo, auditRepo, log)

	// Idle sessions are cleaned up and audited when they expire
	sessions.OnExpire(func(sessionID string) {
		collector.SessionEnded()
		loginSvc.ExpireSession(sessionID)
	})

	// Handlers and middleware
	h := handler.New(db, rdb, log, cfg, requestSvc, loginSvc, inquirySvc, sessions, guard, collector)
	mw := middleware.New(rdb, log, cfg, collector)

	inquiryLimiter := middleware.NewInquiryLimiter(
		middleware.DefaultInquiryLimiterConfig(cfg.Inquiry.RatePerMinute, cfg.Inquiry.Burst))
	defer inquiryLimiter.Stop()

	// Set up router
	r := router.New(router.Deps{
		Handler:  h,
		MW:       mw,
		Log:      log,
		TokenSvc: tokenSvc,
		Sessions: sessions,
		Guard:    guard,
		Gatherer: registry,
		Inquiry:  inquiryLimiter,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newSender(cfg *config.Config, log *logger.Logger) (email.Sender, error) {
	switch cfg.Email.Provider {
	case "gmail":
		return email.NewGmailSender(context.Background(), cfg.Email.Gmail)
	default:
		return email.NewLogSender(log), nil
	}
}

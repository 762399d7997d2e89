package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/csrf"
	"github.com/schoolgate/schoolgate/internal/database"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/metrics"
	"github.com/schoolgate/schoolgate/internal/service"
	"github.com/schoolgate/schoolgate/internal/session"
)

// Handler holds all HTTP handlers
type Handler struct {
	db         *database.Postgres
	rdb        *database.Redis
	log        *logger.Logger
	cfg        *config.Config
	requestSvc *service.AdminRequestService
	loginSvc   *service.LoginService
	inquirySvc *service.InquiryService
	sessions   *session.Manager
	guard      *csrf.Guard
	collector  *metrics.Collector
}

// New creates a new Handler instance
func New(
	db *database.Postgres,
	rdb *database.Redis,
	log *logger.Logger,
	cfg *config.Config,
	requestSvc *service.AdminRequestService,
	loginSvc *service.LoginService,
	inquirySvc *service.InquiryService,
	sessions *session.Manager,
	guard *csrf.Guard,
	collector *metrics.Collector,
) *Handler {
	return &Handler{
		db:         db,
		rdb:        rdb,
		log:        log,
		cfg:        cfg,
		requestSvc: requestSvc,
		loginSvc:   loginSvc,
		inquirySvc: inquirySvc,
		sessions:   sessions,
		guard:      guard,
		collector:  collector,
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/schoolgate/schoolgate/internal/middleware"
	"github.com/schoolgate/schoolgate/internal/model"
	"github.com/schoolgate/schoolgate/internal/repository"
	"github.com/schoolgate/schoolgate/internal/service"
)

// SubmitRequestRequest is the public access-request form payload
type SubmitRequestRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// SubmitRequest files a new admin access request
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	created, err := h.requestSvc.Submit(r.Context(), service.SubmitInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		case errors.Is(err, service.ErrDuplicateRequest):
			writeError(w, http.StatusConflict, "duplicate_request", err.Error())
		default:
			h.log.Error().Err(err).Msg("failed to submit request")
			writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// RegisterRequest is the post-approval registration payload
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates the account for an approved requester
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.requestSvc.CompleteRegistration(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		case errors.Is(err, service.ErrNotApproved):
			writeError(w, http.StatusForbidden, "not_approved", err.Error())
		case errors.Is(err, service.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, "already_registered", err.Error())
		default:
			h.log.Error().Err(err).Msg("failed to complete registration")
			writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListRequests returns all access requests, newest first
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requestSvc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list requests")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// GetRequest returns one access request by ID
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.requestSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Request not found")
			return
		}
		h.log.Error().Err(err).Msg("failed to get request")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ApproveRequest grants admin access
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, model.RequestStatusApproved, h.requestSvc.Approve)
}

// RejectRequest declines admin access
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, model.RequestStatusRejected, h.requestSvc.Reject)
}

// RevokeRequest withdraws previously granted access
func (h *Handler) RevokeRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, model.RequestStatusRevoked, h.requestSvc.Revoke)
}

type decisionFn func(ctx context.Context, id, actingAdmin string) (*model.AdminRequest, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, status model.RequestStatus, fn decisionFn) {
	actingAdmin := middleware.GetEmail(r.Context())

	req, err := fn(r.Context(), r.PathValue("id"), actingAdmin)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Request not found")
		case errors.Is(err, service.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid_transition", err.Error())
		default:
			h.log.Error().Err(err).Str("status", string(status)).Msg("request decision failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}

	h.collector.RecordRequestDecision(string(status))
	writeJSON(w, http.StatusOK, req)
}

// DeleteRequest permanently removes a request record
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	actingAdmin := middleware.GetEmail(r.Context())
	if err := h.requestSvc.Delete(r.Context(), r.PathValue("id"), actingAdmin); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Request not found")
			return
		}
		h.log.Error().Err(err).Msg("failed to delete request")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CleanupRequests bulk-deletes records with unparseable legacy dates
func (h *Handler) CleanupRequests(w http.ResponseWriter, r *http.Request) {
	actingAdmin := middleware.GetEmail(r.Context())
	removed, err := h.requestSvc.CleanupInvalid(r.Context(), actingAdmin)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to clean up requests")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

// WatchRequests streams request changes to the dashboard as server-sent
// events so the pending list updates without polling from the client.
func (h *Handler) WatchRequests(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	wake := h.subscribeChanges(r.Context())
	events := h.requestSvc.Watch(r.Context(), service.DefaultWatchInterval, wake)

	for {
		select {
		case <-r.Context().Done():
			return
		case req, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(req)
			if err != nil {
				h.log.Error().Err(err).Msg("failed to encode watch event")
				continue
			}
			fmt.Fprintf(w, "event: request\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// subscribeChanges turns Redis pub/sub messages into wake signals for Watch.
// Without Redis the watcher just polls on its interval.
func (h *Handler) subscribeChanges(ctx context.Context) <-chan struct{} {
	if h.rdb == nil {
		return nil
	}

	sub := h.rdb.Subscribe(ctx, service.RequestsChangedChannel)
	wake := make(chan struct{}, 1)

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, open := <-ch:
				if !open {
					return
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			}
		}
	}()
	return wake
}

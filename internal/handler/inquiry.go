package handler

import (
	"errors"
	"net/http"

	"github.com/schoolgate/schoolgate/internal/model"
	"github.com/schoolgate/schoolgate/internal/repository"
	"github.com/schoolgate/schoolgate/internal/service"
)

// SubmitInquiry accepts a public admission inquiry
func (h *Handler) SubmitInquiry(w http.ResponseWriter, r *http.Request) {
	var req service.InquirySubmitInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	inquiry, err := h.inquirySvc.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		h.log.Error().Err(err).Msg("failed to submit inquiry")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	h.collector.RecordInquiry()
	writeJSON(w, http.StatusCreated, inquiry)
}

// ListInquiries returns all inquiries for the dashboard
func (h *Handler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	inquiries, err := h.inquirySvc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list inquiries")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"inquiries": inquiries})
}

// UpdateInquiryStatusRequest carries the new follow-up status
type UpdateInquiryStatusRequest struct {
	Status model.InquiryStatus `json:"status"`
}

// UpdateInquiryStatus moves an inquiry between follow-up states
func (h *Handler) UpdateInquiryStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateInquiryStatusRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.inquirySvc.UpdateStatus(r.Context(), r.PathValue("id"), req.Status); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Inquiry not found")
		default:
			h.log.Error().Err(err).Msg("failed to update inquiry status")
			writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

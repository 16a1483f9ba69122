// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/firmsite/seminar-enrollment/internal/enrollment"
	"github.com/firmsite/seminar-enrollment/internal/model"
	"github.com/firmsite/seminar-enrollment/internal/service"
)

// EnrollmentHandler holds all HTTP handlers for the enrollment API.
type EnrollmentHandler struct {
	svc *service.EnrollmentService
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps a business error to its HTTP status and stable error
// code, attaching the structured details clients display (quota numbers,
// allowed option lists). Unknown errors become a generic 500.
func writeDomainError(w http.ResponseWriter, err error) {
	code := enrollment.CodeOf(err)

	var status int
	switch code {
	case enrollment.CodeNotFound:
		status = http.StatusNotFound
	case enrollment.CodeValidation:
		status = http.StatusBadRequest
	case enrollment.CodeRecruitmentClosed,
		enrollment.CodeCapacityExceeded,
		enrollment.CodeCancellationWindow:
		status = http.StatusConflict
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := model.ErrorResponse{Error: err.Error(), Code: code}

	var capErr *enrollment.CapacityExceededError
	var valErr *enrollment.ValidationError
	switch {
	case errors.As(err, &capErr):
		resp.Details = map[string]any{
			"quota":     capErr.Quota,
			"current":   capErr.Current,
			"requested": capErr.Requested,
		}
	case errors.As(err, &valErr):
		if len(valErr.Allowed) > 0 {
			resp.Details = map[string]any{
				"field":   valErr.Field,
				"allowed": valErr.Allowed,
			}
		}
	}

	writeJSON(w, status, resp)
}

// ─── Event catalog handlers ───────────────────────────────────────────────────

// CreateEvent handles POST /events
// Authors a new event with its recruitment policy, quota, and slot options.
func (h *EnrollmentHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ev, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

// GetEvent handles GET /events/{id}
// Returns the enrollment-relevant projection of one event.
func (h *EnrollmentHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

// ─── Enrollment handlers ──────────────────────────────────────────────────────

// SubmitApplication handles POST /events/{id}/applications
// Performs the concurrency-safe enrollment for the specified event.
func (h *EnrollmentHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.SubmitApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	app, err := h.svc.Submit(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

// CancelApplication handles DELETE /events/{id}/applications?email=...
// Withdraws the applicant's own application outside the blackout window.
func (h *EnrollmentHandler) CancelApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	email := r.URL.Query().Get("email")

	if err := h.svc.Cancel(r.Context(), id, email); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListApplications handles GET /events/{id}/applications
// Returns all applications for a given event (admin view).
func (h *EnrollmentHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListApplications(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if apps == nil {
		apps = []model.Application{}
	}

	writeJSON(w, http.StatusOK, apps)
}

// GetQuotaInfo handles GET /events/{id}/quota?date=...&time=...
// Returns the capacity projection, event-wide or for one slot.
func (h *EnrollmentHandler) GetQuotaInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	info, err := h.svc.QuotaInfo(r.Context(), id, q.Get("date"), q.Get("time"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// UpdateApplicationStatus handles PATCH /applications/{id}/status
// Applies an admin status override.
func (h *EnrollmentHandler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	app, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  app.Status,
	})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/service"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// statusError pairs an error with the HTTP status and code it maps to.
type statusError struct {
	Status int
	Code   string
	Err    error
}

func (e *statusError) Error() string { return e.Err.Error() }

func (e *statusError) Unwrap() error { return e.Err }

func newStatusError(status int, code string, err error) *statusError {
	return &statusError{Status: status, Code: code, Err: err}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	respondJSON(w, status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// respondServiceError maps service errors onto HTTP statuses. Unknown errors
// are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *statusError
	switch {
	case errors.As(err, &se):
		respondError(w, se.Status, se.Code, se.Err)
	case errors.Is(err, service.ErrSubjectNotFound):
		respondError(w, http.StatusNotFound, "subject_not_found", err)
	case errors.Is(err, service.ErrApplicationNotFound):
		respondError(w, http.StatusNotFound, "application_not_found", err)
	case errors.Is(err, service.ErrReferenceNotFound):
		respondError(w, http.StatusNotFound, "reference_not_found", err)
	case errors.Is(err, service.ErrConsentRequired):
		respondError(w, http.StatusBadRequest, "consent_required", err)
	case errors.Is(err, service.ErrCheckInProgress):
		respondError(w, http.StatusConflict, "check_in_progress", err)
	case errors.Is(err, service.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, service.ErrInvalidScore), errors.Is(err, service.ErrInvalidOutcome):
		respondError(w, http.StatusUnprocessableEntity, "invalid_outcome", err)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal", errors.New("internal server error"))
	}
}

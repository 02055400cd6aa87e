package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/service"
)

type CreditCheckHandler struct {
	svc service.CreditCheckService
}

func NewCreditCheckHandler(svc service.CreditCheckService) *CreditCheckHandler {
	return &CreditCheckHandler{svc: svc}
}

func (h *CreditCheckHandler) RequestCreditCheck(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	var body requestCreditCheckBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}

	consent := domain.Consent{Provided: body.Consent.Provided}
	if body.Consent.Date != nil {
		consent.Date = body.Consent.Date.UTC()
	}
	check, err := h.svc.RequestCreditCheck(r.Context(), service.CreditCheckRequest{
		SubjectID:           userID,
		LinkedApplicationID: body.LinkedApplicationID,
		Consent:             consent,
		Personal:            body.Personal,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, MapDomainCreditCheckToResponse(check))
}

func (h *CreditCheckHandler) ListCreditChecks(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	checks, err := h.svc.ListCreditChecks(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"credit_checks": MapDomainCreditChecksToResponse(checks)})
}

func (h *CreditCheckHandler) GetMostRecentCreditCheck(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	check, err := h.svc.GetMostRecentCreditCheck(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if check == nil {
		respondError(w, http.StatusNotFound, "not_found", errors.New("no credit checks found"))
		return
	}
	respondJSON(w, http.StatusOK, MapDomainCreditCheckToResponse(check))
}

func (h *CreditCheckHandler) IsRecentCheckAvailable(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	ok, err := h.svc.IsRecentCheckAvailable(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"available": ok})
}

// ownedCheck loads the check named in the path and verifies the caller is its subject.
func (h *CreditCheckHandler) ownedCheck(w http.ResponseWriter, r *http.Request) (*domain.CreditCheck, bool) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", err)
		return nil, false
	}
	check, err := h.svc.GetCreditCheck(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}
	if check == nil {
		respondError(w, http.StatusNotFound, "not_found", errors.New("credit check not found"))
		return nil, false
	}
	if check.SubjectID != userID {
		respondServiceError(w, r, service.ErrUnauthorized)
		return nil, false
	}
	return check, true
}

func (h *CreditCheckHandler) GetCreditCheck(w http.ResponseWriter, r *http.Request) {
	check, ok := h.ownedCheck(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, MapDomainCreditCheckToResponse(check))
}

func (h *CreditCheckHandler) CancelCreditCheck(w http.ResponseWriter, r *http.Request) {
	check, ok := h.ownedCheck(w, r)
	if !ok {
		return
	}
	cancelled, err := h.svc.CancelCreditCheck(r.Context(), check.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if cancelled == nil {
		respondError(w, http.StatusConflict, "not_cancellable", errors.New("credit check is no longer pending"))
		return
	}
	respondJSON(w, http.StatusOK, MapDomainCreditCheckToResponse(cancelled))
}

func (h *CreditCheckHandler) GetApplicationCreditCheck(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	appID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", errors.New("application id must be numeric"))
		return
	}
	check, err := h.svc.GetApplicationCreditCheck(r.Context(), userID, int32(appID))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if check == nil {
		respondError(w, http.StatusNotFound, "not_found", errors.New("no credit check linked to this application"))
		return
	}
	respondJSON(w, http.StatusOK, MapDomainCreditCheckToResponse(check))
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/service"
	"tenantry-backend/internal/verifier"
)

// WebhookHandler receives asynchronous results posted by the credit bureau
type WebhookHandler struct {
	svc service.CreditCheckService
}

func NewWebhookHandler(svc service.CreditCheckService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

func (h *WebhookHandler) HandleVerifierCallback(w http.ResponseWriter, r *http.Request) {
	var body verifier.BureauResponse
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if body.ReferenceID == "" {
		respondError(w, http.StatusBadRequest, "invalid_body", errors.New("referenceId is required"))
		return
	}
	logger.Info("Verifier callback received", "reference_id", body.ReferenceID, "status", body.Status)

	var outcome *domain.VerificationOutcome
	switch body.Status {
	case verifier.BureauStatusPending:
		w.WriteHeader(http.StatusAccepted)
		return
	case verifier.BureauStatusCompleted:
		if body.Report == nil {
			respondError(w, http.StatusBadRequest, "invalid_body", errors.New("completed callback requires a report"))
			return
		}
		outcome = body.Report.ToOutcome()
	}

	if err := h.svc.ResolveByReference(r.Context(), body.ReferenceID, outcome, body.Error); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

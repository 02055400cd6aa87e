package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tenantry-backend/internal/security"
	"tenantry-backend/internal/service"
)

// Pinger reports backing store health; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter registers the credit check API. db may be nil when running on the
// in-memory store.
func NewRouter(svc service.CreditCheckService, tm security.TokenManager, verifierKey string, db Pinger) *mux.Router {
	router := mux.NewRouter()
	auth := NewAuthMiddleware(tm, verifierKey)
	router.Use(LoggingMiddleware, auth.Handler)

	checks := NewCreditCheckHandler(svc)
	webhooks := NewWebhookHandler(svc)

	router.HandleFunc("/healthz", healthz(db)).Methods(http.MethodGet).Name("Healthz")
	router.HandleFunc("/api/v1/webhooks/verifier", webhooks.HandleVerifierCallback).Methods(http.MethodPost).Name("VerifierWebhook")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/credit-checks", checks.RequestCreditCheck).Methods(http.MethodPost).Name("RequestCreditCheck")
	api.HandleFunc("/credit-checks", checks.ListCreditChecks).Methods(http.MethodGet).Name("ListCreditChecks")
	api.HandleFunc("/credit-checks/latest", checks.GetMostRecentCreditCheck).Methods(http.MethodGet).Name("GetMostRecentCreditCheck")
	api.HandleFunc("/credit-checks/recent", checks.IsRecentCheckAvailable).Methods(http.MethodGet).Name("IsRecentCheckAvailable")
	api.HandleFunc("/credit-checks/{id}", checks.GetCreditCheck).Methods(http.MethodGet).Name("GetCreditCheck")
	api.HandleFunc("/credit-checks/{id}/cancel", checks.CancelCreditCheck).Methods(http.MethodPost).Name("CancelCreditCheck")
	api.HandleFunc("/applications/{id}/credit-check", checks.GetApplicationCreditCheck).Methods(http.MethodGet).Name("GetApplicationCreditCheck")

	return router
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

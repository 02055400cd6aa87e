package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"tenantry-backend/internal/config"
	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/security"
)

const VerifierKeyHeader = "X-API-Key"

type AuthMiddleware struct {
	tokenManager security.TokenManager
	verifierKey  string
}

func NewAuthMiddleware(tm security.TokenManager, verifierKey string) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm, verifierKey: verifierKey}
}

// Handler authenticates requests according to the matched route's security level
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		level := config.GetSecurityLevel(name)

		switch level {
		case config.SecurityPublic:
			next.ServeHTTP(w, r)
			return
		case config.SecurityVerifierKey:
			if !m.validVerifierKey(r.Header.Get(VerifierKeyHeader)) {
				respondError(w, http.StatusUnauthorized, "unauthorized", errors.New("invalid verifier api key"))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", errors.New("authorization token is not provided"))
			return
		}
		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}

func (m *AuthMiddleware) validVerifierKey(got string) bool {
	if m.verifierKey == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(m.verifierKey)) == 1
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	// Remove Bearer prefix if present
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each request and recovers from handler panics
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", p)
				respondError(rec, http.StatusInternalServerError, "internal", errors.New("internal server error"))
			}
			logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration_ms", time.Since(start).Milliseconds())
		}()
		next.ServeHTTP(rec, r)
	})
}

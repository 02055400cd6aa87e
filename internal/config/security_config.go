// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic      SecurityLevel = iota // No authentication
	SecurityVerifierKey                      // Credit bureau API key header required
	SecurityAccess                           // Access token required
)

// RouteSecurityConfig maps named HTTP routes to their required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	// Public
	"Healthz": SecurityPublic,

	// Bureau callbacks
	"VerifierWebhook": SecurityVerifierKey,

	// CreditCheckService - Access Protected
	"RequestCreditCheck":        SecurityAccess,
	"ListCreditChecks":          SecurityAccess,
	"GetMostRecentCreditCheck":  SecurityAccess,
	"IsRecentCheckAvailable":    SecurityAccess,
	"GetCreditCheck":            SecurityAccess,
	"CancelCreditCheck":         SecurityAccess,
	"GetApplicationCreditCheck": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := RouteSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}

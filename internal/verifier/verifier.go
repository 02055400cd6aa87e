// Package verifier pulls credit reports from a bureau, or simulates one when no
// bureau credentials are configured.
package verifier

import (
	"context"
	"errors"

	"tenantry-backend/internal/domain"
)

// ErrAwaitingCallback means the bureau accepted the request and will deliver
// the report later through the webhook.
var ErrAwaitingCallback = errors.New("verifier accepted request; result will arrive by callback")

type Verifier interface {
	Name() string
	Verify(ctx context.Context, req domain.VerificationRequest) (*domain.VerificationOutcome, error)
}

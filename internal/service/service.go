package service

import (
	"context"
	"errors"

	"tenantry-backend/internal/dispatch"
	"tenantry-backend/internal/domain"
)

var (
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrConsentRequired     = errors.New("consent is required to run a credit check")
	ErrInvalidScore        = errors.New("credit score outside the 300-900 range")
	ErrInvalidOutcome      = errors.New("verification outcome has no report")
	ErrUnauthorized        = errors.New("not authorized for this credit check or application")
	ErrCheckInProgress     = errors.New("a credit check is already in progress for this subject")
	ErrReferenceNotFound   = errors.New("unknown credit check reference")
)

// CreditCheckRequest is the input to RequestCreditCheck. Personal is handed to
// the verifier and never persisted.
type CreditCheckRequest struct {
	SubjectID           int32
	LinkedApplicationID *int32
	Consent             domain.Consent
	Personal            domain.PersonalInfo
}

// CreditCheckService owns the credit check lifecycle. Lookups that find nothing
// return a nil record and a nil error.
type CreditCheckService interface {
	RequestCreditCheck(ctx context.Context, req CreditCheckRequest) (*domain.CreditCheck, error)
	CompleteCreditCheck(ctx context.Context, id string, outcome *domain.VerificationOutcome) error
	FailCreditCheck(ctx context.Context, id string, reason string) error
	// CancelCreditCheck returns nil, nil when the check is not cancellable.
	CancelCreditCheck(ctx context.Context, id string) (*domain.CreditCheck, error)
	IsRecentCheckAvailable(ctx context.Context, subjectID int32) (bool, error)

	GetCreditCheck(ctx context.Context, id string) (*domain.CreditCheck, error)
	ListCreditChecks(ctx context.Context, subjectID int32) ([]domain.CreditCheck, error)
	GetCreditCheckByApplication(ctx context.Context, applicationID int32) (*domain.CreditCheck, error)
	GetApplicationCreditCheck(ctx context.Context, viewerID, applicationID int32) (*domain.CreditCheck, error)
	GetMostRecentCreditCheck(ctx context.Context, subjectID int32) (*domain.CreditCheck, error)

	// ResolveByReference applies a bureau callback. A nil outcome fails the check.
	ResolveByReference(ctx context.Context, referenceID string, outcome *domain.VerificationOutcome, failureReason string) error
	ExpireStalePending(ctx context.Context) (int, error)
}

// Dispatcher hands verification work to the background workers.
type Dispatcher interface {
	Submit(task dispatch.Task) error
	Cancel(creditCheckID string) bool
}

type EmailService interface {
	SendCreditCheckCompleted(ctx context.Context, email, name, referenceID string, score int32, band domain.ScoreBand) error
	SendCreditCheckFailed(ctx context.Context, email, name, referenceID, reason string) error
}

package repository

import (
	"context"
	"errors"
	"time"

	"tenantry-backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateReference = errors.New("credit check reference already exists")
)

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	// UpdateCreditScore overwrites the stored score; last write wins.
	UpdateCreditScore(ctx context.Context, id int32, score int32) error
}

type ApplicationRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Application, error)
	SetCreditCheckIncluded(ctx context.Context, id int32) error
}

// CreditCheckRepository persists credit checks. MarkCompleted and MarkFailed only
// touch rows that are still pending and report whether they did.
type CreditCheckRepository interface {
	Create(ctx context.Context, check *domain.CreditCheck) error
	GetByID(ctx context.Context, id string) (*domain.CreditCheck, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.CreditCheck, error)
	ListBySubject(ctx context.Context, subjectID int32) ([]domain.CreditCheck, error)
	GetByApplicationID(ctx context.Context, applicationID int32) (*domain.CreditCheck, error)
	GetMostRecent(ctx context.Context, subjectID int32) (*domain.CreditCheck, error)
	HasCompletedSince(ctx context.Context, subjectID int32, since time.Time) (bool, error)
	HasPending(ctx context.Context, subjectID int32) (bool, error)
	MarkCompleted(ctx context.Context, id string, score int32, report *domain.CreditReport, completedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, reason string, at time.Time) (bool, error)
	ListPendingBefore(ctx context.Context, before time.Time) ([]domain.CreditCheck, error)
}

package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tenantry-backend/internal/dispatch"
	"tenantry-backend/internal/domain"
)

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) UpdateCreditScore(ctx context.Context, id int32, score int32) error {
	args := m.Called(ctx, id, score)
	return args.Error(0)
}

// MockApplicationRepo
type MockApplicationRepo struct {
	mock.Mock
}

func (m *MockApplicationRepo) GetByID(ctx context.Context, id int32) (*domain.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) SetCreditCheckIncluded(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCreditCheckRepo
type MockCreditCheckRepo struct {
	mock.Mock
}

func (m *MockCreditCheckRepo) Create(ctx context.Context, check *domain.CreditCheck) error {
	args := m.Called(ctx, check)
	return args.Error(0)
}
func (m *MockCreditCheckRepo) GetByID(ctx context.Context, id string) (*domain.CreditCheck, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditCheck), args.Error(1)
}
func (m *MockCreditCheckRepo) GetByReferenceID(ctx context.Context, referenceID string) (*domain.CreditCheck, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditCheck), args.Error(1)
}
func (m *MockCreditCheckRepo) ListBySubject(ctx context.Context, subjectID int32) ([]domain.CreditCheck, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CreditCheck), args.Error(1)
}
func (m *MockCreditCheckRepo) GetByApplicationID(ctx context.Context, applicationID int32) (*domain.CreditCheck, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditCheck), args.Error(1)
}
func (m *MockCreditCheckRepo) GetMostRecent(ctx context.Context, subjectID int32) (*domain.CreditCheck, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditCheck), args.Error(1)
}
func (m *MockCreditCheckRepo) HasCompletedSince(ctx context.Context, subjectID int32, since time.Time) (bool, error) {
	args := m.Called(ctx, subjectID, since)
	return args.Bool(0), args.Error(1)
}
func (m *MockCreditCheckRepo) HasPending(ctx context.Context, subjectID int32) (bool, error) {
	args := m.Called(ctx, subjectID)
	return args.Bool(0), args.Error(1)
}
func (m *MockCreditCheckRepo) MarkCompleted(ctx context.Context, id string, score int32, report *domain.CreditReport, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, score, report, completedAt)
	return args.Bool(0), args.Error(1)
}
func (m *MockCreditCheckRepo) MarkFailed(ctx context.Context, id string, reason string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, reason, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockCreditCheckRepo) ListPendingBefore(ctx context.Context, before time.Time) ([]domain.CreditCheck, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CreditCheck), args.Error(1)
}

// MockDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Submit(task dispatch.Task) error {
	args := m.Called(task)
	return args.Error(0)
}
func (m *MockDispatcher) Cancel(creditCheckID string) bool {
	args := m.Called(creditCheckID)
	return args.Bool(0)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendCreditCheckCompleted(ctx context.Context, email, name, referenceID string, score int32, band domain.ScoreBand) error {
	args := m.Called(ctx, email, name, referenceID, score, band)
	return args.Error(0)
}
func (m *MockEmailService) SendCreditCheckFailed(ctx context.Context, email, name, referenceID, reason string) error {
	args := m.Called(ctx, email, name, referenceID, reason)
	return args.Error(0)
}

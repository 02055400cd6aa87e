package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tenantry-backend/internal/config"
	"tenantry-backend/internal/service"
)

// mockCreditCheckService only implements what the jobs call.
type mockCreditCheckService struct {
	service.CreditCheckService
	mock.Mock
}

func (m *mockCreditCheckService) ExpireStalePending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestJobRunner_ExpireStaleCreditChecks(t *testing.T) {
	svc := new(mockCreditCheckService)
	svc.On("ExpireStalePending", mock.Anything).Return(2, nil).Once()

	jr := NewJobRunner(&Services{CreditCheck: svc}, &config.Config{})
	jr.ExpireStaleCreditChecks()

	svc.AssertExpectations(t)
}

func TestJobRunner_ErrorIsLogged(t *testing.T) {
	svc := new(mockCreditCheckService)
	svc.On("ExpireStalePending", mock.Anything).Return(0, errors.New("db down"))

	jr := NewJobRunner(&Services{CreditCheck: svc}, &config.Config{})
	assert.NotPanics(t, jr.RunAll)
}

func TestJobRunner_RecoversFromPanic(t *testing.T) {
	svc := new(mockCreditCheckService)
	svc.On("ExpireStalePending", mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return(0, nil)

	jr := NewJobRunner(&Services{CreditCheck: svc}, &config.Config{})
	assert.NotPanics(t, jr.ExpireStaleCreditChecks)
}

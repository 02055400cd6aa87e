package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantry-backend/internal/dispatch"
	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/repository/memory"
	"tenantry-backend/internal/service"
	"tenantry-backend/internal/verifier"
)

type harness struct {
	store *memory.Store
	svc   service.CreditCheckService
}

// newHarness wires the service to in-memory stores and a simulated verifier
// running behind the real dispatcher.
func newHarness(t *testing.T, delay time.Duration, now func() time.Time) *harness {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(domain.User{ID: 1, Email: "s1@example.com", FirstName: "Sam", LastName: "One", Role: domain.UserRoleTenant})
	store.Applications.Put(domain.Application{ID: 11, ApplicantID: 1, LandlordID: 2, Status: domain.ApplicationStatusSubmitted})

	d := dispatch.New(verifier.NewSimulated(42, delay), 2, 16, 0)
	svc := service.NewCreditCheckService(store.CreditChecks, store, store.Applications, d, service.NewLogEmailService(),
		service.CreditCheckOptions{Now: now})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx, svc)
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})
	return &harness{store: store, svc: svc}
}

func (h *harness) waitForStatus(t *testing.T, id string, status domain.CreditCheckStatus) *domain.CreditCheck {
	t.Helper()
	var latest *domain.CreditCheck
	require.Eventually(t, func() bool {
		c, err := h.svc.GetCreditCheck(context.Background(), id)
		if err != nil || c == nil {
			return false
		}
		latest = c
		return c.Status == status
	}, 3*time.Second, 10*time.Millisecond)
	return latest
}

var given = domain.Consent{Provided: true, Date: time.Now().UTC()}

func TestScenario_SimulatedCheckCompletes(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond, nil)
	ctx := context.Background()

	pending, err := h.svc.RequestCreditCheck(ctx, service.CreditCheckRequest{SubjectID: 1, Consent: given})
	require.NoError(t, err)
	assert.Equal(t, domain.CreditCheckStatusPending, pending.Status)
	assert.Regexp(t, referencePattern, pending.ReferenceID)

	done := h.waitForStatus(t, pending.ID, domain.CreditCheckStatusCompleted)
	require.NotNil(t, done.Score)
	assert.GreaterOrEqual(t, *done.Score, int32(550))
	assert.LessOrEqual(t, *done.Score, int32(850))
	assert.Equal(t, 3, done.Report.Summary.TotalAccounts)
	assert.Equal(t, "Sam", done.Report.SubjectName.FirstName)
	assert.True(t, done.IsConsistent())
	assert.False(t, done.CompletedDate.Before(done.RequestDate))
}

func TestScenario_RecentCheckAvailable(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	h := newHarness(t, 0, func() time.Time { return now })
	ctx := context.Background()

	ok, err := h.svc.IsRecentCheckAvailable(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "no checks yet")

	seedCompleted(h.store, "old", now.AddDate(0, 0, -91))
	ok, err = h.svc.IsRecentCheckAvailable(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "91 days is outside the window")

	seedCompleted(h.store, "edge", now.Add(-domain.RecentCheckWindow))
	ok, err = h.svc.IsRecentCheckAvailable(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok, "exactly 90 days is inside the window")

	seedCompleted(h.store, "recent", now.AddDate(0, 0, -10))
	ok, err = h.svc.IsRecentCheckAvailable(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func seedCompleted(store *memory.Store, id string, completed time.Time) {
	score := int32(701)
	store.CreditChecks.Seed(domain.CreditCheck{
		ID:            id,
		SubjectID:     1,
		Consent:       domain.Consent{Provided: true, Date: completed.Add(-time.Minute)},
		Status:        domain.CreditCheckStatusCompleted,
		ReferenceID:   "EQ-" + id,
		Score:         &score,
		Report:        &domain.CreditReport{Score: score},
		RequestDate:   completed.Add(-time.Minute),
		CompletedDate: &completed,
	})
}

func TestScenario_CompletionPropagatesToApplicationAndSubject(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, nil)
	ctx := context.Background()
	appID := int32(11)

	pending, err := h.svc.RequestCreditCheck(ctx, service.CreditCheckRequest{SubjectID: 1, LinkedApplicationID: &appID, Consent: given})
	require.NoError(t, err)
	done := h.waitForStatus(t, pending.ID, domain.CreditCheckStatusCompleted)

	app, err := h.store.Applications.GetByID(ctx, appID)
	require.NoError(t, err)
	assert.True(t, app.CreditCheck)

	subject, err := h.store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, subject.CreditScore)
	assert.Equal(t, *done.Score, *subject.CreditScore)

	byApp, err := h.svc.GetCreditCheckByApplication(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, byApp.ID)

	// A duplicate completion leaves the stored result untouched.
	require.NoError(t, h.svc.CompleteCreditCheck(ctx, pending.ID, &domain.VerificationOutcome{
		Score: 301, Report: &domain.CreditReport{Score: 301},
	}))
	again, err := h.svc.GetCreditCheck(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, *done.Score, *again.Score)
	assert.Equal(t, done.Report.Score, again.Report.Score)
	subject, _ = h.store.GetByID(ctx, 1)
	assert.Equal(t, *done.Score, *subject.CreditScore)
}

func TestScenario_LinkedApplicationMustBelongToSubject(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, nil)
	ctx := context.Background()
	h.store.PutUser(domain.User{ID: 3, Email: "s3@example.com", FirstName: "Sky", LastName: "Three", Role: domain.UserRoleTenant})

	foreign := int32(11)
	res, err := h.svc.RequestCreditCheck(ctx, service.CreditCheckRequest{SubjectID: 3, LinkedApplicationID: &foreign, Consent: given})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.Nil(t, res)

	missing := int32(999)
	res, err = h.svc.RequestCreditCheck(ctx, service.CreditCheckRequest{SubjectID: 3, LinkedApplicationID: &missing, Consent: given})
	assert.ErrorIs(t, err, service.ErrApplicationNotFound)
	assert.Nil(t, res)

	list, err := h.svc.ListCreditChecks(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, list, "rejected requests persist nothing")

	byApp, err := h.svc.GetApplicationCreditCheck(ctx, 2, foreign)
	require.NoError(t, err)
	assert.Nil(t, byApp, "landlord sees no check on the application")

	app, err := h.store.Applications.GetByID(ctx, foreign)
	require.NoError(t, err)
	assert.False(t, app.CreditCheck)
}

func TestScenario_CancelBeforeVerifierResolves(t *testing.T) {
	h := newHarness(t, 200*time.Millisecond, nil)
	ctx := context.Background()

	pending, err := h.svc.RequestCreditCheck(ctx, service.CreditCheckRequest{SubjectID: 1, Consent: given})
	require.NoError(t, err)

	cancelled, err := h.svc.CancelCreditCheck(ctx, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, cancelled)
	assert.Equal(t, domain.CreditCheckStatusFailed, cancelled.Status)

	// A late completion must not resurrect the check.
	require.NoError(t, h.svc.CompleteCreditCheck(ctx, pending.ID, &domain.VerificationOutcome{
		Score: 700, Report: &domain.CreditReport{Score: 700},
	}))
	time.Sleep(300 * time.Millisecond)

	final, err := h.svc.GetCreditCheck(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CreditCheckStatusFailed, final.Status)
	assert.Nil(t, final.Score)
	assert.Nil(t, final.Report)
	assert.Nil(t, final.CompletedDate)

	again, err := h.svc.CancelCreditCheck(ctx, pending.ID)
	assert.NoError(t, err)
	assert.Nil(t, again, "a failed check is not cancellable")

	subject, _ := h.store.GetByID(ctx, 1)
	assert.Nil(t, subject.CreditScore)
}

func TestScenario_ReferenceIDsAreUnique(t *testing.T) {
	h := newHarness(t, time.Hour, nil)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 12; i++ {
		c, err := h.svc.RequestCreditCheck(ctx, service.CreditCheckRequest{SubjectID: 1, Consent: given})
		require.NoError(t, err)
		_, dup := seen[c.ReferenceID]
		assert.False(t, dup, "reference %s reused", c.ReferenceID)
		seen[c.ReferenceID] = struct{}{}
	}

	list, err := h.svc.ListCreditChecks(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 12)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].RequestDate.After(list[i-1].RequestDate), "newest first")
	}
}

func TestScenario_StalePendingExpires(t *testing.T) {
	now := time.Now().UTC()
	clock := func() time.Time { return now }
	h := newHarness(t, time.Hour, clock)
	ctx := context.Background()

	pending, err := h.svc.RequestCreditCheck(ctx, service.CreditCheckRequest{SubjectID: 1, Consent: given})
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	n, err := h.svc.ExpireStalePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	final, err := h.svc.GetCreditCheck(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CreditCheckStatusFailed, final.Status)
	assert.Equal(t, "verification timed out", final.FailureReason)
}

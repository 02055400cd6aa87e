package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/repository"
)

func newPending(id, ref string, subject int32, at time.Time) *domain.CreditCheck {
	return &domain.CreditCheck{
		ID:          id,
		SubjectID:   subject,
		Consent:     domain.Consent{Provided: true, Date: at},
		Status:      domain.CreditCheckStatusPending,
		ReferenceID: ref,
		RequestDate: at,
	}
}

func TestCreditCheckStore_FirstTerminalWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewStore().CreditChecks
	now := time.Now()
	require.NoError(t, store.Create(ctx, newPending("a", "EQ-1-1", 1, now)))

	failed, err := store.MarkFailed(ctx, "a", "cancelled", now)
	require.NoError(t, err)
	assert.True(t, failed)

	completed, err := store.MarkCompleted(ctx, "a", 700, &domain.CreditReport{Score: 700}, now)
	require.NoError(t, err)
	assert.False(t, completed)

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.CreditCheckStatusFailed, got.Status)
	assert.Nil(t, got.Score)
	assert.Nil(t, got.Report)
}

func TestCreditCheckStore_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	store := NewStore().CreditChecks
	now := time.Now()
	require.NoError(t, store.Create(ctx, newPending("a", "EQ-1-1", 1, now)))

	err := store.Create(ctx, newPending("b", "EQ-1-1", 1, now))
	assert.ErrorIs(t, err, repository.ErrDuplicateReference)
}

func TestCreditCheckStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := NewStore().CreditChecks
	now := time.Now()
	require.NoError(t, store.Create(ctx, newPending("old", "EQ-1-1", 1, now.Add(-2*time.Hour))))
	require.NoError(t, store.Create(ctx, newPending("new", "EQ-1-2", 1, now)))
	require.NoError(t, store.Create(ctx, newPending("other", "EQ-1-3", 2, now)))

	list, err := store.ListBySubject(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)

	recent, err := store.GetMostRecent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", recent.ID)

	stale, err := store.ListPendingBefore(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}

func TestCreditCheckStore_OrderingTieBreaksOnID(t *testing.T) {
	ctx := context.Background()
	store := NewStore().CreditChecks
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"b", "d", "a", "c"} {
		require.NoError(t, store.Create(ctx, newPending(id, "EQ-"+id, 1, now)))
	}

	for i := 0; i < 20; i++ {
		list, err := store.ListBySubject(ctx, 1)
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, c := range list {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []string{"d", "c", "b", "a"}, ids)

		recent, err := store.GetMostRecent(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "d", recent.ID)

		stale, err := store.ListPendingBefore(ctx, now.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, stale, 4)
		assert.Equal(t, "a", stale[0].ID)
	}
}

func TestStore_UpdateCreditScore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutUser(domain.User{ID: 1, FirstName: "Ana"})

	require.NoError(t, store.UpdateCreditScore(ctx, 1, 640))
	u, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(640), *u.CreditScore)

	assert.ErrorIs(t, store.UpdateCreditScore(ctx, 99, 640), repository.ErrNotFound)
}

func TestCreditCheckStore_HasCompletedSinceAndPending(t *testing.T) {
	ctx := context.Background()
	store := NewStore().CreditChecks
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	since := now.Add(-domain.RecentCheckWindow)

	require.NoError(t, store.Create(ctx, newPending("old", "EQ-1-1", 1, since.Add(-time.Hour))))
	_, err := store.MarkCompleted(ctx, "old", 700, &domain.CreditReport{Score: 700}, since.Add(-time.Second))
	require.NoError(t, err)

	fresh, err := store.HasCompletedSince(ctx, 1, since)
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, store.Create(ctx, newPending("edge", "EQ-1-2", 1, since.Add(-time.Minute))))
	_, err = store.MarkCompleted(ctx, "edge", 710, &domain.CreditReport{Score: 710}, since)
	require.NoError(t, err)

	fresh, err = store.HasCompletedSince(ctx, 1, since)
	require.NoError(t, err)
	assert.True(t, fresh)

	pending, err := store.HasPending(ctx, 1)
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, store.Create(ctx, newPending("new", "EQ-1-3", 1, now)))
	pending, err = store.HasPending(ctx, 1)
	require.NoError(t, err)
	assert.True(t, pending)

	stale, err := store.ListPendingBefore(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "new", stale[0].ID)
}

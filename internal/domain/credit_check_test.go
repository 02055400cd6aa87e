package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreditCheckStatus_IsTerminal(t *testing.T) {
	assert.False(t, CreditCheckStatusPending.IsTerminal())
	assert.True(t, CreditCheckStatusCompleted.IsTerminal())
	assert.True(t, CreditCheckStatusFailed.IsTerminal())
}

func TestCreditCheck_IsConsistent(t *testing.T) {
	requested := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	completed := requested.Add(5 * time.Second)

	t.Run("Pending Without Result", func(t *testing.T) {
		c := &CreditCheck{Status: CreditCheckStatusPending, RequestDate: requested}
		assert.True(t, c.IsConsistent())
	})

	t.Run("Pending With Score", func(t *testing.T) {
		c := &CreditCheck{Status: CreditCheckStatusPending, RequestDate: requested, Score: ptr(int32(700))}
		assert.False(t, c.IsConsistent())
	})

	t.Run("Completed Populated", func(t *testing.T) {
		c := &CreditCheck{
			Status:        CreditCheckStatusCompleted,
			RequestDate:   requested,
			Score:         ptr(int32(742)),
			Report:        &CreditReport{Score: 742},
			CompletedDate: &completed,
		}
		assert.True(t, c.IsConsistent())
	})

	t.Run("Completed Score Mismatch", func(t *testing.T) {
		c := &CreditCheck{
			Status:        CreditCheckStatusCompleted,
			RequestDate:   requested,
			Score:         ptr(int32(742)),
			Report:        &CreditReport{Score: 700},
			CompletedDate: &completed,
		}
		assert.False(t, c.IsConsistent())
	})

	t.Run("Completed Missing Report", func(t *testing.T) {
		c := &CreditCheck{Status: CreditCheckStatusCompleted, RequestDate: requested, Score: ptr(int32(742)), CompletedDate: &completed}
		assert.False(t, c.IsConsistent())
	})

	t.Run("Completed Before Request", func(t *testing.T) {
		early := requested.Add(-time.Minute)
		c := &CreditCheck{
			Status:        CreditCheckStatusCompleted,
			RequestDate:   requested,
			Score:         ptr(int32(742)),
			Report:        &CreditReport{Score: 742},
			CompletedDate: &early,
		}
		assert.False(t, c.IsConsistent())
	})

	t.Run("Failed Without Result", func(t *testing.T) {
		c := &CreditCheck{Status: CreditCheckStatusFailed, RequestDate: requested, FailureReason: "bureau unavailable"}
		assert.True(t, c.IsConsistent())
	})
}

func TestApplication_CanView(t *testing.T) {
	app := &Application{ID: 3, ApplicantID: 7, LandlordID: 9}
	assert.True(t, app.CanView(7))
	assert.True(t, app.CanView(9))
	assert.False(t, app.CanView(8))
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Ana Lima", (&User{FirstName: "Ana", LastName: "Lima"}).FullName())
	assert.Equal(t, "Ana", (&User{FirstName: "Ana"}).FullName())
	assert.Equal(t, "Lima", (&User{LastName: "Lima"}).FullName())
}

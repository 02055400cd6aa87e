package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantry-backend/internal/domain"
)

func TestSimulated_Reproducible(t *testing.T) {
	req := domain.VerificationRequest{ReferenceID: "EQ-1-1", Personal: domain.PersonalInfo{FirstName: "Ana", LastName: "Lee"}}

	a := NewSimulated(42, 0)
	b := NewSimulated(42, 0)
	for i := 0; i < 20; i++ {
		oa, err := a.Verify(context.Background(), req)
		require.NoError(t, err)
		ob, err := b.Verify(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, oa.Score, ob.Score)

		assert.GreaterOrEqual(t, oa.Score, int32(SimulatedMinScore))
		assert.LessOrEqual(t, oa.Score, int32(SimulatedMaxScore))
		assert.Equal(t, oa.Score, oa.Report.Score)
		assert.Equal(t, 3, oa.Report.Summary.TotalAccounts)
		assert.Len(t, oa.Report.Inquiries, 2)
		assert.NotEmpty(t, oa.Report.ScoreFactors)
	}
}

func TestSimulated_HonoursCancellation(t *testing.T) {
	sim := NewSimulated(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := sim.Verify(ctx, domain.VerificationRequest{})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulated_SummaryUtilization(t *testing.T) {
	out, err := NewSimulated(7, 0).Verify(context.Background(), domain.VerificationRequest{})
	require.NoError(t, err)

	card := out.Report.Tradelines[0]
	require.NotNil(t, card.CreditLimit)
	expected := float64(int(card.Balance/(*card.CreditLimit)*1000+0.5)) / 10
	assert.InDelta(t, expected, out.Report.Summary.UtilizationPercent, 0.1)
}

func newBureau(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"bureau-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/credit-reports", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newLive(srv *httptest.Server) *Live {
	return NewLive(LiveConfig{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/oauth/token",
		APIKey:       "api-key",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Timeout:      5 * time.Second,
	})
}

func TestLive_Completed(t *testing.T) {
	limit := 5000.0
	srv := newBureau(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bureau-token", r.Header.Get("Authorization"))
		assert.Equal(t, "api-key", r.Header.Get("X-API-Key"))

		var body bureauRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "EQ-9-9", body.ReferenceID)
		assert.Equal(t, "046-454-286", body.Consumer.SIN)

		_ = json.NewEncoder(w).Encode(BureauResponse{
			ReferenceID: body.ReferenceID,
			Status:      BureauStatusCompleted,
			Report: &BureauReport{
				CreditScore:  731,
				ScoreFactors: []string{"Low utilization"},
				Tradelines: []BureauTradeline{
					{AccountType: "Credit Card", Balance: 1000, CreditLimit: &limit, PaymentStatus: "Current", Revolving: true},
					{AccountType: "Line of Credit", Balance: 0, PaymentStatus: "Paid and Closed", Closed: true},
				},
			},
		})
	})

	out, err := newLive(srv).Verify(context.Background(), domain.VerificationRequest{
		ReferenceID: "EQ-9-9",
		Personal:    domain.PersonalInfo{GovernmentID: "046-454-286"},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(731), out.Score)
	assert.Equal(t, domain.ScoreBandVeryGood, out.Report.Band())
	assert.Equal(t, 2, out.Report.Summary.TotalAccounts)
	assert.Equal(t, 1, out.Report.Summary.ClosedAccounts)
	assert.Equal(t, 20.0, out.Report.Summary.UtilizationPercent)
}

func TestLive_Pending(t *testing.T) {
	srv := newBureau(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(BureauResponse{Status: BureauStatusPending})
	})

	out, err := newLive(srv).Verify(context.Background(), domain.VerificationRequest{ReferenceID: "EQ-1-1"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrAwaitingCallback)
}

func TestLive_ServerError(t *testing.T) {
	srv := newBureau(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	out, err := newLive(srv).Verify(context.Background(), domain.VerificationRequest{ReferenceID: "EQ-1-1"})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

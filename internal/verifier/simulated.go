package verifier

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"tenantry-backend/internal/domain"
)

const (
	SimulatedMinScore = 550
	SimulatedMaxScore = 850
)

// Simulated produces representative reports after a fixed delay. The seed makes
// the sequence of generated scores reproducible.
type Simulated struct {
	delay time.Duration
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulated(seed int64, delay time.Duration) *Simulated {
	return &Simulated{
		delay: delay,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Verify(ctx context.Context, req domain.VerificationRequest) (*domain.VerificationOutcome, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	report := s.generate(req)
	return &domain.VerificationOutcome{Score: report.Score, Report: report}, nil
}

func (s *Simulated) generate(req domain.VerificationRequest) *domain.CreditReport {
	s.mu.Lock()
	score := int32(SimulatedMinScore + s.rng.Intn(SimulatedMaxScore-SimulatedMinScore+1))
	cardBalance := roundCents(500 + s.rng.Float64()*4500)
	autoBalance := roundCents(8000 + s.rng.Float64()*12000)
	studentBalance := roundCents(5000 + s.rng.Float64()*15000)
	s.mu.Unlock()

	now := s.now().UTC()
	lastPayment := now.AddDate(0, 0, -14)
	cardLimit := 10000.0
	cardPayment := roundCents(math.Max(25, cardBalance*0.03))
	autoPayment := 425.0
	studentPayment := 210.0

	status := domain.PaymentStatusCurrent
	if score < 600 {
		status = domain.PaymentStatusLate30
	}

	tradelines := []domain.Tradeline{
		{
			AccountType:     "Credit Card",
			CreditorName:    "Maple Bank Visa",
			Balance:         cardBalance,
			CreditLimit:     &cardLimit,
			MonthlyPayment:  &cardPayment,
			OpenDate:        now.AddDate(-6, -2, 0),
			PaymentStatus:   status,
			LastPaymentDate: &lastPayment,
			Revolving:       true,
		},
		{
			AccountType:     "Auto Loan",
			CreditorName:    "Northern Auto Finance",
			Balance:         autoBalance,
			MonthlyPayment:  &autoPayment,
			OpenDate:        now.AddDate(-2, -5, 0),
			PaymentStatus:   domain.PaymentStatusCurrent,
			LastPaymentDate: &lastPayment,
		},
		{
			AccountType:     "Student Loan",
			CreditorName:    "National Student Loans Service Centre",
			Balance:         studentBalance,
			MonthlyPayment:  &studentPayment,
			OpenDate:        now.AddDate(-8, 0, 0),
			PaymentStatus:   domain.PaymentStatusCurrent,
			LastPaymentDate: &lastPayment,
		},
	}

	return &domain.CreditReport{
		SubjectName: domain.SubjectName{
			FirstName: req.Personal.FirstName,
			LastName:  req.Personal.LastName,
		},
		Score:        score,
		ScoreFactors: scoreFactors(score),
		Tradelines:   tradelines,
		Inquiries: []domain.Inquiry{
			{Date: now.AddDate(0, -4, 0), Inquirer: "Maple Bank", Type: "Credit Card Application"},
			{Date: now.AddDate(-1, -1, 0), Inquirer: "Northern Auto Finance", Type: "Auto Loan"},
		},
		ConsumerStatements: []string{},
		PublicRecords:      []domain.PublicRecord{},
		Summary:            domain.Summarize(tradelines),
		ReportDate:         now,
	}
}

func scoreFactors(score int32) []string {
	switch domain.BandForScore(score) {
	case domain.ScoreBandExcellent, domain.ScoreBandVeryGood:
		return []string{
			"Long history of on-time payments",
			"Low revolving credit utilization",
			"Mix of revolving and installment credit",
		}
	case domain.ScoreBandGood:
		return []string{
			"Consistent on-time payments",
			"Moderate revolving credit utilization",
			"Recent credit inquiries",
		}
	case domain.ScoreBandFair:
		return []string{
			"High revolving credit utilization",
			"Limited length of credit history",
			"Multiple recent credit inquiries",
		}
	default:
		return []string{
			"Recent late payments reported",
			"High revolving credit utilization",
			"Multiple recent credit inquiries",
		}
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

package domain

import (
	"math"
	"strings"
	"time"
)

const (
	MinCreditScore int32 = 300
	MaxCreditScore int32 = 900
)

type ScoreBand string

const (
	ScoreBandPoor      ScoreBand = "Poor"
	ScoreBandFair      ScoreBand = "Fair"
	ScoreBandGood      ScoreBand = "Good"
	ScoreBandVeryGood  ScoreBand = "Very Good"
	ScoreBandExcellent ScoreBand = "Excellent"
)

// BandForScore buckets a score into its qualitative band.
func BandForScore(score int32) ScoreBand {
	switch {
	case score >= 760:
		return ScoreBandExcellent
	case score >= 725:
		return ScoreBandVeryGood
	case score >= 660:
		return ScoreBandGood
	case score >= 600:
		return ScoreBandFair
	default:
		return ScoreBandPoor
	}
}

// ValidScore reports whether the score lies within the bureau range.
func ValidScore(score int32) bool {
	return score >= MinCreditScore && score <= MaxCreditScore
}

type SubjectName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PaymentStatus values reported on a tradeline.
const (
	PaymentStatusCurrent    = "Current"
	PaymentStatusPaidClosed = "Paid and Closed"
	PaymentStatusLate30     = "30 Days Late"
	PaymentStatusLate60     = "60 Days Late"
	PaymentStatusLate90     = "90+ Days Late"
	PaymentStatusCollection = "Collection"
)

type Tradeline struct {
	AccountType     string     `json:"account_type"`
	CreditorName    string     `json:"creditor_name,omitempty"`
	Balance         float64    `json:"balance"`
	CreditLimit     *float64   `json:"credit_limit,omitempty"`
	MonthlyPayment  *float64   `json:"monthly_payment,omitempty"`
	OpenDate        time.Time  `json:"open_date"`
	PaymentStatus   string     `json:"payment_status"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
	PastDueAmount   *float64   `json:"past_due_amount,omitempty"`
	Revolving       bool       `json:"revolving"`
	Closed          bool       `json:"closed"`
}

// IsDelinquent reports a tradeline that is late, in collection or carries a past-due amount.
func (t Tradeline) IsDelinquent() bool {
	if t.PastDueAmount != nil && *t.PastDueAmount > 0 {
		return true
	}
	status := strings.ToLower(t.PaymentStatus)
	return strings.Contains(status, "late") || strings.Contains(status, "collection")
}

type Inquiry struct {
	Date     time.Time `json:"date"`
	Inquirer string    `json:"inquirer"`
	Type     string    `json:"type,omitempty"`
}

type PublicRecord struct {
	Type     string    `json:"type"`
	Filed    time.Time `json:"filed"`
	Amount   *float64  `json:"amount,omitempty"`
	Status   string    `json:"status"`
	Court    string    `json:"court,omitempty"`
	Resolved *bool     `json:"resolved,omitempty"`
}

type CreditSummary struct {
	TotalAccounts       int     `json:"total_accounts"`
	OpenAccounts        int     `json:"open_accounts"`
	ClosedAccounts      int     `json:"closed_accounts"`
	DelinquentAccounts  int     `json:"delinquent_accounts"`
	TotalBalance        float64 `json:"total_balance"`
	TotalMonthlyPayment float64 `json:"total_monthly_payment"`
	UtilizationPercent  float64 `json:"utilization_percent"`
}

type CreditReport struct {
	SubjectName        SubjectName    `json:"subject_name"`
	Score              int32          `json:"score"`
	ScoreFactors       []string       `json:"score_factors"`
	Tradelines         []Tradeline    `json:"tradelines"`
	Inquiries          []Inquiry      `json:"inquiries"`
	ConsumerStatements []string       `json:"consumer_statements"`
	PublicRecords      []PublicRecord `json:"public_records"`
	Summary            CreditSummary  `json:"summary"`
	ReportDate         time.Time      `json:"report_date"`
}

func (r *CreditReport) Band() ScoreBand {
	return BandForScore(r.Score)
}

// Summarize aggregates tradelines. Utilization is balance over limit across
// revolving accounts that report a limit, rounded to one decimal.
func Summarize(tradelines []Tradeline) CreditSummary {
	var s CreditSummary
	var revolvingBalance, revolvingLimit float64
	for _, t := range tradelines {
		s.TotalAccounts++
		if t.Closed {
			s.ClosedAccounts++
		} else {
			s.OpenAccounts++
		}
		if t.IsDelinquent() {
			s.DelinquentAccounts++
		}
		s.TotalBalance += t.Balance
		if t.MonthlyPayment != nil && !t.Closed {
			s.TotalMonthlyPayment += *t.MonthlyPayment
		}
		if t.Revolving && t.CreditLimit != nil && *t.CreditLimit > 0 {
			revolvingBalance += t.Balance
			revolvingLimit += *t.CreditLimit
		}
	}
	if revolvingLimit > 0 {
		s.UtilizationPercent = math.Round(revolvingBalance/revolvingLimit*1000) / 10
	}
	return s
}

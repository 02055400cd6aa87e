package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/logger"
)

const (
	BureauStatusCompleted = "completed"
	BureauStatusPending   = "pending"
	BureauStatusFailed    = "failed"
)

type LiveConfig struct {
	BaseURL      string
	TokenURL     string
	APIKey       string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// Live calls the bureau's report endpoint using OAuth2 client credentials plus
// the account API key.
type Live struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewLive(cfg LiveConfig) *Live {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = timeout

	return &Live{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

func (l *Live) Name() string { return "live" }

type bureauConsumer struct {
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	SIN            string `json:"sin,omitempty"`
	CurrentAddress string `json:"currentAddress,omitempty"`
}

type bureauRequest struct {
	ReferenceID string         `json:"referenceId"`
	Consumer    bureauConsumer `json:"consumer"`
}

// BureauResponse is the bureau's reply, also posted to the webhook.
type BureauResponse struct {
	ReferenceID string        `json:"referenceId"`
	Status      string        `json:"status"`
	Report      *BureauReport `json:"report,omitempty"`
	Error       string        `json:"error,omitempty"`
}

type BureauTradeline struct {
	AccountType     string     `json:"accountType"`
	CreditorName    string     `json:"creditorName,omitempty"`
	Balance         float64    `json:"balance"`
	CreditLimit     *float64   `json:"creditLimit,omitempty"`
	MonthlyPayment  *float64   `json:"monthlyPayment,omitempty"`
	OpenDate        time.Time  `json:"openDate"`
	PaymentStatus   string     `json:"paymentStatus"`
	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`
	PastDueAmount   *float64   `json:"pastDueAmount,omitempty"`
	Revolving       bool       `json:"revolving"`
	Closed          bool       `json:"closed"`
}

type BureauInquiry struct {
	Date     time.Time `json:"date"`
	Inquirer string    `json:"inquirer"`
	Type     string    `json:"type,omitempty"`
}

type BureauPublicRecord struct {
	Type   string    `json:"type"`
	Filed  time.Time `json:"filed"`
	Amount *float64  `json:"amount,omitempty"`
	Status string    `json:"status"`
	Court  string    `json:"court,omitempty"`
}

type BureauReport struct {
	CreditScore        int32                `json:"creditScore"`
	ScoreFactors       []string             `json:"scoreFactors"`
	Tradelines         []BureauTradeline    `json:"tradelines"`
	Inquiries          []BureauInquiry      `json:"inquiries"`
	ConsumerStatements []string             `json:"consumerStatements"`
	PublicRecords      []BureauPublicRecord `json:"publicRecords"`
	ReportDate         time.Time            `json:"reportDate"`
}

// ToOutcome maps the bureau report onto the domain model. The summary is
// recomputed from the tradelines rather than trusted from the wire.
func (b *BureauReport) ToOutcome() *domain.VerificationOutcome {
	report := &domain.CreditReport{
		Score:              b.CreditScore,
		ScoreFactors:       append([]string{}, b.ScoreFactors...),
		ConsumerStatements: append([]string{}, b.ConsumerStatements...),
		ReportDate:         b.ReportDate,
	}
	for _, t := range b.Tradelines {
		report.Tradelines = append(report.Tradelines, domain.Tradeline{
			AccountType:     t.AccountType,
			CreditorName:    t.CreditorName,
			Balance:         t.Balance,
			CreditLimit:     t.CreditLimit,
			MonthlyPayment:  t.MonthlyPayment,
			OpenDate:        t.OpenDate,
			PaymentStatus:   t.PaymentStatus,
			LastPaymentDate: t.LastPaymentDate,
			PastDueAmount:   t.PastDueAmount,
			Revolving:       t.Revolving,
			Closed:          t.Closed,
		})
	}
	for _, q := range b.Inquiries {
		report.Inquiries = append(report.Inquiries, domain.Inquiry{Date: q.Date, Inquirer: q.Inquirer, Type: q.Type})
	}
	report.PublicRecords = []domain.PublicRecord{}
	for _, p := range b.PublicRecords {
		report.PublicRecords = append(report.PublicRecords, domain.PublicRecord{
			Type: p.Type, Filed: p.Filed, Amount: p.Amount, Status: p.Status, Court: p.Court,
		})
	}
	if report.ReportDate.IsZero() {
		report.ReportDate = time.Now().UTC()
	}
	report.Summary = domain.Summarize(report.Tradelines)
	return &domain.VerificationOutcome{Score: report.Score, Report: report}
}

func (l *Live) Verify(ctx context.Context, req domain.VerificationRequest) (*domain.VerificationOutcome, error) {
	body, err := json.Marshal(bureauRequest{
		ReferenceID: req.ReferenceID,
		Consumer: bureauConsumer{
			FirstName:      req.Personal.FirstName,
			LastName:       req.Personal.LastName,
			DateOfBirth:    req.Personal.DateOfBirth,
			SIN:            req.Personal.GovernmentID,
			CurrentAddress: req.Personal.CurrentAddress,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode bureau request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v1/credit-reports", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", l.apiKey)

	logger.ExternalServiceCall("credit-bureau", "POST /v1/credit-reports", "reference_id", req.ReferenceID)
	resp, err := l.client.Do(httpReq)
	if err != nil {
		logger.ExternalServiceResult("credit-bureau", "POST /v1/credit-reports", err, "reference_id", req.ReferenceID)
		return nil, fmt.Errorf("call credit bureau: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read bureau response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("credit bureau error: status %d, body: %s", resp.StatusCode, truncate(string(raw), 256))
		logger.ExternalServiceResult("credit-bureau", "POST /v1/credit-reports", err, "reference_id", req.ReferenceID)
		return nil, err
	}
	logger.ExternalServiceResult("credit-bureau", "POST /v1/credit-reports", nil, "reference_id", req.ReferenceID, "status_code", resp.StatusCode)

	var out BureauResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode bureau response: %w", err)
	}
	switch out.Status {
	case BureauStatusCompleted:
		if out.Report == nil {
			return nil, fmt.Errorf("credit bureau returned completed status without a report")
		}
		return out.Report.ToOutcome(), nil
	case BureauStatusPending:
		return nil, ErrAwaitingCallback
	default:
		if out.Error == "" {
			out.Error = "status " + out.Status
		}
		return nil, fmt.Errorf("credit bureau rejected request: %s", out.Error)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

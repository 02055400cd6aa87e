package http

import (
	"time"

	"tenantry-backend/internal/domain"
)

type CreditCheckResponse struct {
	ID                  string               `json:"id"`
	SubjectID           int32                `json:"subject_id"`
	LinkedApplicationID *int32               `json:"linked_application_id,omitempty"`
	Status              string               `json:"status"`
	ReferenceID         string               `json:"reference_id"`
	ConsentProvided     bool                 `json:"consent_provided"`
	ConsentDate         time.Time            `json:"consent_date"`
	Score               *int32               `json:"score"`
	ScoreBand           string               `json:"score_band,omitempty"`
	Report              *domain.CreditReport `json:"report"`
	FailureReason       string               `json:"failure_reason,omitempty"`
	RequestDate         time.Time            `json:"request_date"`
	CompletedDate       *time.Time           `json:"completed_date"`
}

func MapDomainCreditCheckToResponse(c *domain.CreditCheck) CreditCheckResponse {
	res := CreditCheckResponse{
		ID:                  c.ID,
		SubjectID:           c.SubjectID,
		LinkedApplicationID: c.LinkedApplicationID,
		Status:              string(c.Status),
		ReferenceID:         c.ReferenceID,
		ConsentProvided:     c.Consent.Provided,
		ConsentDate:         c.Consent.Date,
		Score:               c.Score,
		Report:              c.Report,
		FailureReason:       c.FailureReason,
		RequestDate:         c.RequestDate,
		CompletedDate:       c.CompletedDate,
	}
	if c.Score != nil {
		res.ScoreBand = string(domain.BandForScore(*c.Score))
	}
	return res
}

func MapDomainCreditChecksToResponse(checks []domain.CreditCheck) []CreditCheckResponse {
	out := make([]CreditCheckResponse, 0, len(checks))
	for i := range checks {
		out = append(out, MapDomainCreditCheckToResponse(&checks[i]))
	}
	return out
}

type requestCreditCheckBody struct {
	LinkedApplicationID *int32 `json:"linked_application_id"`
	Consent             struct {
		Provided bool       `json:"provided"`
		Date     *time.Time `json:"date"`
	} `json:"consent"`
	Personal domain.PersonalInfo `json:"personal"`
}

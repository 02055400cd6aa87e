package domain

import "time"

type CreditCheckStatus string

const (
	CreditCheckStatusPending   CreditCheckStatus = "pending"
	CreditCheckStatusCompleted CreditCheckStatus = "completed"
	CreditCheckStatusFailed    CreditCheckStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed out of the status.
func (s CreditCheckStatus) IsTerminal() bool {
	return s == CreditCheckStatusCompleted || s == CreditCheckStatusFailed
}

// RecentCheckWindow is how long a completed check counts as fresh enough to
// avoid another hard inquiry.
const RecentCheckWindow = 90 * 24 * time.Hour

type Consent struct {
	Provided bool      `json:"provided"`
	Date     time.Time `json:"date"`
}

type CreditCheck struct {
	ID                  string            `json:"id"`
	SubjectID           int32             `json:"subject_id"`
	LinkedApplicationID *int32            `json:"linked_application_id,omitempty"`
	Consent             Consent           `json:"consent"`
	Status              CreditCheckStatus `json:"status"`
	ReferenceID         string            `json:"reference_id"`
	Score               *int32            `json:"score,omitempty"`
	Report              *CreditReport     `json:"report,omitempty"`
	FailureReason       string            `json:"failure_reason,omitempty"`
	RequestDate         time.Time         `json:"request_date"`
	CompletedDate       *time.Time        `json:"completed_date,omitempty"`
	UpdatedOn           time.Time         `json:"updated_on"`
}

// IsConsistent checks the completed-iff-populated invariant. A completed check
// carries score, report and completion date and its score mirrors the report.
func (c *CreditCheck) IsConsistent() bool {
	populated := c.Score != nil && c.Report != nil && c.CompletedDate != nil
	if c.Status != CreditCheckStatusCompleted {
		return c.Score == nil && c.Report == nil && c.CompletedDate == nil
	}
	if !populated {
		return false
	}
	return *c.Score == c.Report.Score && !c.CompletedDate.Before(c.RequestDate)
}

// PersonalInfo is passed through to the verifier and never persisted.
type PersonalInfo struct {
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	GovernmentID   string `json:"government_id,omitempty"`
	CurrentAddress string `json:"current_address,omitempty"`
}

// VerificationRequest is what a verifier needs to pull a report.
type VerificationRequest struct {
	CreditCheckID string       `json:"credit_check_id"`
	ReferenceID   string       `json:"reference_id"`
	SubjectID     int32        `json:"subject_id"`
	Personal      PersonalInfo `json:"personal"`
}

// VerificationOutcome is the verifier's result for a single request.
type VerificationOutcome struct {
	Score  int32         `json:"score"`
	Report *CreditReport `json:"report"`
}

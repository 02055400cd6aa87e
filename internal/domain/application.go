package domain

type ApplicationStatus string

const (
	ApplicationStatusDraft     ApplicationStatus = "DRAFT"
	ApplicationStatusSubmitted ApplicationStatus = "SUBMITTED"
	ApplicationStatusApproved  ApplicationStatus = "APPROVED"
	ApplicationStatusRejected  ApplicationStatus = "REJECTED"
	ApplicationStatusWithdrawn ApplicationStatus = "WITHDRAWN"
)

// Application is a tenant's rental application for a property.
type Application struct {
	ID          int32             `json:"id"`
	PropertyID  int32             `json:"property_id"`
	ApplicantID int32             `json:"applicant_id"`
	LandlordID  int32             `json:"landlord_id"`
	Status      ApplicationStatus `json:"status"`
	// CreditCheck is set once a linked credit check completes.
	CreditCheck bool   `json:"credit_check"`
	CreatedOn   string `json:"created_on"`
	UpdatedOn   string `json:"updated_on"`
}

// CanView reports whether the user may see the application's credit data.
func (a *Application) CanView(userID int32) bool {
	return a.ApplicantID == userID || a.LandlordID == userID
}

package domain

type UserRole string

const (
	UserRoleTenant   UserRole = "TENANT"
	UserRoleLandlord UserRole = "LANDLORD"
	UserRoleAdmin    UserRole = "ADMIN"
)

// User is a portal account. Tenants are the subjects of credit checks.
type User struct {
	ID          int32    `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Role        UserRole `json:"role"`
	CreditScore *int32   `json:"credit_score,omitempty"` // mirrors the latest completed check
	CreatedOn   string   `json:"created_on"`
	UpdatedOn   string   `json:"updated_on"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	if u.FirstName == "" {
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

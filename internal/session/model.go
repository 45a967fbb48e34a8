package session

import "encoding/json"

type Role string

const (
	RolePharmacy  Role = "pharmacy"
	RoleSupplier  Role = "supplier"
	RoleLogistics Role = "logistics"
	RoleRegulator Role = "regulator"
	RoleAdmin     Role = "admin"
	// RoleUnauth is an authenticated actor whose enterprise is not verified yet.
	RoleUnauth Role = "unauth"
)

func (r Role) Valid() bool {
	switch r {
	case RolePharmacy, RoleSupplier, RoleLogistics, RoleRegulator, RoleAdmin, RoleUnauth:
		return true
	}
	return false
}

// User is the profile persisted next to the token. Tenant is kept verbatim
// because its shape belongs to the backend.
type User struct {
	ID              int64           `json:"id"`
	Username        string          `json:"username"`
	Email           string          `json:"email,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	RealName        string          `json:"real_name,omitempty"`
	CompanyName     string          `json:"company_name,omitempty"`
	Role            Role            `json:"role"`
	TenantID        *int64          `json:"tenant_id,omitempty"`
	IsAuthenticated bool            `json:"is_authenticated"`
	IsActive        bool            `json:"is_active"`
	Tenant          json.RawMessage `json:"tenant,omitempty"`
}

type Session struct {
	Token string
	User  User
}

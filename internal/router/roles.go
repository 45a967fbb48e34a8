package router

import "shdrug/client/internal/session"

var roleLabels = map[session.Role]string{
	session.RolePharmacy:  "Pharmacy",
	session.RoleSupplier:  "Supplier",
	session.RoleLogistics: "Logistics",
	session.RoleRegulator: "Regulator",
	session.RoleAdmin:     "Administrator",
	session.RoleUnauth:    "Unverified",
}

// HomeFor is where an actor lands after signing in.
func HomeFor(role session.Role) string {
	if role == session.RoleUnauth {
		return "/unauth"
	}
	return "/"
}

func RoleLabel(role session.Role) string {
	if role == "" {
		return "Signed out"
	}
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return "Unknown role"
}

// IsApprovedRole reports whether the actor's enterprise has been verified.
func IsApprovedRole(role session.Role) bool {
	return role != "" && role != session.RoleUnauth
}

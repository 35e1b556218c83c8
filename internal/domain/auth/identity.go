// Package auth describes authenticated callers. Token issuance and password
// handling live outside this service; only verified identities reach here.
package auth

import "slices"

// Role is a coarse permission granted to an identity.
type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleSeller   Role = "ROLE_SELLER"
	RoleAdmin    Role = "ROLE_ADMIN"
)

// ParseRole accepts both "ROLE_ADMIN" and the short "admin" form.
func ParseRole(s string) (Role, bool) {
	switch s {
	case string(RoleCustomer), "customer":
		return RoleCustomer, true
	case string(RoleSeller), "seller":
		return RoleSeller, true
	case string(RoleAdmin), "admin":
		return RoleAdmin, true
	}
	return "", false
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID string
	Roles  []Role
}

// HasRole reports whether the identity holds any of roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if slices.Contains(i.Roles, r) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity holds RoleAdmin.
func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// Package access holds the authorization model of the dashboard: the closed
// role set, the caller principal, per-resource policies and the query scoping
// that enforces the same rules at the data layer.
package access

import "strings"

// Role is the wire tag of a user role.
type Role string

const (
	// RoleAdmin is unrestricted.
	RoleAdmin Role = "ADMIN"
	// RoleCustomerL1 administers a customer institution.
	RoleCustomerL1 Role = "CUSTOMER_L1"
	// RoleCustomerL2 is an individual customer user.
	RoleCustomerL2 Role = "CUSTOMER_L2"
	// RoleProviderL1 administers a service-provider institution.
	RoleProviderL1 Role = "PROVIDER_L1"
	// RoleProviderL2 is an individual provider user.
	RoleProviderL2 Role = "PROVIDER_L2"
	// RoleGuest is authenticated but has no resource access.
	RoleGuest Role = "GUEST"
)

var allRoles = []Role{RoleAdmin, RoleCustomerL1, RoleCustomerL2, RoleProviderL1, RoleProviderL2, RoleGuest}

// Roles returns the closed role enumeration.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole maps a wire tag onto the closed enumeration.
func ParseRole(raw string) (Role, bool) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, r := range allRoles {
		if r == candidate {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r belongs to the enumeration.
func (r Role) Valid() bool {
	return containsRole(allRoles, r)
}

// IsCustomer reports whether r acts on the customer side.
func (r Role) IsCustomer() bool {
	return r == RoleCustomerL1 || r == RoleCustomerL2
}

// IsProvider reports whether r acts on the provider side.
func (r Role) IsProvider() bool {
	return r == RoleProviderL1 || r == RoleProviderL2
}

// IsInstitutionLevel reports whether r is scoped by institution.
func (r Role) IsInstitutionLevel() bool {
	return r == RoleCustomerL1 || r == RoleProviderL1
}

// HomePath is the landing path after login.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleCustomerL1, RoleCustomerL2, RoleGuest:
		return "/customer"
	case RoleProviderL1, RoleProviderL2:
		return "/provider"
	default:
		return "/"
	}
}

func containsRole(set []Role, r Role) bool {
	for _, candidate := range set {
		if candidate == r {
			return true
		}
	}
	return false
}

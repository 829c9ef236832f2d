package access

import (
	"strconv"

	"github.com/google/uuid"
)

// ParamKind selects how an accepted filter parameter becomes a constraint.
type ParamKind int

const (
	// ParamEquals compares Column with the raw value.
	ParamEquals ParamKind = iota
	// ParamInstitutionOr matches rows whose owner or counterparty institution
	// equals the value.
	ParamInstitutionOr
	// ParamBool compares Column with the parsed boolean.
	ParamBool
)

// Param is one entry of a resource's filter allow-list.
type Param struct {
	Name     string
	Column   string
	Kind     ParamKind
	Validate func(string) bool
	// Roles besides ADMIN that may use the parameter. Empty means admin only.
	Roles []Role
}

func (prm Param) permits(role Role) bool {
	return role == RoleAdmin || containsRole(prm.Roles, role)
}

func (prm Param) accepts(value string) bool {
	if prm.Validate != nil && !prm.Validate(value) {
		return false
	}
	if prm.Kind == ParamBool {
		_, err := strconv.ParseBool(value)
		return err == nil
	}
	return true
}

// IsUUID accepts canonical identifiers.
func IsUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// OneOf builds a validator accepting exactly the listed values.
func OneOf(values ...string) func(string) bool {
	return func(v string) bool {
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

// scopedRoles are the roles that see a scoped subset; used for filters that
// only narrow an already scoped list.
var scopedRoles = []Role{RoleCustomerL1, RoleCustomerL2, RoleProviderL1, RoleProviderL2}

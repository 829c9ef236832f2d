package access

import "strings"

// Principal is the authenticated caller of a single request.
type Principal struct {
	ID            string `json:"id"`
	Role          Role   `json:"role"`
	InstitutionID string `json:"institutionId,omitempty"`
}

// NewPrincipal validates the parts and returns nil unless every one is usable.
func NewPrincipal(id string, role Role, institutionID string) *Principal {
	id = strings.TrimSpace(id)
	if id == "" || !role.Valid() {
		return nil
	}
	return &Principal{ID: id, Role: role, InstitutionID: strings.TrimSpace(institutionID)}
}

// HasInstitution reports whether the caller is affiliated with an institution.
func (p Principal) HasInstitution() bool {
	return p.InstitutionID != ""
}

// IsAdmin reports whether the caller is unrestricted.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Party is the side a caller occupies on rows it creates itself.
func (p Principal) Party() Party {
	return Party{PersonID: p.ID, InstitutionID: p.InstitutionID}
}

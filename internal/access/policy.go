package access

// Action names an instance-level operation gated by a policy.
type Action string

const (
	ActionView    Action = "view"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionRespond Action = "respond"
)

// Side selects the ownership axes of a resource.
type Side uint8

const (
	SideOwner Side = 1 << iota
	SideCounterparty

	SideBoth = SideOwner | SideCounterparty
)

// Party is one side of a resource: the person and the institution behind it.
// Empty strings mean the side carries no such reference.
type Party struct {
	PersonID      string
	InstitutionID string
}

// Shape describes the ownership facts of a loaded resource.
type Shape struct {
	Owner        Party
	Counterparty Party
}

// Axis declares which roles act on one side of a resource and the columns
// that hold that side's person and institution.
type Axis struct {
	L1                []Role
	L2                []Role
	PersonColumn      string
	InstitutionColumn string
}

// Grant lists the sides an action may be exercised from. L1Only drops the
// self-scoped roles of those sides.
type Grant struct {
	Sides  Side
	L1Only bool
}

// Flags carries the per-row action affordances returned to clients.
type Flags struct {
	CanView   bool `json:"canView"`
	CanUpdate bool `json:"canUpdate"`
	CanDelete bool `json:"canDelete"`
}

// Policy is the fixed rule table for one resource type.
type Policy struct {
	Resource     string
	Owner        Axis
	Counterparty *Axis
	Create       []Role
	Grants       map[Action]Grant
	// Open roles may view every row without an ownership match.
	Open         []Role
	SearchColumn string
	Params       []Param
	// OrderBy is the stable list ordering.
	OrderBy string
}

// CanCreate reports whether role may create a new instance.
func (pol Policy) CanCreate(role Role) bool {
	if role == RoleAdmin {
		return true
	}
	return containsRole(pol.Create, role)
}

// CanClaim reports whether p may create an instance with the given shape:
// the role must be allowed to create and non-admins must reach the owner side.
func (pol Policy) CanClaim(p Principal, s Shape) bool {
	if p.Role == RoleAdmin {
		return true
	}
	if !pol.CanCreate(p.Role) {
		return false
	}
	return reaches(p, pol.Owner, s.Owner, false)
}

// CanView reports whether p may see the instance.
func (pol Policy) CanView(p Principal, s Shape) bool {
	return pol.Can(p, ActionView, s)
}

// CanUpdate reports whether p may modify the instance.
func (pol Policy) CanUpdate(p Principal, s Shape) bool {
	return pol.Can(p, ActionUpdate, s)
}

// CanDelete reports whether p may remove the instance.
func (pol Policy) CanDelete(p Principal, s Shape) bool {
	return pol.Can(p, ActionDelete, s)
}

// Can evaluates action against the instance. Unknown roles, unknown actions and
// missing identity facts all evaluate to false.
func (pol Policy) Can(p Principal, action Action, s Shape) bool {
	if p.Role == RoleAdmin {
		return true
	}
	if action == ActionView && pol.isOpenTo(p) {
		return true
	}
	grant, ok := pol.Grants[action]
	if !ok {
		return false
	}
	if grant.Sides&SideOwner != 0 && reaches(p, pol.Owner, s.Owner, grant.L1Only) {
		return true
	}
	if grant.Sides&SideCounterparty != 0 && pol.Counterparty != nil &&
		reaches(p, *pol.Counterparty, s.Counterparty, grant.L1Only) {
		return true
	}
	return false
}

// Flags computes the affordances for one row with the same predicates.
func (pol Policy) Flags(p Principal, s Shape) Flags {
	return Flags{
		CanView:   pol.CanView(p, s),
		CanUpdate: pol.CanUpdate(p, s),
		CanDelete: pol.CanDelete(p, s),
	}
}

func (pol Policy) isOpenTo(p Principal) bool {
	if !containsRole(pol.Open, p.Role) {
		return false
	}
	return !p.Role.IsInstitutionLevel() || p.HasInstitution()
}

// reaches applies the tightening rule: L1 roles match by institution, L2 roles
// by exact identity.
func reaches(p Principal, axis Axis, party Party, l1Only bool) bool {
	switch {
	case containsRole(axis.L1, p.Role):
		return p.InstitutionID != "" && party.InstitutionID != "" && p.InstitutionID == party.InstitutionID
	case !l1Only && containsRole(axis.L2, p.Role):
		return p.ID != "" && party.PersonID != "" && p.ID == party.PersonID
	default:
		return false
	}
}

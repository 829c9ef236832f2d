package access

var (
	customerAxisRoles = Axis{L1: []Role{RoleCustomerL1}, L2: []Role{RoleCustomerL2}}
	providerAxisRoles = Axis{L1: []Role{RoleProviderL1}, L2: []Role{RoleProviderL2}}
	bothSidesL1       = []Role{RoleCustomerL1, RoleProviderL1}
	bothSidesL2       = []Role{RoleCustomerL2, RoleProviderL2}
)

func customerAxis(personColumn, institutionColumn string) Axis {
	a := customerAxisRoles
	a.PersonColumn, a.InstitutionColumn = personColumn, institutionColumn
	return a
}

func providerAxis(personColumn, institutionColumn string) Axis {
	a := providerAxisRoles
	a.PersonColumn, a.InstitutionColumn = personColumn, institutionColumn
	return a
}

func ptr(a Axis) *Axis { return &a }

// Devices: owned by the customer side, serviced by the provider side.
var Devices = Policy{
	Resource:     "devices",
	Owner:        customerAxis("owner_id", "owner_institution_id"),
	Counterparty: ptr(providerAxis("provider_id", "provider_institution_id")),
	Create:       []Role{RoleCustomerL1},
	Grants: map[Action]Grant{
		ActionView:   {Sides: SideBoth},
		ActionUpdate: {Sides: SideOwner},
		ActionDelete: {Sides: SideOwner, L1Only: true},
	},
	SearchColumn: "serial_number",
	OrderBy:      "created_at DESC, id DESC",
	Params: []Param{
		{Name: "ownerId", Column: "owner_id", Validate: IsUUID},
		{Name: "providerId", Column: "provider_id", Validate: IsUUID},
		{Name: "ownerInstId", Column: "owner_institution_id", Validate: IsUUID},
		{Name: "providerInstId", Column: "provider_institution_id", Validate: IsUUID},
		{Name: "institutionFilter", Kind: ParamInstitutionOr, Validate: IsUUID},
		{Name: "status", Column: "status", Validate: OneOf("ACTIVE", "PASSIVE"), Roles: scopedRoles},
	},
}

// Appointments are created by the provider side for a customer recipient.
var Appointments = Policy{
	Resource:     "appointments",
	Owner:        providerAxis("creator_id", "creator_institution_id"),
	Counterparty: ptr(customerAxis("recipient_id", "recipient_institution_id")),
	Create:       []Role{RoleProviderL1, RoleProviderL2},
	Grants: map[Action]Grant{
		ActionView:   {Sides: SideBoth},
		ActionUpdate: {Sides: SideOwner},
		ActionDelete: {Sides: SideOwner},
	},
	SearchColumn: "title",
	OrderBy:      "created_at DESC, id DESC",
	Params: []Param{
		{Name: "creatorId", Column: "creator_id", Validate: IsUUID},
		{Name: "recipientId", Column: "recipient_id", Validate: IsUUID},
		{Name: "creatorInstId", Column: "creator_institution_id", Validate: IsUUID},
		{Name: "recipientInsId", Column: "recipient_institution_id", Validate: IsUUID},
		{Name: "institutionFilter", Kind: ParamInstitutionOr, Validate: IsUUID},
	},
}

// Maintenance cards are written by the provider side about a customer device.
var Maintenance = Policy{
	Resource:     "maintenance",
	Owner:        providerAxis("provider_id", "provider_institution_id"),
	Counterparty: ptr(customerAxis("customer_id", "customer_institution_id")),
	Create:       []Role{RoleProviderL1, RoleProviderL2},
	Grants: map[Action]Grant{
		ActionView:   {Sides: SideBoth},
		ActionUpdate: {Sides: SideOwner},
		ActionDelete: {Sides: SideOwner, L1Only: true},
	},
	SearchColumn: "details",
	OrderBy:      "created_at DESC, id DESC",
	Params: []Param{
		{Name: "customerId", Column: "customer_id", Validate: IsUUID},
		{Name: "providerId", Column: "provider_id", Validate: IsUUID},
		{Name: "customerInsId", Column: "customer_institution_id", Validate: IsUUID},
		{Name: "providerInstId", Column: "provider_institution_id", Validate: IsUUID},
		{Name: "institutionFilter", Kind: ParamInstitutionOr, Validate: IsUUID},
		{Name: "deviceId", Column: "device_id", Validate: IsUUID, Roles: scopedRoles},
	},
}

// Offers are made by the provider side to a customer recipient. The
// recipient side answers them.
var Offers = Policy{
	Resource:     "offers",
	Owner:        providerAxis("creator_id", "creator_institution_id"),
	Counterparty: ptr(customerAxis("recipient_id", "recipient_institution_id")),
	Create:       []Role{RoleProviderL1, RoleProviderL2},
	Grants: map[Action]Grant{
		ActionView:    {Sides: SideBoth},
		ActionUpdate:  {Sides: SideOwner},
		ActionDelete:  {Sides: SideOwner, L1Only: true},
		ActionRespond: {Sides: SideCounterparty},
	},
	SearchColumn: "details",
	OrderBy:      "created_at DESC, id DESC",
	Params: []Param{
		{Name: "recipientId", Column: "recipient_id", Validate: IsUUID},
		{Name: "creatorId", Column: "creator_id", Validate: IsUUID},
		{Name: "recipientInstId", Column: "recipient_institution_id", Validate: IsUUID},
		{Name: "creatorInstId", Column: "creator_institution_id", Validate: IsUUID},
		{Name: "institutionFilter", Kind: ParamInstitutionOr, Validate: IsUUID},
		{Name: "status", Column: "status", Validate: OneOf("PENDING", "ACCEPTED", "REJECTED"), Roles: scopedRoles},
	},
}

// OfferRequests are posted by customers to the provider market; every
// provider may read them.
var OfferRequests = Policy{
	Resource: "offer_requests",
	Owner:    customerAxis("creator_id", "creator_institution_id"),
	Create:   []Role{RoleCustomerL1},
	Grants: map[Action]Grant{
		ActionView:   {Sides: SideOwner},
		ActionUpdate: {Sides: SideOwner},
		ActionDelete: {Sides: SideOwner, L1Only: true},
	},
	Open:         []Role{RoleProviderL1, RoleProviderL2},
	SearchColumn: "details",
	OrderBy:      "created_at DESC, id DESC",
	Params: []Param{
		{Name: "id", Column: "id", Validate: IsUUID},
		{Name: "creatorId", Column: "creator_id", Validate: IsUUID},
		{Name: "creatorInsId", Column: "creator_institution_id", Validate: IsUUID},
		{Name: "status", Column: "status", Validate: OneOf("OPEN", "CLOSED"), Roles: scopedRoles},
	},
}

// Notifications are addressed to one recipient of either side and are only
// created by the system or an administrator.
var Notifications = Policy{
	Resource: "notifications",
	Owner: Axis{
		L1:                bothSidesL1,
		L2:                bothSidesL2,
		PersonColumn:      "recipient_id",
		InstitutionColumn: "recipient_institution_id",
	},
	Grants: map[Action]Grant{
		ActionView:   {Sides: SideOwner},
		ActionUpdate: {Sides: SideOwner},
	},
	SearchColumn: "content",
	OrderBy:      "created_at DESC, id DESC",
	Params: []Param{
		{Name: "recipientId", Column: "recipient_id", Validate: IsUUID},
		{Name: "creatorId", Column: "creator_id", Validate: IsUUID},
		{Name: "recipientInsId", Column: "recipient_institution_id", Validate: IsUUID},
		{Name: "deviceId", Column: "device_id", Validate: IsUUID},
		{Name: "isRead", Column: "is_read", Kind: ParamBool, Roles: scopedRoles},
	},
}

// Institutions are scoped by their own id; no person stands behind them so
// self-scoped roles never match.
var Institutions = Policy{
	Resource: "institutions",
	Owner: Axis{
		L1:                bothSidesL1,
		L2:                bothSidesL2,
		InstitutionColumn: "id",
	},
	Create: []Role{RoleCustomerL1, RoleProviderL1},
	Grants: map[Action]Grant{
		ActionView:   {Sides: SideOwner},
		ActionUpdate: {Sides: SideOwner, L1Only: true},
		ActionDelete: {Sides: SideOwner, L1Only: true},
	},
	SearchColumn: "name",
	OrderBy:      "name ASC, id ASC",
	Params: []Param{
		{Name: "id", Column: "id", Validate: IsUUID},
		{Name: "kind", Column: "kind", Validate: OneOf("CUSTOMER", "PROVIDER")},
	},
}

// Users belong to an institution; self-scoped roles only see themselves.
var Users = Policy{
	Resource: "users",
	Owner: Axis{
		L1:                bothSidesL1,
		L2:                bothSidesL2,
		PersonColumn:      "id",
		InstitutionColumn: "institution_id",
	},
	Create: []Role{RoleCustomerL1, RoleProviderL1},
	Grants: map[Action]Grant{
		ActionView:   {Sides: SideOwner},
		ActionUpdate: {Sides: SideOwner},
		ActionDelete: {Sides: SideOwner, L1Only: true},
	},
	SearchColumn: "name",
	OrderBy:      "name ASC, id ASC",
	Params: []Param{
		{Name: "institutionId", Column: "institution_id", Validate: IsUUID},
		{Name: "role", Column: "role", Validate: func(v string) bool { return Role(v).Valid() }},
	},
}

// IsgMembers are the occupational-safety staff an institution contracts.
// Like institutions they carry no person, so self-scoped roles never match.
var IsgMembers = Policy{
	Resource: "isg_members",
	Owner: Axis{
		L1:                bothSidesL1,
		L2:                bothSidesL2,
		InstitutionColumn: "institution_id",
	},
	Create: []Role{RoleCustomerL1, RoleProviderL1},
	Grants: map[Action]Grant{
		ActionView:   {Sides: SideOwner},
		ActionUpdate: {Sides: SideOwner, L1Only: true},
		ActionDelete: {Sides: SideOwner, L1Only: true},
	},
	SearchColumn: "name",
	OrderBy:      "name ASC, id ASC",
	Params: []Param{
		{Name: "institutionId", Column: "institution_id", Validate: IsUUID},
		{Name: "isgNumber", Column: "isg_number", Roles: scopedRoles},
	},
}

// All lists every resource policy.
func All() []Policy {
	return []Policy{Devices, Appointments, Maintenance, Offers, OfferRequests, Notifications, Institutions, Users, IsgMembers}
}

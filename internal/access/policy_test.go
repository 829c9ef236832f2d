package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, ok := ParseRole(string(r))
		require.True(t, ok, r)
		assert.Equal(t, r, got)
	}

	got, ok := ParseRole(" customer_l1 ")
	require.True(t, ok)
	assert.Equal(t, RoleCustomerL1, got)

	for _, raw := range []string{"", "ROOT", "MUSTERI_SEVIYE1", "ADMIN;DROP"} {
		_, ok := ParseRole(raw)
		assert.False(t, ok, raw)
	}
	assert.False(t, Role("admin").Valid())
}

func TestNewPrincipalRejectsPartialIdentity(t *testing.T) {
	assert.Nil(t, NewPrincipal("", RoleAdmin, ""))
	assert.Nil(t, NewPrincipal("u1", Role("SUPERUSER"), "i1"))

	p := NewPrincipal("u1", RoleCustomerL1, " i1 ")
	require.NotNil(t, p)
	assert.Equal(t, "i1", p.InstitutionID)
	assert.True(t, p.HasInstitution())
}

func TestHomePath(t *testing.T) {
	assert.Equal(t, "/admin", RoleAdmin.HomePath())
	assert.Equal(t, "/customer", RoleCustomerL2.HomePath())
	assert.Equal(t, "/customer", RoleGuest.HomePath())
	assert.Equal(t, "/provider", RoleProviderL1.HomePath())
	assert.Equal(t, "/", Role("X").HomePath())
}

func TestDeviceViewByIdentityForSelfScopedCustomer(t *testing.T) {
	caller := Principal{ID: "u1", Role: RoleCustomerL2}

	assert.True(t, Devices.CanView(caller, Shape{Owner: Party{PersonID: "u1"}}))
	assert.False(t, Devices.CanView(caller, Shape{Owner: Party{PersonID: "u2"}}))
}

func TestDeviceViewByInstitutionForCustomerAdministrator(t *testing.T) {
	caller := Principal{ID: "u1", Role: RoleCustomerL1, InstitutionID: "i1"}
	device := Shape{Owner: Party{PersonID: "u9", InstitutionID: "i1"}}

	assert.True(t, Devices.CanView(caller, device))
	assert.True(t, Devices.CanUpdate(caller, device))
	assert.True(t, Devices.CanDelete(caller, device))
}

func TestSelfScopedRoleNeverMatchesByInstitution(t *testing.T) {
	caller := Principal{ID: "u1", Role: RoleCustomerL2, InstitutionID: "i1"}
	device := Shape{Owner: Party{PersonID: "u9", InstitutionID: "i1"}}

	assert.False(t, Devices.CanView(caller, device))
}

func TestDeviceProviderSide(t *testing.T) {
	device := Shape{
		Owner:        Party{PersonID: "c1", InstitutionID: "ci"},
		Counterparty: Party{PersonID: "p1", InstitutionID: "pi"},
	}
	provider := Principal{ID: "p1", Role: RoleProviderL2}

	assert.True(t, Devices.CanView(provider, device))
	assert.False(t, Devices.CanUpdate(provider, device))
	assert.False(t, Devices.CanDelete(provider, device))

	l1 := Principal{ID: "px", Role: RoleProviderL1, InstitutionID: "pi"}
	assert.True(t, Devices.CanView(l1, device))
	assert.False(t, Devices.CanUpdate(l1, device))
}

func TestDeviceDeleteIsInstitutionLevelOnly(t *testing.T) {
	device := Shape{Owner: Party{PersonID: "u1", InstitutionID: "i1"}}
	owner := Principal{ID: "u1", Role: RoleCustomerL2, InstitutionID: "i1"}

	assert.True(t, Devices.CanUpdate(owner, device))
	assert.False(t, Devices.CanDelete(owner, device))
}

func TestTwoPartyResourcesMatchEitherSide(t *testing.T) {
	shape := Shape{
		Owner:        Party{PersonID: "p1", InstitutionID: "pi"},
		Counterparty: Party{PersonID: "c1", InstitutionID: "ci"},
	}
	for _, pol := range []Policy{Appointments, Offers, Maintenance} {
		t.Run(pol.Resource, func(t *testing.T) {
			assert.True(t, pol.CanView(Principal{ID: "x", Role: RoleProviderL1, InstitutionID: "pi"}, shape))
			assert.True(t, pol.CanView(Principal{ID: "p1", Role: RoleProviderL2}, shape))
			assert.True(t, pol.CanView(Principal{ID: "x", Role: RoleCustomerL1, InstitutionID: "ci"}, shape))
			assert.True(t, pol.CanView(Principal{ID: "c1", Role: RoleCustomerL2}, shape))

			assert.False(t, pol.CanView(Principal{ID: "x", Role: RoleProviderL1, InstitutionID: "ci"}, shape))
			assert.False(t, pol.CanView(Principal{ID: "c1", Role: RoleProviderL2}, shape))

			assert.True(t, pol.CanUpdate(Principal{ID: "p1", Role: RoleProviderL2}, shape))
			assert.False(t, pol.CanUpdate(Principal{ID: "c1", Role: RoleCustomerL2}, shape))
			assert.False(t, pol.CanUpdate(Principal{ID: "x", Role: RoleCustomerL1, InstitutionID: "ci"}, shape))
		})
	}
}

func TestOfferRespondBelongsToRecipientSide(t *testing.T) {
	shape := Shape{
		Owner:        Party{PersonID: "p1", InstitutionID: "pi"},
		Counterparty: Party{PersonID: "c1", InstitutionID: "ci"},
	}

	assert.True(t, Offers.Can(Principal{ID: "c1", Role: RoleCustomerL2}, ActionRespond, shape))
	assert.True(t, Offers.Can(Principal{ID: "c9", Role: RoleCustomerL1, InstitutionID: "ci"}, ActionRespond, shape))
	assert.False(t, Offers.Can(Principal{ID: "p1", Role: RoleProviderL2}, ActionRespond, shape))
	assert.False(t, Appointments.Can(Principal{ID: "c1", Role: RoleCustomerL2}, ActionRespond, shape))
}

func TestOfferRequestsAreOpenToProviders(t *testing.T) {
	request := Shape{Owner: Party{PersonID: "c1", InstitutionID: "ci"}}

	assert.True(t, OfferRequests.CanView(Principal{ID: "p1", Role: RoleProviderL2}, request))
	assert.True(t, OfferRequests.CanView(Principal{ID: "p1", Role: RoleProviderL1, InstitutionID: "pi"}, request))
	assert.False(t, OfferRequests.CanView(Principal{ID: "p1", Role: RoleProviderL1}, request))
	assert.False(t, OfferRequests.CanUpdate(Principal{ID: "p1", Role: RoleProviderL2}, request))
	assert.False(t, OfferRequests.CanView(Principal{ID: "c2", Role: RoleCustomerL2}, request))
}

func TestNotificationsAreNeverDeletedByRecipients(t *testing.T) {
	n := Shape{Owner: Party{PersonID: "u1", InstitutionID: "i1"}}
	recipient := Principal{ID: "u1", Role: RoleCustomerL2, InstitutionID: "i1"}

	assert.True(t, Notifications.CanView(recipient, n))
	assert.True(t, Notifications.CanUpdate(recipient, n))
	assert.False(t, Notifications.CanDelete(recipient, n))
	assert.True(t, Notifications.CanDelete(Principal{ID: "a", Role: RoleAdmin}, n))
	assert.False(t, Notifications.CanCreate(RoleCustomerL1))
}

func TestUsersSelfAndInstitution(t *testing.T) {
	self := Shape{Owner: Party{PersonID: "u1", InstitutionID: "i1"}}
	colleague := Shape{Owner: Party{PersonID: "u2", InstitutionID: "i1"}}

	l2 := Principal{ID: "u1", Role: RoleProviderL2, InstitutionID: "i1"}
	assert.True(t, Users.CanView(l2, self))
	assert.True(t, Users.CanUpdate(l2, self))
	assert.False(t, Users.CanDelete(l2, self))
	assert.False(t, Users.CanView(l2, colleague))

	l1 := Principal{ID: "u9", Role: RoleProviderL1, InstitutionID: "i1"}
	assert.True(t, Users.CanDelete(l1, colleague))
}

func TestInstitutionsHaveNoSelfScopedAccess(t *testing.T) {
	inst := Shape{Owner: Party{InstitutionID: "i1"}}

	assert.True(t, Institutions.CanUpdate(Principal{ID: "u", Role: RoleCustomerL1, InstitutionID: "i1"}, inst))
	assert.False(t, Institutions.CanView(Principal{ID: "u", Role: RoleCustomerL2, InstitutionID: "i1"}, inst))
	assert.False(t, Institutions.CanView(Principal{ID: "u", Role: RoleCustomerL1, InstitutionID: "i2"}, inst))
}

func TestIsgMembersFollowInstitution(t *testing.T) {
	member := Shape{Owner: Party{InstitutionID: "i1"}}

	assert.True(t, IsgMembers.CanDelete(Principal{ID: "u", Role: RoleProviderL1, InstitutionID: "i1"}, member))
	assert.False(t, IsgMembers.CanView(Principal{ID: "u", Role: RoleCustomerL2, InstitutionID: "i1"}, member))
	assert.False(t, IsgMembers.CanView(Principal{ID: "u", Role: RoleCustomerL1, InstitutionID: "i2"}, member))
}

func TestCreateAllowLists(t *testing.T) {
	cases := []struct {
		pol     Policy
		allowed []Role
	}{
		{Devices, []Role{RoleAdmin, RoleCustomerL1}},
		{Offers, []Role{RoleAdmin, RoleProviderL1, RoleProviderL2}},
		{Appointments, []Role{RoleAdmin, RoleProviderL1, RoleProviderL2}},
		{OfferRequests, []Role{RoleAdmin, RoleCustomerL1}},
		{Notifications, []Role{RoleAdmin}},
		{Institutions, []Role{RoleAdmin, RoleCustomerL1, RoleProviderL1}},
		{Users, []Role{RoleAdmin, RoleCustomerL1, RoleProviderL1}},
		{IsgMembers, []Role{RoleAdmin, RoleCustomerL1, RoleProviderL1}},
	}
	for _, tc := range cases {
		t.Run(tc.pol.Resource, func(t *testing.T) {
			for _, r := range append(Roles(), Role("UNKNOWN")) {
				assert.Equal(t, containsRole(tc.allowed, r), tc.pol.CanCreate(r), r)
			}
		})
	}
}

func TestCanClaimRequiresOwnerReach(t *testing.T) {
	caller := Principal{ID: "u1", Role: RoleCustomerL1, InstitutionID: "i1"}

	assert.True(t, Devices.CanClaim(caller, Shape{Owner: Party{PersonID: "u7", InstitutionID: "i1"}}))
	assert.False(t, Devices.CanClaim(caller, Shape{Owner: Party{PersonID: "u7", InstitutionID: "i2"}}))
	assert.False(t, Devices.CanClaim(Principal{ID: "u1", Role: RoleCustomerL2}, Shape{Owner: Party{PersonID: "u1"}}))

	provider := Principal{ID: "p1", Role: RoleProviderL2}
	assert.True(t, Offers.CanClaim(provider, Shape{Owner: Party{PersonID: "p1", InstitutionID: "pi"}}))
	assert.False(t, Offers.CanClaim(provider, Shape{Owner: Party{PersonID: "p2", InstitutionID: "pi"}}))
	assert.True(t, Notifications.CanClaim(Principal{ID: "a", Role: RoleAdmin}, Shape{}))
}

func TestAdminShortCircuits(t *testing.T) {
	admin := Principal{ID: "a", Role: RoleAdmin}
	for _, pol := range All() {
		for _, action := range []Action{ActionView, ActionUpdate, ActionDelete, ActionRespond, Action("archive")} {
			assert.True(t, pol.Can(admin, action, Shape{}), "%s %s", pol.Resource, action)
		}
	}
}

func TestMissingInstitutionFailsClosed(t *testing.T) {
	shape := Shape{
		Owner:        Party{PersonID: "x", InstitutionID: ""},
		Counterparty: Party{PersonID: "y", InstitutionID: ""},
	}
	for _, pol := range All() {
		for _, role := range []Role{RoleCustomerL1, RoleProviderL1} {
			p := Principal{ID: "u1", Role: role}
			assert.False(t, pol.CanView(p, shape), "%s %s", pol.Resource, role)
			assert.False(t, pol.CanUpdate(p, shape), "%s %s", pol.Resource, role)
			assert.False(t, pol.CanDelete(p, shape), "%s %s", pol.Resource, role)
		}
	}
}

func TestUnknownAndGuestRolesDenied(t *testing.T) {
	shape := Shape{
		Owner:        Party{PersonID: "u1", InstitutionID: "i1"},
		Counterparty: Party{PersonID: "u1", InstitutionID: "i1"},
	}
	for _, pol := range All() {
		for _, role := range []Role{RoleGuest, Role(""), Role("ROOT")} {
			p := Principal{ID: "u1", Role: role, InstitutionID: "i1"}
			assert.Equal(t, Flags{}, pol.Flags(p, shape), "%s %q", pol.Resource, role)
		}
	}
}

func TestPredicatesAreIdempotent(t *testing.T) {
	p := Principal{ID: "u1", Role: RoleCustomerL1, InstitutionID: "i1"}
	s := Shape{Owner: Party{PersonID: "u2", InstitutionID: "i1"}}
	for _, pol := range All() {
		first := pol.Flags(p, s)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, pol.Flags(p, s))
		}
	}
}

func TestInstitutionLevelCoversSelfScoped(t *testing.T) {
	pairs := [][2]Role{{RoleCustomerL1, RoleCustomerL2}, {RoleProviderL1, RoleProviderL2}}
	matched := Party{PersonID: "u1", InstitutionID: "i1"}
	colleague := Party{PersonID: "u2", InstitutionID: "i1"}

	for _, pol := range All() {
		for _, action := range []Action{ActionView, ActionUpdate, ActionDelete, ActionRespond} {
			for _, pair := range pairs {
				l1 := Principal{ID: "boss", Role: pair[0], InstitutionID: "i1"}
				l2 := Principal{ID: "u1", Role: pair[1], InstitutionID: "i1"}
				for _, s := range []Shape{{Owner: matched}, {Counterparty: matched}, {Owner: matched, Counterparty: matched}} {
					if pol.Can(l2, action, s) {
						assert.True(t, pol.Can(l1, action, s), "%s %s %s", pol.Resource, action, pair[0])
					}
				}
				for _, s := range []Shape{{Owner: colleague}, {Counterparty: colleague}} {
					if pol.Can(l1, action, s) && !containsRole(pol.Open, l2.Role) {
						assert.False(t, pol.Can(l2, action, s), "%s %s %s", pol.Resource, action, pair[1])
					}
				}
			}
		}
	}
}

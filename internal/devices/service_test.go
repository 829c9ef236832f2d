package devices

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/shared"
)

const (
	custInst = "11111111-1111-4111-8111-111111111111"
	provInst = "22222222-2222-4222-8222-222222222222"
	custL1   = "aaaaaaaa-0000-4000-8000-000000000001"
	custL2   = "aaaaaaaa-0000-4000-8000-000000000002"
	provL2   = "bbbbbbbb-0000-4000-8000-000000000002"
)

const safetyOfficer = "dddddddd-0000-4000-8000-0000000000aa"

type memoryRepo struct {
	mu         sync.Mutex
	devices    map[string]Device
	isgMembers map[string]string
	lastQ      access.Query
}

func newMemoryRepo(devices ...Device) *memoryRepo {
	m := &memoryRepo{devices: make(map[string]Device), isgMembers: map[string]string{safetyOfficer: custInst}}
	for _, d := range devices {
		m.devices[d.ID] = d
	}
	return m
}

func (m *memoryRepo) List(_ context.Context, q access.Query) ([]Device, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQ = q
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return Device{}, shared.ErrNotFound
	}
	return d, nil
}

func (m *memoryRepo) Create(_ context.Context, d Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.devices {
		if existing.SerialNumber == d.SerialNumber {
			return shared.ErrDuplicate
		}
	}
	m.devices[d.ID] = d
	return nil
}

func (m *memoryRepo) Update(_ context.Context, d Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[d.ID]; !ok {
		return shared.ErrNotFound
	}
	m.devices[d.ID] = d
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *memoryRepo) IsgMemberOf(_ context.Context, memberID, institutionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isgMembers[memberID] == institutionID, nil
}

var (
	admin      = access.Principal{ID: "cccccccc-0000-4000-8000-000000000001", Role: access.RoleAdmin}
	customerL1 = access.Principal{ID: custL1, Role: access.RoleCustomerL1, InstitutionID: custInst}
	customerL2 = access.Principal{ID: custL2, Role: access.RoleCustomerL2, InstitutionID: custInst}
	providerL2 = access.Principal{ID: provL2, Role: access.RoleProviderL2, InstitutionID: provInst}
	guest      = access.Principal{ID: "dddddddd-0000-4000-8000-000000000001", Role: access.RoleGuest}
)

func extinguisher() Device {
	return Device{
		ID:                    "eeeeeeee-0000-4000-8000-000000000001",
		SerialNumber:          "ABC123",
		DeviceType:            "CO2",
		Status:                StatusActive,
		OwnerID:               custL1,
		OwnerInstitutionID:    custInst,
		ProviderID:            provL2,
		ProviderInstitutionID: provInst,
	}
}

func newTestService(devices ...Device) (*Service, *memoryRepo) {
	repo := newMemoryRepo(devices...)
	svc := NewService(repo, 10, nil)
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestListScopesAndFlagsRows(t *testing.T) {
	svc, repo := newTestService(extinguisher())

	page, err := svc.List(context.Background(), customerL2, access.ListParams{Page: 2})
	require.NoError(t, err)

	sql, args, err := repo.lastQ.Where.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(owner_id = ?)", sql)
	assert.Equal(t, []any{custL2}, args)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 10, page.Pagination.PerPage)

	require.Len(t, page.Items, 1)
	assert.Equal(t, access.Flags{}, page.Items[0].Flags)
}

func TestListFlagsMatchPolicy(t *testing.T) {
	svc, _ := newTestService(extinguisher())

	page, err := svc.List(context.Background(), customerL1, access.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, access.Flags{CanView: true, CanUpdate: true, CanDelete: true}, page.Items[0].Flags)

	page, err = svc.List(context.Background(), providerL2, access.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, access.Flags{CanView: true}, page.Items[0].Flags)
}

func TestGetHidesInvisibleDevices(t *testing.T) {
	svc, _ := newTestService(extinguisher())
	ctx := context.Background()

	_, err := svc.Get(ctx, customerL2, extinguisher().ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Get(ctx, customerL2, "eeeeeeee-0000-4000-8000-0000000000ff")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.Get(ctx, customerL1, extinguisher().ID)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", got.SerialNumber)
}

func TestCreateOwnsAsCaller(t *testing.T) {
	svc, repo := newTestService()

	got, err := svc.Create(context.Background(), customerL1, CreateInput{
		SerialNumber:       " XYZ-9 ",
		DeviceType:         "Powder",
		OwnerInstitutionID: "99999999-9999-4999-8999-999999999999",
	})
	require.NoError(t, err)

	assert.Equal(t, custInst, got.OwnerInstitutionID)
	assert.Equal(t, custL1, got.OwnerID)
	assert.Equal(t, "XYZ-9", got.SerialNumber)
	assert.Equal(t, StatusActive, got.Status)
	assert.True(t, got.CanDelete)
	assert.Contains(t, repo.devices, got.ID)
}

func TestCreateRequiresRoleAndInstitution(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	in := CreateInput{SerialNumber: "S1", DeviceType: "CO2"}

	for _, p := range []access.Principal{customerL2, providerL2, guest} {
		_, err := svc.Create(ctx, p, in)
		assert.ErrorIs(t, err, shared.ErrForbidden, p.Role)
	}

	orphan := access.Principal{ID: custL1, Role: access.RoleCustomerL1}
	_, err := svc.Create(ctx, orphan, in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, admin, in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	in.OwnerInstitutionID = custInst
	got, err := svc.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, custInst, got.OwnerInstitutionID)
}

func TestUpdate(t *testing.T) {
	svc, repo := newTestService(extinguisher())
	ctx := context.Background()
	passive := StatusPassive

	_, err := svc.Update(ctx, providerL2, extinguisher().ID, UpdateInput{Status: &passive})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Update(ctx, customerL2, extinguisher().ID, UpdateInput{Status: &passive})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.Update(ctx, customerL1, extinguisher().ID, UpdateInput{Status: &passive})
	require.NoError(t, err)
	assert.Equal(t, StatusPassive, got.Status)
	assert.Equal(t, StatusPassive, repo.devices[extinguisher().ID].Status)
	assert.Equal(t, custInst, repo.devices[extinguisher().ID].OwnerInstitutionID)
}

func TestIsgMemberLinkStaysWithOwnerInstitution(t *testing.T) {
	svc, repo := newTestService(extinguisher())
	ctx := context.Background()
	id := extinguisher().ID
	linked, foreign, none := safetyOfficer, "dddddddd-0000-4000-8000-0000000000bb", ""
	repo.isgMembers[foreign] = provInst

	_, err := svc.Update(ctx, customerL1, id, UpdateInput{IsgMemberID: &foreign})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.devices[id].IsgMemberID)

	got, err := svc.Update(ctx, customerL1, id, UpdateInput{IsgMemberID: &linked})
	require.NoError(t, err)
	assert.Equal(t, safetyOfficer, got.IsgMemberID)

	got, err = svc.Update(ctx, customerL1, id, UpdateInput{IsgMemberID: &none})
	require.NoError(t, err)
	assert.Empty(t, got.IsgMemberID)

	_, err = svc.Create(ctx, customerL1, CreateInput{SerialNumber: "ZZ9", DeviceType: "CO2", IsgMemberID: foreign})
	assert.ErrorIs(t, err, shared.ErrValidation)
	created, err := svc.Create(ctx, customerL1, CreateInput{SerialNumber: "ZZ9", DeviceType: "CO2", IsgMemberID: safetyOfficer})
	require.NoError(t, err)
	assert.Equal(t, safetyOfficer, created.IsgMemberID)
}

func TestDeleteIsInstitutionLevelOnly(t *testing.T) {
	d := extinguisher()
	d.OwnerID = custL2
	svc, repo := newTestService(d)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, customerL2, d.ID), shared.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, providerL2, d.ID), shared.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, customerL1, d.ID))
	assert.NotContains(t, repo.devices, d.ID)
}

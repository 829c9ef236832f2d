package institutions

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
)

type memoryRepo struct {
	mu       sync.Mutex
	rows     map[string]Institution
	founders map[string]string
	lastQ    access.Query
}

func newMemoryRepo(rows ...Institution) *memoryRepo {
	m := &memoryRepo{rows: make(map[string]Institution), founders: make(map[string]string)}
	for _, i := range rows {
		m.rows[i.ID] = i
	}
	return m
}

func (m *memoryRepo) List(_ context.Context, q access.Query) ([]Institution, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQ = q
	out := make([]Institution, 0, len(m.rows))
	for _, i := range m.rows {
		out = append(out, i)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Institution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.rows[id]
	if !ok {
		return Institution{}, shared.ErrNotFound
	}
	return i, nil
}

func (m *memoryRepo) Create(_ context.Context, i Institution, founderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[i.ID] = i
	if founderID != "" {
		m.founders[founderID] = i.ID
	}
	return nil
}

func (m *memoryRepo) Update(_ context.Context, i Institution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[i.ID] = i
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

var (
	admin      = access.Principal{ID: "cccccccc-0000-4000-8000-000000000001", Role: access.RoleAdmin}
	customerL1 = access.Principal{ID: "aaaaaaaa-0000-4000-8000-000000000001", Role: access.RoleCustomerL1, InstitutionID: custInst}
	customerL2 = access.Principal{ID: "aaaaaaaa-0000-4000-8000-000000000002", Role: access.RoleCustomerL2, InstitutionID: custInst}
	providerL1 = access.Principal{ID: "bbbbbbbb-0000-4000-8000-000000000001", Role: access.RoleProviderL1, InstitutionID: provInst}
)

func newTestService(rows ...Institution) (*Service, *memoryRepo) {
	repo := newMemoryRepo(rows...)
	svc := NewService(repo, 10, nil)
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

func customer() Institution {
	return Institution{ID: custInst, Name: "Acme Plant", Kind: KindCustomer}
}

func TestFounderIsAttachedToNewInstitution(t *testing.T) {
	svc, repo := newTestService()
	founder := access.Principal{ID: "aaaaaaaa-0000-4000-8000-000000000007", Role: access.RoleProviderL1}

	got, err := svc.Create(context.Background(), founder, CreateInput{Name: " Blaze Service ", Kind: KindCustomer})
	require.NoError(t, err)

	assert.Equal(t, "Blaze Service", got.Name)
	assert.Equal(t, KindProvider, got.Kind, "non-admins found their own side's kind")
	assert.Equal(t, got.ID, repo.founders[founder.ID])
	assert.True(t, got.CanUpdate)
}

func TestCreateGuards(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), customerL1, CreateInput{Name: "Second"})
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Create(context.Background(), customerL2, CreateInput{Name: "Mine"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Create(context.Background(), admin, CreateInput{Name: "No kind"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	got, err := svc.Create(context.Background(), admin, CreateInput{Name: "Depot", Kind: KindCustomer, Email: " Ops@Depot.Example "})
	require.NoError(t, err)
	assert.Equal(t, "ops@depot.example", got.Email)
}

func TestMembersSeeOnlyTheirInstitution(t *testing.T) {
	svc, repo := newTestService(customer())

	got, err := svc.Get(context.Background(), customerL1, custInst)
	require.NoError(t, err)
	assert.True(t, got.CanUpdate)

	_, err = svc.Get(context.Background(), customerL2, custInst)
	assert.ErrorIs(t, err, shared.ErrNotFound, "self-scoped roles have no person on an institution")

	_, err = svc.Get(context.Background(), providerL1, custInst)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.List(context.Background(), customerL1, access.ListParams{})
	require.NoError(t, err)
	sql, args, err := repo.lastQ.Where.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(id = ?)", sql)
	assert.Equal(t, []any{custInst}, args)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, repo := newTestService(customer())
	name := "Acme Plant North"

	_, err := svc.Update(context.Background(), providerL1, custInst, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.Update(context.Background(), customerL1, custInst, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, KindCustomer, got.Kind)

	assert.ErrorIs(t, svc.Delete(context.Background(), providerL1, custInst), shared.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), customerL1, custInst))
	assert.Empty(t, repo.rows)
}

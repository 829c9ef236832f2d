package offers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/notifications"
	"github.com/firewatch/firewatch/internal/rbac"
	"github.com/firewatch/firewatch/internal/shared"
)

const (
	custInst = "11111111-1111-4111-8111-111111111111"
	provInst = "22222222-2222-4222-8222-222222222222"
	custL1   = "aaaaaaaa-0000-4000-8000-000000000001"
	custL2   = "aaaaaaaa-0000-4000-8000-000000000002"
	provL1   = "bbbbbbbb-0000-4000-8000-000000000001"
	provL2   = "bbbbbbbb-0000-4000-8000-000000000002"
	offerID  = "ffffffff-0000-4000-8000-000000000001"
)

type memoryRepo struct {
	mu     sync.Mutex
	offers map[string]Offer
	items  map[string][]Item
	notes  []notifications.Notification

	members    map[string]string
	respondErr error
}

func (m *memoryRepo) MemberOf(_ context.Context, userID, institutionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[userID] == institutionID, nil
}

func newMemoryRepo(offers ...Offer) *memoryRepo {
	m := &memoryRepo{
		offers:  make(map[string]Offer),
		items:   make(map[string][]Item),
		members: map[string]string{custL1: custInst, custL2: custInst, provL1: provInst, provL2: provInst},
	}
	for _, o := range offers {
		m.offers[o.ID] = o
	}
	return m
}

func (m *memoryRepo) List(_ context.Context, _ access.Query) ([]Offer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Offer, 0, len(m.offers))
	for _, o := range m.offers {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return Offer{}, shared.ErrNotFound
	}
	return o, nil
}

func (m *memoryRepo) Items(_ context.Context, offerID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[offerID], nil
}

func (m *memoryRepo) Create(_ context.Context, o Offer, items []Item, note notifications.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[o.ID] = o
	m.items[o.ID] = items
	m.notes = append(m.notes, note)
	return nil
}

func (m *memoryRepo) Update(_ context.Context, o Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.respondErr != nil {
		return m.respondErr
	}
	cur, ok := m.offers[o.ID]
	if !ok || cur.Status != StatusPending {
		return shared.ErrNotFound
	}
	m.offers[o.ID] = o
	return nil
}

func (m *memoryRepo) Respond(_ context.Context, o Offer, note notifications.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.respondErr != nil {
		return m.respondErr
	}
	cur, ok := m.offers[o.ID]
	if !ok || cur.Status != StatusPending {
		return shared.ErrNotFound
	}
	m.offers[o.ID] = o
	m.notes = append(m.notes, note)
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.offers, id)
	return nil
}

var (
	admin      = access.Principal{ID: "cccccccc-0000-4000-8000-000000000001", Role: access.RoleAdmin}
	customerL1 = access.Principal{ID: custL1, Role: access.RoleCustomerL1, InstitutionID: custInst}
	customerL2 = access.Principal{ID: custL2, Role: access.RoleCustomerL2, InstitutionID: custInst}
	providerL1 = access.Principal{ID: provL1, Role: access.RoleProviderL1, InstitutionID: provInst}
	providerL2 = access.Principal{ID: provL2, Role: access.RoleProviderL2, InstitutionID: provInst}
)

var (
	offerDay = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	fixedNow = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
)

func pending() Offer {
	return Offer{
		ID:                     offerID,
		OfferDate:              offerDay,
		ValidityDate:           offerDay.AddDate(0, 0, 30),
		Status:                 StatusPending,
		Details:                "annual service",
		CreatorID:              provL2,
		CreatorInstitutionID:   provInst,
		RecipientInstitutionID: custInst,
	}
}

func newTestService(offers ...Offer) (*Service, *memoryRepo) {
	repo := newMemoryRepo(offers...)
	svc := NewService(repo, 10, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func TestCreateNotifiesRecipient(t *testing.T) {
	svc, repo := newTestService()

	got, err := svc.Create(context.Background(), providerL2, CreateInput{
		OfferDate:              offerDay,
		ValidityDate:           offerDay.AddDate(0, 0, 14),
		RecipientInstitutionID: custInst,
		CreatorInstitutionID:   "99999999-9999-4999-8999-999999999999",
		Items: []ItemInput{
			{ServiceName: "refill", UnitPrice: 12.5, Quantity: 4},
			{ServiceName: "inspection", UnitPrice: 30, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, provL2, got.CreatorID)
	assert.Equal(t, provInst, got.CreatorInstitutionID, "non-admins always create as themselves")
	assert.InDelta(t, 80.0, got.Total, 0.001)
	assert.Len(t, got.Items, 2)
	assert.False(t, got.CanRespond)

	require.Len(t, repo.notes, 1)
	note := repo.notes[0]
	assert.Equal(t, notifications.KindOffer, note.Kind)
	assert.Equal(t, custInst, note.RecipientInstitutionID)
	assert.Equal(t, "/offers/"+got.ID, note.Link)
}

func TestCreateRoleAndDateChecks(t *testing.T) {
	svc, _ := newTestService()
	in := CreateInput{
		OfferDate:              offerDay,
		ValidityDate:           offerDay,
		RecipientInstitutionID: custInst,
		Items:                  []ItemInput{{ServiceName: "refill", Quantity: 1}},
	}

	_, err := svc.Create(context.Background(), customerL1, in)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Create(context.Background(), admin, in)
	assert.ErrorIs(t, err, shared.ErrValidation, "admins name the creator institution")

	in.ValidityDate = offerDay.AddDate(0, 0, -1)
	_, err = svc.Create(context.Background(), providerL1, in)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateChecksPartyMembership(t *testing.T) {
	svc, repo := newTestService()
	in := CreateInput{
		OfferDate:              offerDay,
		ValidityDate:           offerDay.AddDate(0, 0, 14),
		RecipientID:            provL1,
		RecipientInstitutionID: custInst,
		Items:                  []ItemInput{{ServiceName: "refill", UnitPrice: 10, Quantity: 1}},
	}

	_, err := svc.Create(context.Background(), providerL2, in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	in.RecipientID = custL2
	in.CreatorID, in.CreatorInstitutionID = custL1, provInst
	_, err = svc.Create(context.Background(), admin, in)
	assert.ErrorIs(t, err, shared.ErrValidation, "admin-named creator must belong to the creator institution")
	assert.Empty(t, repo.offers)

	got, err := svc.Create(context.Background(), providerL2, in)
	require.NoError(t, err)
	assert.Equal(t, custL2, got.RecipientID)
	require.Len(t, repo.notes, 1)
	assert.Equal(t, custL2, repo.notes[0].RecipientID)
}

func TestGetIncludesItemsAndHidesForeignOffers(t *testing.T) {
	svc, repo := newTestService(pending())
	repo.items[offerID] = []Item{{ID: "i1", OfferID: offerID, ServiceName: "refill", UnitPrice: 10, Quantity: 3}}

	got, err := svc.Get(context.Background(), customerL1, offerID)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, got.Total, 0.001)
	assert.True(t, got.CanRespond)
	assert.False(t, got.CanUpdate)

	outsider := access.Principal{ID: "x", Role: access.RoleProviderL1, InstitutionID: "99999999-9999-4999-8999-999999999999"}
	_, err = svc.Get(context.Background(), outsider, offerID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Get(context.Background(), customerL2, offerID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "addressed to the institution, not to this person")
}

func TestRespondIsSingleShot(t *testing.T) {
	svc, repo := newTestService(pending())

	_, err := svc.Respond(context.Background(), providerL2, offerID, RespondInput{Status: StatusAccepted})
	assert.ErrorIs(t, err, shared.ErrForbidden, "the creator side cannot answer")

	got, err := svc.Respond(context.Background(), customerL1, offerID, RespondInput{Status: StatusAccepted})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
	assert.False(t, got.CanRespond)

	require.Len(t, repo.notes, 1)
	assert.Equal(t, provL2, repo.notes[0].RecipientID)
	assert.Contains(t, repo.notes[0].Content, "accepted")

	_, err = svc.Respond(context.Background(), customerL1, offerID, RespondInput{Status: StatusRejected})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestRespondLosingConcurrentAnswerIsConflict(t *testing.T) {
	svc, repo := newTestService(pending())
	repo.respondErr = fmt.Errorf("platform/db: commit tx: %w", fmt.Errorf("%w: concurrent update", shared.ErrConflict))

	_, err := svc.Respond(context.Background(), customerL1, offerID, RespondInput{Status: StatusAccepted})
	assert.ErrorIs(t, err, errNotPending)
	assert.Empty(t, repo.notes)
}

func TestUpdateOnlyWhilePending(t *testing.T) {
	answered := pending()
	answered.Status = StatusRejected
	svc, _ := newTestService(answered)

	details := "new terms"
	_, err := svc.Update(context.Background(), providerL2, offerID, UpdateInput{Details: &details})
	assert.ErrorIs(t, err, shared.ErrConflict)

	svc, _ = newTestService(pending())
	_, err = svc.Update(context.Background(), customerL1, offerID, UpdateInput{Details: &details})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	got, err := svc.Update(context.Background(), providerL2, offerID, UpdateInput{Details: &details})
	require.NoError(t, err)
	assert.Equal(t, "new terms", got.Details)
	assert.Equal(t, fixedNow, got.UpdatedAt)
}

func TestDeleteRequiresInstitutionLevel(t *testing.T) {
	svc, _ := newTestService(pending())

	assert.ErrorIs(t, svc.Delete(context.Background(), providerL2, offerID), shared.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), providerL1, offerID))
	assert.ErrorIs(t, svc.Delete(context.Background(), providerL1, offerID), shared.ErrNotFound)
}

func TestRespondRoute(t *testing.T) {
	svc, _ := newTestService(pending())
	r := chi.NewRouter()
	r.Route("/offers", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)

	send := func(p access.Principal, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/offers/"+offerID+"/respond", bytes.NewReader([]byte(body)))
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &p))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, send(customerL1, `{"status":"MAYBE"}`).Code)

	rec := send(customerL1, `{"status":"REJECTED"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"REJECTED"`)

	assert.Equal(t, http.StatusConflict, send(customerL1, `{"status":"ACCEPTED"}`).Code)
}

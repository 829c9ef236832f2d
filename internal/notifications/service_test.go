package notifications

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/rbac"
	"github.com/firewatch/firewatch/internal/shared"
)

const (
	custInst = "11111111-1111-4111-8111-111111111111"
	custL2   = "aaaaaaaa-0000-4000-8000-000000000002"
	noteID   = "ffffffff-0000-4000-8000-000000000001"
)

type memoryRepo struct {
	items map[string]Notification
}

func (m *memoryRepo) List(_ context.Context, _ access.Query) ([]Notification, int, error) {
	out := make([]Notification, 0, len(m.items))
	for _, n := range m.items {
		out = append(out, n)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Notification, error) {
	n, ok := m.items[id]
	if !ok {
		return Notification{}, shared.ErrNotFound
	}
	return n, nil
}

func (m *memoryRepo) Create(_ context.Context, n Notification) error {
	m.items[n.ID] = n
	return nil
}

func (m *memoryRepo) Update(_ context.Context, n Notification) error {
	m.items[n.ID] = n
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

var (
	admin      = access.Principal{ID: "cccccccc-0000-4000-8000-000000000001", Role: access.RoleAdmin}
	customerL1 = access.Principal{ID: "aaaaaaaa-0000-4000-8000-000000000001", Role: access.RoleCustomerL1, InstitutionID: custInst}
	customerL2 = access.Principal{ID: custL2, Role: access.RoleCustomerL2, InstitutionID: custInst}
	otherL2    = access.Principal{ID: "aaaaaaaa-0000-4000-8000-000000000003", Role: access.RoleCustomerL2, InstitutionID: custInst}
)

func newTestService() (*Service, *memoryRepo) {
	repo := &memoryRepo{items: map[string]Notification{
		noteID: {ID: noteID, Content: "Control due", Kind: KindControlDue, RecipientID: custL2, RecipientInstitutionID: custInst},
	}}
	return NewService(repo, 10, nil), repo
}

func TestRecipientMarksRead(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.MarkRead(ctx, otherL2, noteID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.MarkRead(ctx, customerL2, noteID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.True(t, repo.items[noteID].IsRead)
	assert.Equal(t, access.Flags{CanView: true, CanUpdate: true}, got.Flags)
}

func TestRecipientCannotRewriteContent(t *testing.T) {
	svc, _ := newTestService()
	content := "Nothing to see"

	_, err := svc.Update(context.Background(), customerL1, noteID, UpdateInput{Content: &content})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	got, err := svc.Update(context.Background(), admin, noteID, UpdateInput{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, got.Content)
}

func TestOnlyAdminsCreateAndDelete(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	in := CreateInput{Content: "Welcome", RecipientInstitutionID: custInst}

	_, err := svc.Create(ctx, customerL1, in)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Create(ctx, admin, CreateInput{Content: "Lost"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	got, err := svc.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, KindInfo, got.Kind)
	assert.Equal(t, admin.ID, got.CreatorID)

	assert.ErrorIs(t, svc.Delete(ctx, customerL2, noteID), shared.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin, noteID))
	assert.NotContains(t, repo.items, noteID)
}

func TestMarkReadRoute(t *testing.T) {
	svc, _ := newTestService()
	r := chi.NewRouter()
	r.Route("/notifications", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)

	req := httptest.NewRequest(http.MethodPost, "/notifications/"+noteID+"/read", bytes.NewReader(nil))
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &customerL2))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"isRead":true`)

	req = httptest.NewRequest(http.MethodPost, "/notifications/", bytes.NewReader([]byte(`{"content":"x","recipientId":"`+custL2+`"}`)))
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &customerL1))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

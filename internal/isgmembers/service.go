package isgmembers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/shared"
)

var errNoInstitution = fmt.Errorf("%w: institution does not exist", shared.ErrNotFound)

// Service applies the ISG member policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs an ISG member service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now}
}

// List returns the members visible to p, ordered by name.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	q := access.IsgMembers.Scope(p, params, s.pageSize)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("isgmembers: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, m := range items {
		rows = append(rows, row(p, m))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one member.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Row, error) {
	m, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	return row(p, m), nil
}

// Create adds a member to the caller's institution, or to the named
// institution for administrators.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Row, error) {
	if !access.IsgMembers.CanCreate(p.Role) {
		return Row{}, shared.ErrForbidden
	}
	institutionID := p.InstitutionID
	if p.IsAdmin() {
		institutionID = in.InstitutionID
	}
	if institutionID == "" {
		return Row{}, fmt.Errorf("%w: institutionId is required", shared.ErrValidation)
	}

	now := s.now().UTC()
	m := Member{
		ID:            uuid.NewString(),
		IsgNumber:     strings.TrimSpace(in.IsgNumber),
		Name:          strings.TrimSpace(in.Name),
		ContractDate:  in.ContractDate,
		InstitutionID: institutionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !access.IsgMembers.CanClaim(p, m.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	exists, err := s.repo.InstitutionExists(ctx, institutionID)
	if err != nil {
		return Row{}, fmt.Errorf("isgmembers: institution lookup: %w", err)
	}
	if !exists {
		return Row{}, errNoInstitution
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Row{}, fmt.Errorf("isgmembers: create: %w", err)
	}
	s.logger.Info("isg member created",
		slog.String("member_id", m.ID),
		slog.String("institution_id", m.InstitutionID),
		slog.String("actor_id", p.ID),
	)
	return row(p, m), nil
}

// Update modifies a member's number, name or contract date.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	m, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.IsgMembers.CanUpdate(p, m.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	in.apply(&m)
	m.IsgNumber = strings.TrimSpace(m.IsgNumber)
	m.Name = strings.TrimSpace(m.Name)
	m.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, m); err != nil {
		return Row{}, fmt.Errorf("isgmembers: update: %w", err)
	}
	return row(p, m), nil
}

// Delete removes a member.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	m, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.IsgMembers.CanDelete(p, m.Shape()) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("isgmembers: delete: %w", err)
	}
	s.logger.Info("isg member deleted", slog.String("member_id", id), slog.String("actor_id", p.ID))
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (Member, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return Member{}, fmt.Errorf("isgmembers: get: %w", err)
	}
	if !access.IsgMembers.CanView(p, m.Shape()) {
		return Member{}, shared.ErrNotFound
	}
	return m, nil
}

func row(p access.Principal, m Member) Row {
	return Row{Member: m, Flags: access.IsgMembers.Flags(p, m.Shape())}
}

package institutions

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

// Service applies the institution policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs an institution service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now}
}

// List returns the institutions visible to p, ordered by name.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	q := access.Institutions.Scope(p, params, s.pageSize)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("institutions: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, i := range items {
		rows = append(rows, row(p, i))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one institution.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Row, error) {
	i, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	return row(p, i), nil
}

// Create founds an institution. An institution-level caller without an
// institution founds one of its own side's kind and is attached to it;
// administrators create institutions of any kind without joining them.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Row, error) {
	if !access.Institutions.CanCreate(p.Role) {
		return Row{}, shared.ErrForbidden
	}
	now := s.now().UTC()
	i := Institution{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Kind:      in.Kind,
		Address:   in.Address,
		Phone:     in.Phone,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	founder := ""
	if !p.IsAdmin() {
		if p.HasInstitution() {
			return Row{}, fmt.Errorf("%w: caller already belongs to an institution", shared.ErrConflict)
		}
		i.Kind = kindFor(p.Role)
		founder = p.ID
		// The claim is checked as the principal will look once attached.
		attached := p
		attached.InstitutionID = i.ID
		if !access.Institutions.CanClaim(attached, i.Shape()) {
			return Row{}, shared.ErrForbidden
		}
	}
	if i.Kind == "" {
		return Row{}, fmt.Errorf("%w: kind is required", shared.ErrValidation)
	}

	if err := s.repo.Create(ctx, i, founder); err != nil {
		return Row{}, fmt.Errorf("institutions: create: %w", err)
	}
	s.logger.Info("institution created",
		slog.String("institution_id", i.ID),
		slog.String("kind", i.Kind),
		slog.String("actor_id", p.ID),
	)
	if founder != "" {
		p.InstitutionID = i.ID
	}
	return row(p, i), nil
}

// Update modifies an institution's contact details.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	i, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.Institutions.CanUpdate(p, i.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	in.apply(&i)
	i.Name = strings.TrimSpace(i.Name)
	i.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, i); err != nil {
		return Row{}, fmt.Errorf("institutions: update: %w", err)
	}
	return row(p, i), nil
}

// Delete removes an institution that nothing references any more.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	i, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.Institutions.CanDelete(p, i.Shape()) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("institutions: delete: %w", err)
	}
	s.logger.Info("institution deleted", slog.String("institution_id", id), slog.String("actor_id", p.ID))
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (Institution, error) {
	i, err := s.repo.Get(ctx, id)
	if err != nil {
		return Institution{}, fmt.Errorf("institutions: get: %w", err)
	}
	if !access.Institutions.CanView(p, i.Shape()) {
		return Institution{}, shared.ErrNotFound
	}
	return i, nil
}

func row(p access.Principal, i Institution) Row {
	return Row{Institution: i, Flags: access.Institutions.Flags(p, i.Shape())}
}

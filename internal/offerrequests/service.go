package offerrequests

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

var errWindow = fmt.Errorf("%w: endsOn precedes startsOn", shared.ErrValidation)

// Service applies the offer request policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs an offer request service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now}
}

// List returns the requests visible to p. Providers see the whole market.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	q := access.OfferRequests.Scope(p, params, s.pageSize)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("offerrequests: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, r := range items {
		rows = append(rows, row(p, r))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Row, error) {
	r, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	return row(p, r), nil
}

// Create posts a new open request for the caller's institution.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Row, error) {
	if !access.OfferRequests.CanCreate(p.Role) {
		return Row{}, shared.ErrForbidden
	}
	creator := p.Party()
	if p.IsAdmin() {
		creator = access.Party{PersonID: in.CreatorID, InstitutionID: in.CreatorInstitutionID}
	}
	if creator.InstitutionID == "" {
		return Row{}, fmt.Errorf("%w: creatorInstitutionId is required", shared.ErrValidation)
	}
	now := s.now().UTC()
	r := Request{
		ID:                   uuid.NewString(),
		Details:              strings.TrimSpace(in.Details),
		Status:               StatusOpen,
		StartsOn:             in.StartsOn,
		EndsOn:               in.EndsOn,
		CreatorID:            creator.PersonID,
		CreatorInstitutionID: creator.InstitutionID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if !r.window() {
		return Row{}, errWindow
	}
	if !access.OfferRequests.CanClaim(p, r.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Row{}, fmt.Errorf("offerrequests: create: %w", err)
	}
	s.logger.Info("offer request created", slog.String("request_id", r.ID), slog.String("actor_id", p.ID))
	return row(p, r), nil
}

// Update modifies a request, including closing it.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	r, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.OfferRequests.CanUpdate(p, r.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	in.apply(&r)
	if !r.window() {
		return Row{}, errWindow
	}
	r.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, r); err != nil {
		return Row{}, fmt.Errorf("offerrequests: update: %w", err)
	}
	return row(p, r), nil
}

// Delete removes a request.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	r, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.OfferRequests.CanDelete(p, r.Shape()) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("offerrequests: delete: %w", err)
	}
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (Request, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, fmt.Errorf("offerrequests: get: %w", err)
	}
	if !access.OfferRequests.CanView(p, r.Shape()) {
		return Request{}, shared.ErrNotFound
	}
	return r, nil
}

func row(p access.Principal, r Request) Row {
	return Row{Request: r, Flags: access.OfferRequests.Flags(p, r.Shape())}
}

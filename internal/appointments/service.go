package appointments

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

// Service applies the appointment policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs an appointment service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now}
}

// List returns the page of appointments visible to p from either side.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	q := access.Appointments.Scope(p, params, s.pageSize)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("appointments: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, a := range items {
		rows = append(rows, row(p, a))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Row, error) {
	a, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	return row(p, a), nil
}

// Create schedules a visit on behalf of the caller's provider side.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Row, error) {
	if !access.Appointments.CanCreate(p.Role) {
		return Row{}, shared.ErrForbidden
	}
	creator := p.Party()
	if p.IsAdmin() {
		creator = access.Party{PersonID: in.CreatorID, InstitutionID: in.CreatorInstitutionID}
	}
	if creator.InstitutionID == "" {
		return Row{}, fmt.Errorf("%w: creatorInstitutionId is required", shared.ErrValidation)
	}
	if in.EndsAt.Before(in.StartsAt) {
		return Row{}, fmt.Errorf("%w: endsAt precedes startsAt", shared.ErrValidation)
	}

	now := s.now().UTC()
	a := Appointment{
		ID:                     uuid.NewString(),
		Title:                  strings.TrimSpace(in.Title),
		Content:                in.Content,
		StartsAt:               in.StartsAt,
		EndsAt:                 in.EndsAt,
		CreatorID:              creator.PersonID,
		CreatorInstitutionID:   creator.InstitutionID,
		RecipientID:            in.RecipientID,
		RecipientInstitutionID: in.RecipientInstitutionID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if !access.Appointments.CanClaim(p, a.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	if p.IsAdmin() {
		if err := s.checkMember(ctx, a.CreatorID, a.CreatorInstitutionID, "creatorId"); err != nil {
			return Row{}, err
		}
	}
	if err := s.checkMember(ctx, a.RecipientID, a.RecipientInstitutionID, "recipientId"); err != nil {
		return Row{}, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Row{}, fmt.Errorf("appointments: create: %w", err)
	}
	return row(p, a), nil
}

// Update reschedules or edits an appointment.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	a, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.Appointments.CanUpdate(p, a.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	in.apply(&a)
	if a.EndsAt.Before(a.StartsAt) {
		return Row{}, fmt.Errorf("%w: endsAt precedes startsAt", shared.ErrValidation)
	}
	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return Row{}, fmt.Errorf("appointments: update: %w", err)
	}
	return row(p, a), nil
}

// Delete cancels an appointment.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	a, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.Appointments.CanDelete(p, a.Shape()) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	return nil
}

// checkMember rejects a named person outside the named institution.
func (s *Service) checkMember(ctx context.Context, personID, institutionID, field string) error {
	if personID == "" {
		return nil
	}
	ok, err := s.repo.MemberOf(ctx, personID, institutionID)
	if err != nil {
		return fmt.Errorf("appointments: member lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s does not belong to the institution", shared.ErrValidation, field)
	}
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointments: get: %w", err)
	}
	if !access.Appointments.CanView(p, a.Shape()) {
		return Appointment{}, shared.ErrNotFound
	}
	return a, nil
}

func row(p access.Principal, a Appointment) Row {
	return Row{Appointment: a, Flags: access.Appointments.Flags(p, a.Shape())}
}

package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/shared"
)

var errUnknownDevice = fmt.Errorf("%w: unknown device", shared.ErrValidation)

// Service applies the maintenance policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a maintenance service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now}
}

// List returns the page of cards visible to p.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	q := access.Maintenance.Scope(p, params, s.pageSize)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("maintenance: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, c := range items {
		rows = append(rows, row(p, c))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one card.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Row, error) {
	c, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	return row(p, c), nil
}

// Create records maintenance on a device the caller can see. The customer
// side of the card is the device's owner.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Row, error) {
	if !access.Maintenance.CanCreate(p.Role) {
		return Row{}, shared.ErrForbidden
	}
	device, err := s.repo.Device(ctx, in.DeviceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Row{}, errUnknownDevice
		}
		return Row{}, fmt.Errorf("maintenance: load device: %w", err)
	}
	if !access.Devices.CanView(p, device.Shape) {
		return Row{}, errUnknownDevice
	}

	provider := p.Party()
	if p.IsAdmin() {
		provider = access.Party{PersonID: in.ProviderID, InstitutionID: in.ProviderInstitutionID}
		if provider.InstitutionID == "" {
			provider = device.Shape.Counterparty
		}
	}
	if provider.InstitutionID == "" {
		return Row{}, fmt.Errorf("%w: providerInstitutionId is required", shared.ErrValidation)
	}
	if in.NextMaintenanceDate != nil && in.NextMaintenanceDate.Before(in.MaintenanceDate) {
		return Row{}, fmt.Errorf("%w: nextMaintenanceDate precedes maintenanceDate", shared.ErrValidation)
	}

	now := s.now().UTC()
	c := Card{
		ID:                    uuid.NewString(),
		DeviceID:              device.ID,
		MaintenanceDate:       in.MaintenanceDate,
		NextMaintenanceDate:   in.NextMaintenanceDate,
		Details:               in.Details,
		ProviderID:            provider.PersonID,
		ProviderInstitutionID: provider.InstitutionID,
		CustomerID:            device.Shape.Owner.PersonID,
		CustomerInstitutionID: device.Shape.Owner.InstitutionID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if !access.Maintenance.CanClaim(p, c.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Row{}, fmt.Errorf("maintenance: create: %w", err)
	}
	s.logger.Info("maintenance recorded", slog.String("card_id", c.ID), slog.String("device_id", c.DeviceID))
	return row(p, c), nil
}

// Update edits a card.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	c, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.Maintenance.CanUpdate(p, c.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	in.apply(&c)
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return Row{}, fmt.Errorf("maintenance: update: %w", err)
	}
	return row(p, c), nil
}

// Delete removes a card.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	c, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.Maintenance.CanDelete(p, c.Shape()) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("maintenance: delete: %w", err)
	}
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (Card, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Card{}, fmt.Errorf("maintenance: get: %w", err)
	}
	if !access.Maintenance.CanView(p, c.Shape()) {
		return Card{}, shared.ErrNotFound
	}
	return c, nil
}

func row(p access.Principal, c Card) Row {
	return Row{Card: c, Flags: access.Maintenance.Flags(p, c.Shape())}
}

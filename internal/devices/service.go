package devices

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

// Service applies the device policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a device service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now}
}

// List returns the page of devices visible to p.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	q := access.Devices.Scope(p, params, s.pageSize)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("devices: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, d := range items {
		rows = append(rows, row(p, d))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one device. Devices p may not view are reported as absent.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Row, error) {
	d, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	return row(p, d), nil
}

// Create registers a new device owned by the caller's side.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Row, error) {
	if !access.Devices.CanCreate(p.Role) {
		return Row{}, shared.ErrForbidden
	}
	owner := p.Party()
	if p.IsAdmin() {
		owner = access.Party{PersonID: in.OwnerID, InstitutionID: in.OwnerInstitutionID}
	}
	if owner.InstitutionID == "" {
		return Row{}, fmt.Errorf("%w: ownerInstitutionId is required", shared.ErrValidation)
	}
	if in.ProviderID != "" && in.ProviderInstitutionID == "" {
		return Row{}, fmt.Errorf("%w: providerId requires providerInstitutionId", shared.ErrValidation)
	}

	now := s.now().UTC()
	d := Device{
		ID:                    uuid.NewString(),
		SerialNumber:          strings.TrimSpace(in.SerialNumber),
		DeviceType:            in.DeviceType,
		Feature:               in.Feature,
		ProductionDate:        in.ProductionDate,
		LastControlDate:       in.LastControlDate,
		NextControlDate:       in.NextControlDate,
		ExpirationDate:        in.ExpirationDate,
		Location:              in.Location,
		Status:                in.Status,
		Details:               in.Details,
		OwnerID:               owner.PersonID,
		OwnerInstitutionID:    owner.InstitutionID,
		ProviderID:            in.ProviderID,
		ProviderInstitutionID: in.ProviderInstitutionID,
		IsgMemberID:           in.IsgMemberID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
	if !access.Devices.CanClaim(p, d.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	if err := s.checkIsgMember(ctx, d); err != nil {
		return Row{}, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return Row{}, fmt.Errorf("devices: create: %w", err)
	}
	s.logger.Info("device created", slog.String("device_id", d.ID), slog.String("actor_id", p.ID))
	return row(p, d), nil
}

// Update modifies the mutable fields of a device.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	d, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.Devices.CanUpdate(p, d.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	in.apply(&d)
	if in.IsgMemberID != nil {
		if err := s.checkIsgMember(ctx, d); err != nil {
			return Row{}, err
		}
	}
	d.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, d); err != nil {
		return Row{}, fmt.Errorf("devices: update: %w", err)
	}
	return row(p, d), nil
}

// Delete removes a device.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	d, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.Devices.CanDelete(p, d.Shape()) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("devices: delete: %w", err)
	}
	s.logger.Info("device deleted", slog.String("device_id", id), slog.String("actor_id", p.ID))
	return nil
}

// checkIsgMember requires a linked ISG member to work for the owner
// institution.
func (s *Service) checkIsgMember(ctx context.Context, d Device) error {
	if d.IsgMemberID == "" {
		return nil
	}
	ok, err := s.repo.IsgMemberOf(ctx, d.IsgMemberID, d.OwnerInstitutionID)
	if err != nil {
		return fmt.Errorf("devices: isg member lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: isgMemberId does not belong to the owner institution", shared.ErrValidation)
	}
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (Device, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Device{}, fmt.Errorf("devices: get: %w", err)
	}
	if !access.Devices.CanView(p, d.Shape()) {
		return Device{}, shared.ErrNotFound
	}
	return d, nil
}

func row(p access.Principal, d Device) Row {
	return Row{Device: d, Flags: access.Devices.Flags(p, d.Shape())}
}

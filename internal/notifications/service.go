package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/shared"
)

// Service applies the notification policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a notification service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now}
}

// List returns the caller's notifications.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	q := access.Notifications.Scope(p, params, s.pageSize)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("notifications: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, n := range items {
		rows = append(rows, row(p, n))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one notification.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Row, error) {
	n, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	return row(p, n), nil
}

// Create raises a notification by hand. Only administrators may do so.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Row, error) {
	if !access.Notifications.CanCreate(p.Role) {
		return Row{}, shared.ErrForbidden
	}
	if in.RecipientID == "" && in.RecipientInstitutionID == "" {
		return Row{}, fmt.Errorf("%w: recipientId or recipientInstitutionId is required", shared.ErrValidation)
	}
	n := Notification{
		ID:                     uuid.NewString(),
		Content:                in.Content,
		Kind:                   in.Kind,
		Link:                   in.Link,
		DeviceID:               in.DeviceID,
		CreatorID:              p.ID,
		RecipientID:            in.RecipientID,
		RecipientInstitutionID: in.RecipientInstitutionID,
		CreatedAt:              s.now().UTC(),
	}
	if n.Kind == "" {
		n.Kind = KindInfo
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return Row{}, fmt.Errorf("notifications: create: %w", err)
	}
	return row(p, n), nil
}

// Update edits a notification. Recipients may only change the read flag.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	n, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.Notifications.CanUpdate(p, n.Shape()) || (in.editsContent() && !p.IsAdmin()) {
		return Row{}, shared.ErrForbidden
	}
	in.apply(&n)
	if err := s.repo.Update(ctx, n); err != nil {
		return Row{}, fmt.Errorf("notifications: update: %w", err)
	}
	return row(p, n), nil
}

// MarkRead flags a notification as read.
func (s *Service) MarkRead(ctx context.Context, p access.Principal, id string) (Row, error) {
	read := true
	return s.Update(ctx, p, id, UpdateInput{IsRead: &read})
}

// Delete removes a notification.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	n, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.Notifications.CanDelete(p, n.Shape()) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("notifications: delete: %w", err)
	}
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return Notification{}, fmt.Errorf("notifications: get: %w", err)
	}
	if !access.Notifications.CanView(p, n.Shape()) {
		return Notification{}, shared.ErrNotFound
	}
	return n, nil
}

func row(p access.Principal, n Notification) Row {
	return Row{Notification: n, Flags: access.Notifications.Flags(p, n.Shape())}
}

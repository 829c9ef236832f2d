package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/shared"
)

var errRole = fmt.Errorf("%w: role cannot be assigned by the caller", shared.ErrForbidden)

// Service applies the user policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
	cost     int
}

// NewService constructs a user service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now, cost: bcrypt.DefaultCost}
}

// List returns the users visible to p, ordered by name.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	return s.list(ctx, p, access.Users.Scope(p, params, s.pageSize))
}

// ListByInstitution narrows the visible users to one institution.
func (s *Service) ListByInstitution(ctx context.Context, p access.Principal, institutionID string, params access.ListParams) (shared.Page[Row], error) {
	q := access.Users.Scope(p, params, s.pageSize)
	return s.list(ctx, p, q.Narrow(sq.Eq{"institution_id": institutionID}))
}

func (s *Service) list(ctx context.Context, p access.Principal, q access.Query) (shared.Page[Row], error) {
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("users: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, u := range items {
		rows = append(rows, row(p, u))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Row, error) {
	u, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	return row(p, u), nil
}

// Create adds an account. Institution administrators add members to their
// own institution with a role of their own side.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Row, error) {
	if !access.Users.CanCreate(p.Role) {
		return Row{}, shared.ErrForbidden
	}
	role, ok := access.ParseRole(in.Role)
	if !ok {
		return Row{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, in.Role)
	}
	if !assignable(p, role) {
		return Row{}, errRole
	}
	institutionID := p.InstitutionID
	if p.IsAdmin() {
		institutionID = in.InstitutionID
	} else if institutionID == "" {
		return Row{}, fmt.Errorf("%w: institutionId is required", shared.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Row{}, fmt.Errorf("users: hash password: %w", err)
	}
	now := s.now().UTC()
	u := User{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(in.Name),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Role:            string(role),
		InstitutionID:   institutionID,
		EmailVerifiedAt: &now,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !access.Users.CanClaim(p, u.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	if err := s.repo.Create(ctx, u, string(hash)); err != nil {
		return Row{}, fmt.Errorf("users: create: %w", err)
	}
	s.logger.Info("user created",
		slog.String("user_id", u.ID),
		slog.String("role", u.Role),
		slog.String("actor_id", p.ID),
	)
	return row(p, u), nil
}

// Update modifies a user. Role and activation changes need an institution
// administrator; a password may only be changed by its owner or an
// administrator.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	u, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.Users.CanUpdate(p, u.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	if in.administrative() && !p.IsAdmin() && !p.Role.IsInstitutionLevel() {
		return Row{}, shared.ErrForbidden
	}
	if in.Password != nil && !p.IsAdmin() && p.ID != u.ID {
		return Row{}, shared.ErrForbidden
	}
	if !manageable(p, u) {
		return Row{}, errRole
	}

	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		role, ok := access.ParseRole(*in.Role)
		if !ok {
			return Row{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, *in.Role)
		}
		if !assignable(p, role) {
			return Row{}, errRole
		}
		u.Role = string(role)
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	var hash []byte
	if in.Password != nil {
		if hash, err = bcrypt.GenerateFromPassword([]byte(*in.Password), s.cost); err != nil {
			return Row{}, fmt.Errorf("users: hash password: %w", err)
		}
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, u, string(hash)); err != nil {
		return Row{}, fmt.Errorf("users: update: %w", err)
	}
	s.logger.Info("user updated", slog.String("user_id", u.ID), slog.String("actor_id", p.ID))
	return row(p, u), nil
}

// Delete removes a user other than the caller.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	u, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.Users.CanDelete(p, u.Shape()) {
		return shared.ErrForbidden
	}
	if u.ID == p.ID {
		return fmt.Errorf("%w: cannot delete your own account", shared.ErrConflict)
	}
	if !manageable(p, u) {
		return errRole
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	s.logger.Info("user deleted", slog.String("user_id", id), slog.String("actor_id", p.ID))
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("users: get: %w", err)
	}
	if !access.Users.CanView(p, u.Shape()) {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

// assignable reports whether p may hand out role. Institution administrators
// stay on their own side and never grant more than their own level.
func assignable(p access.Principal, role access.Role) bool {
	switch p.Role {
	case access.RoleAdmin:
		return true
	case access.RoleCustomerL1:
		return role == access.RoleCustomerL1 || role == access.RoleCustomerL2
	case access.RoleProviderL1:
		return role == access.RoleProviderL1 || role == access.RoleProviderL2
	default:
		return false
	}
}

// manageable reports whether p may change another account. The target's
// current role must be one p could have assigned.
func manageable(p access.Principal, u User) bool {
	if p.IsAdmin() || p.ID == u.ID {
		return true
	}
	return assignable(p, access.Role(u.Role))
}

func row(p access.Principal, u User) Row {
	return Row{User: u, Flags: access.Users.Flags(p, u.Shape())}
}

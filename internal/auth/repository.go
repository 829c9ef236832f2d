package auth

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account Account) error
	MarkVerified(ctx context.Context, email string, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var accountColumns = []string{
	"id", "name", "email", "password_hash", "role", "institution_id", "email_verified_at", "is_active",
}

func scanAccount(row pgx.CollectableRow) (*Account, error) {
	var (
		a    Account
		inst *string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &inst, &a.EmailVerifiedAt, &a.IsActive); err != nil {
		return nil, err
	}
	a.InstitutionID = db.Str(inst)
	return &a, nil
}

// FindByEmail fetches an account by e-mail.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	q := db.Builder.Select(accountColumns...).From("users").Where("email = ?", normalizeEmail(email))
	return db.One(ctx, r.pool, q, scanAccount)
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	q := db.Builder.Select(accountColumns...).From("users").Where("id = ?", id)
	return db.One(ctx, r.pool, q, scanAccount)
}

// Create inserts a new account.
func (r *PGRepository) Create(ctx context.Context, a Account) error {
	stmt := db.Builder.Insert("users").
		Columns("id", "name", "email", "password_hash", "role", "institution_id", "is_active").
		Values(a.ID, a.Name, normalizeEmail(a.Email), a.PasswordHash, a.Role, db.Null(a.InstitutionID), a.IsActive)
	return db.Exec(ctx, r.pool, stmt)
}

// MarkVerified stamps the account's e-mail as confirmed.
func (r *PGRepository) MarkVerified(ctx context.Context, email string, at time.Time) error {
	stmt := db.Builder.Update("users").
		Set("email_verified_at", at).
		Set("updated_at", at).
		Where("email = ?", normalizeEmail(email))
	return db.Exec(ctx, r.pool, stmt)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Repository = (*PGRepository)(nil)

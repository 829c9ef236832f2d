package users

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for users.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]User, int, error)
	Get(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, u User, passwordHash string) error
	// Update writes the profile columns; a non-empty passwordHash replaces
	// the stored one.
	Update(ctx context.Context, u User, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const table = "users"

var columns = []string{
	"id", "name", "email", "role", "institution_id", "email_verified_at", "is_active", "created_at", "updated_at",
}

func scanUser(row pgx.CollectableRow) (User, error) {
	var (
		u    User
		inst *string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &inst, &u.EmailVerifiedAt, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.InstitutionID = db.Str(inst)
	return u, err
}

// List returns one scoped page and the scoped total.
func (r *PGRepository) List(ctx context.Context, q access.Query) ([]User, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, r.pool, page, count, scanUser)
}

// Get fetches a user by id.
func (r *PGRepository) Get(ctx context.Context, id string) (User, error) {
	return db.One(ctx, r.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanUser)
}

// Create inserts a user.
func (r *PGRepository) Create(ctx context.Context, u User, passwordHash string) error {
	stmt := db.Builder.Insert(table).
		Columns(append(columns, "password_hash")...).
		Values(
			u.ID, u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.Role, db.Null(u.InstitutionID),
			u.EmailVerifiedAt, u.IsActive, u.CreatedAt, u.UpdatedAt, passwordHash,
		)
	return db.Exec(ctx, r.pool, stmt)
}

// Update writes the mutable columns.
func (r *PGRepository) Update(ctx context.Context, u User, passwordHash string) error {
	stmt := db.Builder.Update(table).
		Set("name", u.Name).
		Set("role", u.Role).
		Set("is_active", u.IsActive).
		Set("updated_at", u.UpdatedAt).
		Where("id = ?", u.ID)
	if passwordHash != "" {
		stmt = stmt.Set("password_hash", passwordHash)
	}
	return db.Exec(ctx, r.pool, stmt)
}

// Delete removes a user.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, r.pool, db.Builder.Delete(table).Where("id = ?", id))
}

var _ Repository = (*PGRepository)(nil)

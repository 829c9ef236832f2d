package isgmembers

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for ISG members.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]Member, int, error)
	Get(ctx context.Context, id string) (Member, error)
	Create(ctx context.Context, m Member) error
	Update(ctx context.Context, m Member) error
	Delete(ctx context.Context, id string) error
	InstitutionExists(ctx context.Context, id string) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const table = "isg_members"

var columns = []string{"id", "isg_number", "name", "contract_date", "institution_id", "created_at", "updated_at"}

func scanMember(row pgx.CollectableRow) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.IsgNumber, &m.Name, &m.ContractDate, &m.InstitutionID, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// List returns one scoped page and the scoped total.
func (r *PGRepository) List(ctx context.Context, q access.Query) ([]Member, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, r.pool, page, count, scanMember)
}

// Get fetches a member by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Member, error) {
	return db.One(ctx, r.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanMember)
}

// Create inserts a member.
func (r *PGRepository) Create(ctx context.Context, m Member) error {
	stmt := db.Builder.Insert(table).
		Columns(columns...).
		Values(m.ID, m.IsgNumber, m.Name, m.ContractDate, m.InstitutionID, m.CreatedAt, m.UpdatedAt)
	return db.Exec(ctx, r.pool, stmt)
}

// Update writes the mutable columns.
func (r *PGRepository) Update(ctx context.Context, m Member) error {
	stmt := db.Builder.Update(table).
		Set("isg_number", m.IsgNumber).
		Set("name", m.Name).
		Set("contract_date", m.ContractDate).
		Set("updated_at", m.UpdatedAt).
		Where("id = ?", m.ID)
	return db.Exec(ctx, r.pool, stmt)
}

// Delete removes a member. Devices naming it are unlinked by the schema.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, r.pool, db.Builder.Delete(table).Where("id = ?", id))
}

// InstitutionExists reports whether the institution is known.
func (r *PGRepository) InstitutionExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM institutions WHERE id = $1)", id).Scan(&ok)
	return ok, err
}

var _ Repository = (*PGRepository)(nil)

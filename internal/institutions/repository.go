package institutions

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for institutions.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]Institution, int, error)
	Get(ctx context.Context, id string) (Institution, error)
	// Create stores the institution and, when founderID is set, attaches that
	// user to it in the same transaction.
	Create(ctx context.Context, i Institution, founderID string) error
	Update(ctx context.Context, i Institution) error
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

const table = "institutions"

var columns = []string{"id", "name", "kind", "address", "phone", "email", "created_at", "updated_at"}

func scanInstitution(row pgx.CollectableRow) (Institution, error) {
	var i Institution
	err := row.Scan(&i.ID, &i.Name, &i.Kind, &i.Address, &i.Phone, &i.Email, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// List returns one scoped page and the scoped total.
func (r *PGRepository) List(ctx context.Context, q access.Query) ([]Institution, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, r.pool, page, count, scanInstitution)
}

// Get fetches an institution by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Institution, error) {
	return db.One(ctx, r.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanInstitution)
}

// Create inserts an institution and links its founder.
func (r *PGRepository) Create(ctx context.Context, i Institution, founderID string) error {
	insert := db.Builder.Insert(table).
		Columns(columns...).
		Values(i.ID, i.Name, i.Kind, i.Address, i.Phone, i.Email, i.CreatedAt, i.UpdatedAt)
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := db.Exec(ctx, tx, insert); err != nil {
			return err
		}
		if founderID == "" {
			return nil
		}
		link := db.Builder.Update("users").
			Set("institution_id", i.ID).
			Set("updated_at", i.CreatedAt).
			Where("id = ? AND institution_id IS NULL", founderID)
		return db.Exec(ctx, tx, link)
	})
}

// Update writes the mutable columns.
func (r *PGRepository) Update(ctx context.Context, i Institution) error {
	stmt := db.Builder.Update(table).
		Set("name", i.Name).
		Set("address", i.Address).
		Set("phone", i.Phone).
		Set("email", i.Email).
		Set("updated_at", i.UpdatedAt).
		Where("id = ?", i.ID)
	return db.Exec(ctx, r.pool, stmt)
}

// Delete removes an institution. Rows that still reference it keep the
// delete from succeeding.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, r.pool, db.Builder.Delete(table).Where("id = ?", id))
}

var _ Repository = (*PGRepository)(nil)

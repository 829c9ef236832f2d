package offerrequests

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for offer requests.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]Request, int, error)
	Get(ctx context.Context, id string) (Request, error)
	Create(ctx context.Context, r Request) error
	Update(ctx context.Context, r Request) error
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

const table = "offer_requests"

var columns = []string{
	"id", "details", "status", "starts_on", "ends_on",
	"creator_id", "creator_institution_id", "created_at", "updated_at",
}

func scanRequest(row pgx.CollectableRow) (Request, error) {
	var (
		r         Request
		creatorID *string
	)
	err := row.Scan(
		&r.ID, &r.Details, &r.Status, &r.StartsOn, &r.EndsOn,
		&creatorID, &r.CreatorInstitutionID, &r.CreatedAt, &r.UpdatedAt,
	)
	r.CreatorID = db.Str(creatorID)
	return r, err
}

// List returns one scoped page and the scoped total.
func (p *PGRepository) List(ctx context.Context, q access.Query) ([]Request, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, p.pool, page, count, scanRequest)
}

// Get fetches a request by id.
func (p *PGRepository) Get(ctx context.Context, id string) (Request, error) {
	return db.One(ctx, p.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanRequest)
}

// Create inserts a request.
func (p *PGRepository) Create(ctx context.Context, r Request) error {
	stmt := db.Builder.Insert(table).
		Columns(columns...).
		Values(
			r.ID, r.Details, r.Status, r.StartsOn, r.EndsOn,
			db.Null(r.CreatorID), r.CreatorInstitutionID, r.CreatedAt, r.UpdatedAt,
		)
	return db.Exec(ctx, p.pool, stmt)
}

// Update writes the mutable columns.
func (p *PGRepository) Update(ctx context.Context, r Request) error {
	stmt := db.Builder.Update(table).
		Set("details", r.Details).
		Set("status", r.Status).
		Set("starts_on", r.StartsOn).
		Set("ends_on", r.EndsOn).
		Set("updated_at", r.UpdatedAt).
		Where("id = ?", r.ID)
	return db.Exec(ctx, p.pool, stmt)
}

// Delete removes a request.
func (p *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, p.pool, db.Builder.Delete(table).Where("id = ?", id))
}

var _ Repository = (*PGRepository)(nil)

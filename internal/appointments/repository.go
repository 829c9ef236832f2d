package appointments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for appointments.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]Appointment, int, error)
	Get(ctx context.Context, id string) (Appointment, error)
	Create(ctx context.Context, a Appointment) error
	Update(ctx context.Context, a Appointment) error
	Delete(ctx context.Context, id string) error
	MemberOf(ctx context.Context, userID, institutionID string) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const table = "appointments"

var columns = []string{
	"id", "title", "content", "starts_at", "ends_at",
	"creator_id", "creator_institution_id", "recipient_id", "recipient_institution_id",
	"created_at", "updated_at",
}

func scanAppointment(row pgx.CollectableRow) (Appointment, error) {
	var (
		a                      Appointment
		creatorID, recipientID *string
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.StartsAt, &a.EndsAt,
		&creatorID, &a.CreatorInstitutionID, &recipientID, &a.RecipientInstitutionID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	a.CreatorID = db.Str(creatorID)
	a.RecipientID = db.Str(recipientID)
	return a, err
}

// List returns one scoped page and the scoped total.
func (r *PGRepository) List(ctx context.Context, q access.Query) ([]Appointment, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, r.pool, page, count, scanAppointment)
}

// Get fetches an appointment by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Appointment, error) {
	return db.One(ctx, r.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanAppointment)
}

// Create inserts an appointment.
func (r *PGRepository) Create(ctx context.Context, a Appointment) error {
	stmt := db.Builder.Insert(table).
		Columns(columns...).
		Values(
			a.ID, a.Title, a.Content, a.StartsAt, a.EndsAt,
			db.Null(a.CreatorID), a.CreatorInstitutionID, db.Null(a.RecipientID), a.RecipientInstitutionID,
			a.CreatedAt, a.UpdatedAt,
		)
	return db.Exec(ctx, r.pool, stmt)
}

// Update writes the mutable columns.
func (r *PGRepository) Update(ctx context.Context, a Appointment) error {
	stmt := db.Builder.Update(table).
		Set("title", a.Title).
		Set("content", a.Content).
		Set("starts_at", a.StartsAt).
		Set("ends_at", a.EndsAt).
		Set("updated_at", a.UpdatedAt).
		Where("id = ?", a.ID)
	return db.Exec(ctx, r.pool, stmt)
}

// Delete removes an appointment.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, r.pool, db.Builder.Delete(table).Where("id = ?", id))
}

// MemberOf reports whether the user belongs to the institution.
func (r *PGRepository) MemberOf(ctx context.Context, userID, institutionID string) (bool, error) {
	return db.MemberOf(ctx, r.pool, userID, institutionID)
}

var _ Repository = (*PGRepository)(nil)

package notifications

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for notifications.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]Notification, int, error)
	Get(ctx context.Context, id string) (Notification, error)
	Create(ctx context.Context, n Notification) error
	Update(ctx context.Context, n Notification) error
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

const table = "notifications"

var columns = []string{
	"id", "content", "kind", "link", "is_read",
	"device_id", "creator_id", "recipient_id", "recipient_institution_id", "created_at",
}

func scanNotification(row pgx.CollectableRow) (Notification, error) {
	var (
		n                                    Notification
		deviceID, creatorID, recipientID, ri *string
	)
	err := row.Scan(&n.ID, &n.Content, &n.Kind, &n.Link, &n.IsRead, &deviceID, &creatorID, &recipientID, &ri, &n.CreatedAt)
	n.DeviceID = db.Str(deviceID)
	n.CreatorID = db.Str(creatorID)
	n.RecipientID = db.Str(recipientID)
	n.RecipientInstitutionID = db.Str(ri)
	return n, err
}

// Insert stores a notification through q, which may be a transaction owned
// by another package.
func Insert(ctx context.Context, q db.Querier, n Notification) error {
	stmt := db.Builder.Insert(table).
		Columns(columns...).
		Values(
			n.ID, n.Content, n.Kind, n.Link, n.IsRead,
			db.Null(n.DeviceID), db.Null(n.CreatorID), db.Null(n.RecipientID), db.Null(n.RecipientInstitutionID),
			n.CreatedAt,
		)
	return db.Exec(ctx, q, stmt)
}

// List returns one scoped page and the scoped total.
func (r *PGRepository) List(ctx context.Context, q access.Query) ([]Notification, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, r.pool, page, count, scanNotification)
}

// Get fetches a notification by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Notification, error) {
	return db.One(ctx, r.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanNotification)
}

// Create inserts a notification.
func (r *PGRepository) Create(ctx context.Context, n Notification) error {
	return Insert(ctx, r.pool, n)
}

// Update writes the mutable columns.
func (r *PGRepository) Update(ctx context.Context, n Notification) error {
	stmt := db.Builder.Update(table).
		Set("content", n.Content).
		Set("link", n.Link).
		Set("is_read", n.IsRead).
		Where("id = ?", n.ID)
	return db.Exec(ctx, r.pool, stmt)
}

// Delete removes a notification.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, r.pool, db.Builder.Delete(table).Where("id = ?", id))
}

var _ Repository = (*PGRepository)(nil)

package offers

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/notifications"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for offers.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]Offer, int, error)
	Get(ctx context.Context, id string) (Offer, error)
	Items(ctx context.Context, offerID string) ([]Item, error)
	// Create stores the offer, its items and the recipient's notification
	// atomically.
	Create(ctx context.Context, o Offer, items []Item, note notifications.Notification) error
	Update(ctx context.Context, o Offer) error
	// Respond moves a pending offer to its final status and notifies the
	// creator atomically. It fails with shared.ErrNotFound when the offer is
	// no longer pending.
	Respond(ctx context.Context, o Offer, note notifications.Notification) error
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

const (
	table     = "offers"
	itemTable = "offer_items"
)

var (
	columns = []string{
		"id", "offer_date", "validity_date", "status", "details", "payment_term",
		"creator_id", "creator_institution_id", "recipient_id", "recipient_institution_id",
		"created_at", "updated_at",
	}
	itemColumns = []string{"id", "offer_id", "service_name", "unit_price", "quantity", "detail"}
)

func scanOffer(row pgx.CollectableRow) (Offer, error) {
	var (
		o                      Offer
		creatorID, recipientID *string
	)
	err := row.Scan(
		&o.ID, &o.OfferDate, &o.ValidityDate, &o.Status, &o.Details, &o.PaymentTerm,
		&creatorID, &o.CreatorInstitutionID, &recipientID, &o.RecipientInstitutionID,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.CreatorID = db.Str(creatorID)
	o.RecipientID = db.Str(recipientID)
	return o, err
}

func scanItem(row pgx.CollectableRow) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.OfferID, &it.ServiceName, &it.UnitPrice, &it.Quantity, &it.Detail)
	return it, err
}

// List returns one scoped page and the scoped total.
func (r *PGRepository) List(ctx context.Context, q access.Query) ([]Offer, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, r.pool, page, count, scanOffer)
}

// Get fetches an offer header by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Offer, error) {
	return db.One(ctx, r.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanOffer)
}

// Items lists the lines of an offer.
func (r *PGRepository) Items(ctx context.Context, offerID string) ([]Item, error) {
	query, args, err := db.Builder.Select(itemColumns...).From(itemTable).
		Where("offer_id = ?", offerID).
		OrderBy("service_name", "id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanItem)
}

// Create inserts the offer, its items and the notification in one transaction.
func (r *PGRepository) Create(ctx context.Context, o Offer, items []Item, note notifications.Notification) error {
	insert := db.Builder.Insert(table).
		Columns(columns...).
		Values(
			o.ID, o.OfferDate, o.ValidityDate, o.Status, o.Details, o.PaymentTerm,
			db.Null(o.CreatorID), o.CreatorInstitutionID, db.Null(o.RecipientID), o.RecipientInstitutionID,
			o.CreatedAt, o.UpdatedAt,
		)
	lines := db.Builder.Insert(itemTable).Columns(itemColumns...)
	for _, it := range items {
		lines = lines.Values(it.ID, it.OfferID, it.ServiceName, it.UnitPrice, it.Quantity, it.Detail)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := db.Exec(ctx, tx, insert); err != nil {
			return err
		}
		if len(items) > 0 {
			if err := db.Exec(ctx, tx, lines); err != nil {
				return err
			}
		}
		return notifications.Insert(ctx, tx, note)
	})
}

// Update writes the mutable columns of a pending offer.
func (r *PGRepository) Update(ctx context.Context, o Offer) error {
	stmt := db.Builder.Update(table).
		Set("validity_date", o.ValidityDate).
		Set("details", o.Details).
		Set("payment_term", o.PaymentTerm).
		Set("updated_at", o.UpdatedAt).
		Where("id = ? AND status = ?", o.ID, StatusPending)
	return db.Exec(ctx, r.pool, stmt)
}

// Respond records the answer and notifies the creator in one transaction.
func (r *PGRepository) Respond(ctx context.Context, o Offer, note notifications.Notification) error {
	stmt := db.Builder.Update(table).
		Set("status", o.Status).
		Set("updated_at", o.UpdatedAt).
		Where("id = ? AND status = ?", o.ID, StatusPending)
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := db.Exec(ctx, tx, stmt); err != nil {
			return err
		}
		return notifications.Insert(ctx, tx, note)
	})
}

// Delete removes an offer and, by cascade, its items.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, r.pool, db.Builder.Delete(table).Where("id = ?", id))
}

// MemberOf reports whether the user belongs to the institution.
func (r *PGRepository) MemberOf(ctx context.Context, userID, institutionID string) (bool, error) {
	return db.MemberOf(ctx, r.pool, userID, institutionID)
}

var _ Repository = (*PGRepository)(nil)

package maintenance

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for maintenance cards.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]Card, int, error)
	Get(ctx context.Context, id string) (Card, error)
	Device(ctx context.Context, id string) (DeviceRef, error)
	// Create stores the card and moves the device's control dates forward.
	Create(ctx context.Context, c Card) error
	Update(ctx context.Context, c Card) error
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

const table = "maintenance_cards"

var columns = []string{
	"id", "device_id", "maintenance_date", "next_maintenance_date", "details",
	"provider_id", "provider_institution_id", "customer_id", "customer_institution_id",
	"created_at", "updated_at",
}

func scanCard(row pgx.CollectableRow) (Card, error) {
	var (
		c                      Card
		providerID, customerID *string
	)
	err := row.Scan(
		&c.ID, &c.DeviceID, &c.MaintenanceDate, &c.NextMaintenanceDate, &c.Details,
		&providerID, &c.ProviderInstitutionID, &customerID, &c.CustomerInstitutionID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	c.ProviderID = db.Str(providerID)
	c.CustomerID = db.Str(customerID)
	return c, err
}

// List returns one scoped page and the scoped total.
func (r *PGRepository) List(ctx context.Context, q access.Query) ([]Card, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, r.pool, page, count, scanCard)
}

// Get fetches a card by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Card, error) {
	return db.One(ctx, r.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanCard)
}

// Device loads the ownership facts of a device.
func (r *PGRepository) Device(ctx context.Context, id string) (DeviceRef, error) {
	q := db.Builder.
		Select("id", "owner_id", "owner_institution_id", "provider_id", "provider_institution_id").
		From("devices").
		Where("id = ?", id)
	return db.One(ctx, r.pool, q, func(row pgx.CollectableRow) (DeviceRef, error) {
		var (
			ref                               DeviceRef
			ownerID, providerID, providerInst *string
		)
		err := row.Scan(&ref.ID, &ownerID, &ref.Shape.Owner.InstitutionID, &providerID, &providerInst)
		ref.Shape.Owner.PersonID = db.Str(ownerID)
		ref.Shape.Counterparty = access.Party{PersonID: db.Str(providerID), InstitutionID: db.Str(providerInst)}
		return ref, err
	})
}

// Create inserts the card and updates the device's control dates in one
// transaction.
func (r *PGRepository) Create(ctx context.Context, c Card) error {
	insert := db.Builder.Insert(table).
		Columns(columns...).
		Values(
			c.ID, c.DeviceID, c.MaintenanceDate, c.NextMaintenanceDate, c.Details,
			db.Null(c.ProviderID), c.ProviderInstitutionID, db.Null(c.CustomerID), c.CustomerInstitutionID,
			c.CreatedAt, c.UpdatedAt,
		)
	touch := db.Builder.Update("devices").
		Set("last_control_date", c.MaintenanceDate).
		Set("updated_at", c.UpdatedAt).
		Where("id = ?", c.DeviceID)
	if c.NextMaintenanceDate != nil {
		touch = touch.Set("next_control_date", c.NextMaintenanceDate)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := db.Exec(ctx, tx, insert); err != nil {
			return err
		}
		return db.Exec(ctx, tx, touch)
	})
}

// Update writes the mutable columns.
func (r *PGRepository) Update(ctx context.Context, c Card) error {
	stmt := db.Builder.Update(table).
		Set("maintenance_date", c.MaintenanceDate).
		Set("next_maintenance_date", c.NextMaintenanceDate).
		Set("details", c.Details).
		Set("updated_at", c.UpdatedAt).
		Where("id = ?", c.ID)
	return db.Exec(ctx, r.pool, stmt)
}

// Delete removes a card.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, r.pool, db.Builder.Delete(table).Where("id = ?", id))
}

var _ Repository = (*PGRepository)(nil)

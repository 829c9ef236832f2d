package devices

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// Repository defines persistence operations for devices.
type Repository interface {
	List(ctx context.Context, q access.Query) ([]Device, int, error)
	Get(ctx context.Context, id string) (Device, error)
	Create(ctx context.Context, d Device) error
	Update(ctx context.Context, d Device) error
	Delete(ctx context.Context, id string) error
	// IsgMemberOf reports whether the ISG member works for the institution.
	IsgMemberOf(ctx context.Context, memberID, institutionID string) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const table = "devices"

var columns = []string{
	"id", "serial_number", "device_type", "feature",
	"production_date", "last_control_date", "next_control_date", "expiration_date",
	"location", "status", "details",
	"owner_id", "owner_institution_id", "provider_id", "provider_institution_id",
	"isg_member_id", "created_at", "updated_at",
}

func scanDevice(row pgx.CollectableRow) (Device, error) {
	var (
		d                                            Device
		ownerID, providerID, providerInst, memberID *string
	)
	err := row.Scan(
		&d.ID, &d.SerialNumber, &d.DeviceType, &d.Feature,
		&d.ProductionDate, &d.LastControlDate, &d.NextControlDate, &d.ExpirationDate,
		&d.Location, &d.Status, &d.Details,
		&ownerID, &d.OwnerInstitutionID, &providerID, &providerInst,
		&memberID, &d.CreatedAt, &d.UpdatedAt,
	)
	d.OwnerID = db.Str(ownerID)
	d.ProviderID = db.Str(providerID)
	d.ProviderInstitutionID = db.Str(providerInst)
	d.IsgMemberID = db.Str(memberID)
	return d, err
}

// List returns one scoped page and the scoped total.
func (r *PGRepository) List(ctx context.Context, q access.Query) ([]Device, int, error) {
	page := q.Window(q.Apply(db.Builder.Select(columns...).From(table)))
	count := q.Apply(db.Builder.Select("COUNT(*)").From(table))
	return db.ListAndCount(ctx, r.pool, page, count, scanDevice)
}

// Get fetches a device by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Device, error) {
	return db.One(ctx, r.pool, db.Builder.Select(columns...).From(table).Where("id = ?", id), scanDevice)
}

// Create inserts a device.
func (r *PGRepository) Create(ctx context.Context, d Device) error {
	stmt := db.Builder.Insert(table).
		Columns(columns...).
		Values(
			d.ID, d.SerialNumber, d.DeviceType, d.Feature,
			d.ProductionDate, d.LastControlDate, d.NextControlDate, d.ExpirationDate,
			d.Location, d.Status, d.Details,
			db.Null(d.OwnerID), d.OwnerInstitutionID, db.Null(d.ProviderID), db.Null(d.ProviderInstitutionID),
			db.Null(d.IsgMemberID), d.CreatedAt, d.UpdatedAt,
		)
	return db.Exec(ctx, r.pool, stmt)
}

// Update writes the mutable columns of a device.
func (r *PGRepository) Update(ctx context.Context, d Device) error {
	stmt := db.Builder.Update(table).
		Set("device_type", d.DeviceType).
		Set("feature", d.Feature).
		Set("production_date", d.ProductionDate).
		Set("last_control_date", d.LastControlDate).
		Set("next_control_date", d.NextControlDate).
		Set("expiration_date", d.ExpirationDate).
		Set("location", d.Location).
		Set("status", d.Status).
		Set("details", d.Details).
		Set("isg_member_id", db.Null(d.IsgMemberID)).
		Set("updated_at", d.UpdatedAt).
		Where("id = ?", d.ID)
	return db.Exec(ctx, r.pool, stmt)
}

// Delete removes a device.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	return db.Exec(ctx, r.pool, db.Builder.Delete(table).Where("id = ?", id))
}

// IsgMemberOf reports whether the ISG member works for the institution.
func (r *PGRepository) IsgMemberOf(ctx context.Context, memberID, institutionID string) (bool, error) {
	return db.BelongsTo(ctx, r.pool, "isg_members", memberID, institutionID)
}

var _ Repository = (*PGRepository)(nil)

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/firewatch/firewatch/internal/jobs"
	"github.com/firewatch/firewatch/internal/notifications"
	"github.com/firewatch/firewatch/internal/platform/db"
)

// TaskControlReminders scans for devices whose next control is due soon.
const TaskControlReminders = "devices:control-reminders"

// ControlReminderPayload sets the look-ahead window in days.
type ControlReminderPayload struct {
	Days int `json:"days"`
}

// NewControlReminderTask constructs the reminder scan task.
func NewControlReminderTask(days int) (*asynq.Task, error) {
	if days <= 0 {
		return nil, fmt.Errorf("jobs: control reminders: days must be positive")
	}
	data, err := json.Marshal(ControlReminderPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskControlReminders, data), nil
}

// DueDevice is an active device with a control date inside the window.
type DueDevice struct {
	ID                 string
	SerialNumber       string
	NextControlDate    time.Time
	OwnerID            string
	OwnerInstitutionID string
}

// ReminderStore finds due devices and records reminders.
type ReminderStore interface {
	// DueDevices lists active devices due in [from, to] that have no
	// reminder for their current control cycle yet.
	DueDevices(ctx context.Context, from, to time.Time, days int) ([]DueDevice, error)
	Remind(ctx context.Context, n notifications.Notification) error
}

// PGReminderStore implements ReminderStore using PostgreSQL.
type PGReminderStore struct {
	pool *pgxpool.Pool
}

// NewReminderStore constructs a PostgreSQL reminder store.
func NewReminderStore(pool *pgxpool.Pool) *PGReminderStore {
	return &PGReminderStore{pool: pool}
}

// DueDevices implements ReminderStore.
func (s *PGReminderStore) DueDevices(ctx context.Context, from, to time.Time, days int) ([]DueDevice, error) {
	query, args, err := db.Builder.
		Select("d.id", "d.serial_number", "d.next_control_date", "d.owner_id", "d.owner_institution_id").
		From("devices d").
		Where("d.status = ?", "ACTIVE").
		Where("d.next_control_date BETWEEN ? AND ?", from, to).
		Where(`NOT EXISTS (
			SELECT 1 FROM notifications n
			WHERE n.device_id = d.id AND n.kind = ?
			AND n.created_at >= d.next_control_date - make_interval(days => ?))`, notifications.KindControlDue, days).
		OrderBy("d.next_control_date", "d.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DueDevice, error) {
		var (
			d     DueDevice
			owner *string
		)
		err := row.Scan(&d.ID, &d.SerialNumber, &d.NextControlDate, &owner, &d.OwnerInstitutionID)
		d.OwnerID = db.Str(owner)
		return d, err
	})
}

// Remind implements ReminderStore.
func (s *PGReminderStore) Remind(ctx context.Context, n notifications.Notification) error {
	return notifications.Insert(ctx, s.pool, n)
}

// ReminderJob raises CONTROL_DUE notifications for device owners.
type ReminderJob struct {
	store   ReminderStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewReminderJob constructs the reminder task handler.
func NewReminderJob(store ReminderStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReminderJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderJob{store: store, logger: logger, metrics: metrics, now: time.Now}
}

// Handle runs one scan. Devices that fail are retried on the next attempt;
// those already reminded are skipped by the store.
func (j *ReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskControlReminders)
	var payload ControlReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Days <= 0 {
		return tracker.End(fmt.Errorf("jobs: decode reminder payload: %w", asynq.SkipRetry))
	}
	created, err := j.Run(ctx, payload.Days)
	j.metrics.AddProduced(TaskControlReminders, created)
	return tracker.End(err)
}

// Run raises reminders for devices due within days and reports how many
// were created.
func (j *ReminderJob) Run(ctx context.Context, days int) (int, error) {
	now := j.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, days)

	due, err := j.store.DueDevices(ctx, from, to, days)
	if err != nil {
		return 0, fmt.Errorf("jobs: due devices: %w", err)
	}
	var (
		created int
		errs    []error
	)
	for _, d := range due {
		n := notifications.Notification{
			ID:                     uuid.NewString(),
			Content:                fmt.Sprintf("Device %s is due for control on %s", d.SerialNumber, d.NextControlDate.Format(time.DateOnly)),
			Kind:                   notifications.KindControlDue,
			Link:                   "/devices/" + d.ID,
			DeviceID:               d.ID,
			RecipientID:            d.OwnerID,
			RecipientInstitutionID: d.OwnerInstitutionID,
			CreatedAt:              now,
		}
		if err := j.store.Remind(ctx, n); err != nil {
			j.logger.Warn("control reminder failed", slog.String("device_id", d.ID), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		created++
	}
	j.logger.Info("control reminders raised", slog.Int("due", len(due)), slog.Int("created", created))
	return created, errors.Join(errs...)
}

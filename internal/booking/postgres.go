package booking

import (
	"context"
	"time"

	"github.com/example/sport-scheduler/internal/db"
)

// PostgresStore persists booking records in Postgres.
type PostgresStore struct{ db *db.DB }

func NewPostgresStore(d *db.DB) *PostgresStore { return &PostgresStore{db: d} }

const scheduledColumns = `id, slot_key, slot_name, location, weekday, time_start, time_end, open_access, recurring_id, target_date, fire_at, status, reason, created_at, updated_at`

func (s *PostgresStore) CreateScheduled(ctx context.Context, b ScheduledBooking) (int64, error) {
	var id int64
	var recurringID *int64
	if b.RecurringID != 0 {
		recurringID = &b.RecurringID
	}
	err := s.db.QueryRow(ctx, `
INSERT INTO scheduled_bookings(slot_key, slot_name, location, weekday, time_start, time_end, open_access, recurring_id, target_date, fire_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id`,
		b.Slot.Key, b.Slot.Name, b.Slot.Location, int(b.Slot.Weekday), b.Slot.TimeStart, b.Slot.TimeEnd,
		b.Slot.OpenAccess, recurringID, b.TargetDate, b.FireAt, b.Status,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (s *PostgresStore) GetScheduled(ctx context.Context, id int64) (ScheduledBooking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+scheduledColumns+` FROM scheduled_bookings WHERE id=$1`, id)
	return scanScheduled(row)
}

func (s *PostgresStore) ListScheduled(ctx context.Context, status string) ([]ScheduledBooking, error) {
	q := `SELECT ` + scheduledColumns + ` FROM scheduled_bookings`
	args := []any{}
	if status != "" {
		q += ` WHERE status=$1`
		args = append(args, status)
	}
	q += ` ORDER BY fire_at, id`
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScheduledRows(rows)
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]ScheduledBooking, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+scheduledColumns+`
FROM scheduled_bookings
WHERE status=$1 AND fire_at <= $2
ORDER BY fire_at ASC, id ASC`, StatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScheduledRows(rows)
}

func (s *PostgresStore) UpdateScheduledStatus(ctx context.Context, id int64, status, reason string) error {
	var r *string
	if reason != "" {
		r = &reason
	}
	return s.db.Exec(ctx, `UPDATE scheduled_bookings SET status=$2, reason=$3, updated_at=now() WHERE id=$1`, id, status, r)
}

func (s *PostgresStore) ScheduledExistsForOccurrence(ctx context.Context, recurringID int64, targetDate time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM scheduled_bookings WHERE recurring_id=$1 AND target_date=$2)`,
		recurringID, targetDate).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) CreateRecurring(ctx context.Context, r RecurringBooking) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO recurring_bookings(slot_key, slot_name, location, weekday, time_start, time_end, open_access, requires_confirmation, active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`,
		r.Slot.Key, r.Slot.Name, r.Slot.Location, int(r.Slot.Weekday), r.Slot.TimeStart, r.Slot.TimeEnd,
		r.Slot.OpenAccess, r.RequiresConfirmation, r.Active,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

const recurringColumns = `id, slot_key, slot_name, location, weekday, time_start, time_end, open_access, requires_confirmation, active, created_at, updated_at`

func (s *PostgresStore) GetRecurring(ctx context.Context, id int64) (RecurringBooking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+recurringColumns+` FROM recurring_bookings WHERE id=$1`, id)
	return scanRecurring(row)
}

func (s *PostgresStore) ListRecurring(ctx context.Context, activeOnly bool) ([]RecurringBooking, error) {
	q := `SELECT ` + recurringColumns + ` FROM recurring_bookings`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY weekday, time_start, id`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecurringBooking
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindActiveRecurring(ctx context.Context, weekday time.Weekday, timeStart, slotKey string) (RecurringBooking, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+recurringColumns+`
FROM recurring_bookings
WHERE active AND weekday=$1 AND time_start=$2 AND slot_key=$3`,
		int(weekday), timeStart, slotKey)
	return scanRecurring(row)
}

func (s *PostgresStore) SetRecurringActive(ctx context.Context, id int64, active bool) error {
	return s.db.Exec(ctx, `UPDATE recurring_bookings SET active=$2, updated_at=now() WHERE id=$1`, id, active)
}

func (s *PostgresStore) DeleteRecurring(ctx context.Context, id int64) error {
	return s.db.Exec(ctx, `DELETE FROM recurring_bookings WHERE id=$1`, id)
}

const confirmationColumns = `c.id, c.recurring_id, c.slot_key, r.slot_name, r.location, r.weekday, r.time_start, r.time_end, r.open_access, c.target_date, c.scheduled_for, c.fire_at, c.expires_at, c.resolution, c.reminder_sent_at, c.created_at, c.updated_at`

const confirmationJoin = `FROM confirmations c JOIN recurring_bookings r ON r.id = c.recurring_id`

func (s *PostgresStore) CreateConfirmation(ctx context.Context, c Confirmation) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO confirmations(recurring_id, slot_key, target_date, scheduled_for, fire_at, expires_at, resolution)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`,
		c.RecurringID, c.Slot.Key, c.TargetDate, c.ScheduledFor, c.FireAt, c.ExpiresAt, c.Resolution,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (s *PostgresStore) GetConfirmation(ctx context.Context, id int64) (Confirmation, error) {
	row := s.db.QueryRow(ctx, `SELECT `+confirmationColumns+` `+confirmationJoin+` WHERE c.id=$1`, id)
	return scanConfirmation(row)
}

func (s *PostgresStore) ListConfirmations(ctx context.Context, resolution string) ([]Confirmation, error) {
	q := `SELECT ` + confirmationColumns + ` ` + confirmationJoin
	args := []any{}
	if resolution != "" {
		q += ` WHERE c.resolution=$1`
		args = append(args, resolution)
	}
	q += ` ORDER BY c.expires_at, c.id`
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfirmationRows(rows)
}

func (s *PostgresStore) ListExpiredConfirmations(ctx context.Context, now time.Time) ([]Confirmation, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+confirmationColumns+` `+confirmationJoin+`
WHERE c.resolution=$1 AND c.expires_at <= $2
ORDER BY c.expires_at, c.id`, ResolutionUnresolved, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfirmationRows(rows)
}

func (s *PostgresStore) ListConfirmationsNeedingReminder(ctx context.Context, now time.Time, lead time.Duration) ([]Confirmation, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+confirmationColumns+` `+confirmationJoin+`
WHERE c.resolution=$1 AND c.reminder_sent_at IS NULL AND c.expires_at > $2 AND c.expires_at <= $3
ORDER BY c.expires_at, c.id`, ResolutionUnresolved, now, now.Add(lead))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfirmationRows(rows)
}

func (s *PostgresStore) SetConfirmationResolution(ctx context.Context, id int64, resolution string) error {
	return s.db.Exec(ctx, `UPDATE confirmations SET resolution=$2, updated_at=now() WHERE id=$1`, id, resolution)
}

func (s *PostgresStore) MarkConfirmationReminded(ctx context.Context, id int64, at time.Time) error {
	return s.db.Exec(ctx, `UPDATE confirmations SET reminder_sent_at=$2, updated_at=now() WHERE id=$1`, id, at)
}

func (s *PostgresStore) ConfirmationExistsForOccurrence(ctx context.Context, recurringID int64, targetDate time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM confirmations WHERE recurring_id=$1 AND target_date=$2)`,
		recurringID, targetDate).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) UpsertReservation(ctx context.Context, r Reservation) error {
	return s.db.Exec(ctx, `
INSERT INTO reservations(remote_id, description, location, occurrence_date, occurrence_time, status)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (remote_id)
DO UPDATE SET description=EXCLUDED.description, location=EXCLUDED.location,
              occurrence_date=EXCLUDED.occurrence_date, occurrence_time=EXCLUDED.occurrence_time,
              status=EXCLUDED.status, updated_at=now()`,
		r.RemoteID, r.Description, r.Location, r.OccurrenceDate, r.OccurrenceTime, r.Status)
}

func (s *PostgresStore) ListReservations(ctx context.Context, status string) ([]Reservation, error) {
	q := `SELECT id, remote_id, description, location, occurrence_date, occurrence_time, status, created_at, updated_at FROM reservations`
	args := []any{}
	if status != "" {
		q += ` WHERE status=$1`
		args = append(args, status)
	}
	q += ` ORDER BY occurrence_date, occurrence_time, id`
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.ID, &r.RemoteID, &r.Description, &r.Location, &r.OccurrenceDate,
			&r.OccurrenceTime, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetReservationStatus(ctx context.Context, remoteID, status string) error {
	return s.db.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE remote_id=$1`, remoteID, status)
}

func scanScheduled(row db.Row) (ScheduledBooking, error) {
	var b ScheduledBooking
	var weekday int
	var recurringID *int64
	var reason *string
	err := row.Scan(&b.ID, &b.Slot.Key, &b.Slot.Name, &b.Slot.Location, &weekday, &b.Slot.TimeStart,
		&b.Slot.TimeEnd, &b.Slot.OpenAccess, &recurringID, &b.TargetDate, &b.FireAt, &b.Status,
		&reason, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return ScheduledBooking{}, db.WrapNotFound(err)
	}
	b.Slot.Weekday = time.Weekday(weekday)
	if recurringID != nil {
		b.RecurringID = *recurringID
	}
	if reason != nil {
		b.Reason = *reason
	}
	return b, nil
}

func scanScheduledRows(rows db.Rows) ([]ScheduledBooking, error) {
	var out []ScheduledBooking
	for rows.Next() {
		b, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanRecurring(row db.Row) (RecurringBooking, error) {
	var r RecurringBooking
	var weekday int
	err := row.Scan(&r.ID, &r.Slot.Key, &r.Slot.Name, &r.Slot.Location, &weekday, &r.Slot.TimeStart,
		&r.Slot.TimeEnd, &r.Slot.OpenAccess, &r.RequiresConfirmation, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return RecurringBooking{}, db.WrapNotFound(err)
	}
	r.Slot.Weekday = time.Weekday(weekday)
	return r, nil
}

func scanConfirmation(row db.Row) (Confirmation, error) {
	var c Confirmation
	var weekday int
	err := row.Scan(&c.ID, &c.RecurringID, &c.Slot.Key, &c.Slot.Name, &c.Slot.Location, &weekday,
		&c.Slot.TimeStart, &c.Slot.TimeEnd, &c.Slot.OpenAccess, &c.TargetDate, &c.ScheduledFor,
		&c.FireAt, &c.ExpiresAt, &c.Resolution, &c.ReminderSentAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Confirmation{}, db.WrapNotFound(err)
	}
	c.Slot.Weekday = time.Weekday(weekday)
	return c, nil
}

func scanConfirmationRows(rows db.Rows) ([]Confirmation, error) {
	var out []Confirmation
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

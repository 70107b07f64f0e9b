package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/sport-scheduler/internal/db"
)

// PostgresStore persists the catalog in the slots table.
type PostgresStore struct{ db *db.DB }

func NewPostgresStore(d *db.DB) *PostgresStore { return &PostgresStore{db: d} }

const slotColumns = `id, name, location, weekday, time_start, time_end, course_type, instructor, open_access, capacity, updated_at`

func (s *PostgresStore) ReplaceAll(ctx context.Context, slots []Slot) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM slots`); err != nil {
			return err
		}
		for _, sl := range slots {
			_, err := tx.Exec(ctx, `
INSERT INTO slots(name, location, weekday, time_start, time_end, course_type, instructor, open_access, capacity, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (weekday, time_start, time_end, name, instructor, location)
DO UPDATE SET course_type=EXCLUDED.course_type, open_access=EXCLUDED.open_access,
              capacity=EXCLUDED.capacity, updated_at=EXCLUDED.updated_at`,
				sl.Name, sl.Location, int(sl.Weekday), sl.TimeStart, sl.TimeEnd,
				sl.CourseType, sl.Instructor, sl.OpenAccess, sl.Capacity, sl.UpdatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) All(ctx context.Context) ([]Slot, error) {
	rows, err := s.db.Query(ctx, `SELECT `+slotColumns+` FROM slots ORDER BY weekday, time_start, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

func (s *PostgresStore) ByKey(ctx context.Context, key string) (Slot, error) {
	all, err := s.All(ctx)
	if err != nil {
		return Slot{}, err
	}
	for _, sl := range all {
		if sl.Key() == key {
			return sl, nil
		}
	}
	return Slot{}, db.ErrNotFound
}

func (s *PostgresStore) ByWeekday(ctx context.Context, weekday int) ([]Slot, error) {
	rows, err := s.db.Query(ctx, `SELECT `+slotColumns+` FROM slots WHERE weekday=$1 ORDER BY time_start, name`, weekday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM slots`).Scan(&n)
	return n, err
}

func scanSlots(rows db.Rows) ([]Slot, error) {
	var out []Slot
	for rows.Next() {
		var sl Slot
		var weekday int
		if err := rows.Scan(&sl.ID, &sl.Name, &sl.Location, &weekday, &sl.TimeStart, &sl.TimeEnd,
			&sl.CourseType, &sl.Instructor, &sl.OpenAccess, &sl.Capacity, &sl.UpdatedAt); err != nil {
			return nil, err
		}
		sl.Weekday = time.Weekday(weekday)
		out = append(out, sl)
	}
	return out, rows.Err()
}

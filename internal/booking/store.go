package booking

import (
	"context"
	"time"
)

// Store persists booking records. Implementations: PostgresStore for real
// runs, MemoryStore for tests and dry runs.
type Store interface {
	// Scheduled bookings.
	CreateScheduled(ctx context.Context, b ScheduledBooking) (int64, error)
	GetScheduled(ctx context.Context, id int64) (ScheduledBooking, error)
	ListScheduled(ctx context.Context, status string) ([]ScheduledBooking, error)
	// ListDue returns pending bookings with fire-at <= now, ordered by
	// fire-at ascending then ID ascending (creation order breaks ties).
	ListDue(ctx context.Context, now time.Time) ([]ScheduledBooking, error)
	UpdateScheduledStatus(ctx context.Context, id int64, status, reason string) error
	ScheduledExistsForOccurrence(ctx context.Context, recurringID int64, targetDate time.Time) (bool, error)

	// Recurring templates.
	CreateRecurring(ctx context.Context, r RecurringBooking) (int64, error)
	GetRecurring(ctx context.Context, id int64) (RecurringBooking, error)
	ListRecurring(ctx context.Context, activeOnly bool) ([]RecurringBooking, error)
	FindActiveRecurring(ctx context.Context, weekday time.Weekday, timeStart, slotKey string) (RecurringBooking, error)
	SetRecurringActive(ctx context.Context, id int64, active bool) error
	DeleteRecurring(ctx context.Context, id int64) error

	// Confirmations.
	CreateConfirmation(ctx context.Context, c Confirmation) (int64, error)
	GetConfirmation(ctx context.Context, id int64) (Confirmation, error)
	ListConfirmations(ctx context.Context, resolution string) ([]Confirmation, error)
	ListExpiredConfirmations(ctx context.Context, now time.Time) ([]Confirmation, error)
	ListConfirmationsNeedingReminder(ctx context.Context, now time.Time, lead time.Duration) ([]Confirmation, error)
	SetConfirmationResolution(ctx context.Context, id int64, resolution string) error
	MarkConfirmationReminded(ctx context.Context, id int64, at time.Time) error
	ConfirmationExistsForOccurrence(ctx context.Context, recurringID int64, targetDate time.Time) (bool, error)

	// Reservations.
	UpsertReservation(ctx context.Context, r Reservation) error
	ListReservations(ctx context.Context, status string) ([]Reservation, error)
	SetReservationStatus(ctx context.Context, remoteID, status string) error
}

// Package booking owns the booking records and their state machines:
// one-shot scheduled bookings, weekly recurring templates, confirmation
// gates and website-acknowledged reservations.
package booking

import "time"

// ScheduledBooking states. Terminal: succeeded, failed, cancelled.
const (
	StatusPending   = "pending"
	StatusFired     = "fired"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Confirmation resolutions.
const (
	ResolutionUnresolved = "unresolved"
	ResolutionConfirmed  = "confirmed"
	ResolutionDeclined   = "declined"
	ResolutionExpired    = "expired"
)

// Reservation statuses.
const (
	ReservationActive    = "active"
	ReservationCancelled = "cancelled"
)

// SlotRef carries the identity key of a catalog slot plus the display
// fields denormalized onto booking records; the catalog is replaced
// wholesale on sync, so the key is the only stable reference.
type SlotRef struct {
	Key        string
	Name       string
	Location   string
	Weekday    time.Weekday
	TimeStart  string
	TimeEnd    string
	OpenAccess bool
}

// ScheduledBooking is a one-shot reservation intent bound to a calendar
// date. FireAt is always strictly before the occurrence: the site only
// opens bookings a fixed window ahead.
type ScheduledBooking struct {
	ID          int64
	Slot        SlotRef
	RecurringID int64 // 0 when user-created
	TargetDate  time.Time
	FireAt      time.Time
	Status      string
	Reason      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Occurrence is the slot's start datetime on the target date.
func (b ScheduledBooking) Occurrence(loc *time.Location) time.Time {
	return atClock(b.TargetDate, b.Slot.TimeStart, loc)
}

// RecurringBooking is a weekly template. At most one active template may
// exist per (weekday, time, slot key).
type RecurringBooking struct {
	ID                   int64
	Slot                 SlotRef
	RequiresConfirmation bool
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Confirmation is a pending yes/no gate before one occurrence of a
// recurring booking auto-fires. ExpiresAt is always before FireAt, so an
// expired confirmation can never race a successful booking.
type Confirmation struct {
	ID             int64
	RecurringID    int64
	Slot           SlotRef
	TargetDate     time.Time
	ScheduledFor   time.Time // occurrence start
	FireAt         time.Time // when the booking would fire if confirmed
	ExpiresAt      time.Time
	Resolution     string
	ReminderSentAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Reservation mirrors a booking the website itself acknowledges.
type Reservation struct {
	ID             int64
	RemoteID       string
	Description    string
	Location       string
	OccurrenceDate string
	OccurrenceTime string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// atClock combines a calendar date with an "HH:MM" clock in loc.
func atClock(date time.Time, clock string, loc *time.Location) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

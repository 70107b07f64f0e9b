// Package sportrick talks to the remote booking site. The engine consumes
// it through the Session and Scraper capabilities; the concrete client
// drives the site's login (password + TOTP), schedule pages and booking
// actions over HTTP.
package sportrick

import (
	"context"
	"errors"
	"time"

	"github.com/example/sport-scheduler/internal/catalog"
)

var (
	// ErrScrape is a transient snapshot failure; the next sync cycle
	// retries, nothing is destroyed.
	ErrScrape = errors.New("scrape failed")

	// ErrSessionAcquisition means login/2FA failed. A whole execution
	// batch aborts on it with no state change.
	ErrSessionAcquisition = errors.New("session acquisition failed")

	// ErrReservationRejected is a per-booking terminal failure from the
	// site (slot full, slot gone, action refused).
	ErrReservationRejected = errors.New("reservation rejected")
)

// BookingRequest identifies the slot occurrence to reserve.
type BookingRequest struct {
	SlotName   string
	Location   string
	Date       time.Time
	TimeStart  string
	OpenAccess bool
}

// RemoteBooking is one entry of the site's own bookings list.
type RemoteBooking struct {
	RemoteID    string
	Description string
	Location    string
	Date        string
	Time        string
}

// Scraper produces the raw slot rows the Catalog Synchronizer consumes.
type Scraper interface {
	FetchSnapshot(ctx context.Context) ([]catalog.RawRow, error)
}

// Session is one authenticated browsing context on the site.
type Session interface {
	Scraper
	Book(ctx context.Context, req BookingRequest) (remoteID string, err error)
	CancelBooking(ctx context.Context, remoteID string) error
	ListBookings(ctx context.Context) ([]RemoteBooking, error)
}

// SessionManager hands out scoped sessions: one login, guaranteed release
// on every exit path. Acquisition is mutually exclusive — the site rejects
// concurrent logins.
type SessionManager interface {
	WithSession(ctx context.Context, fn func(Session) error) error
}

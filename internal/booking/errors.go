package booking

import "errors"

var (
	// ErrPastWindow rejects scheduling for dates in the past or already
	// inside the instant-booking horizon; those go through the instant
	// path, not the scheduler.
	ErrPastWindow = errors.New("target date is past or within the instant-booking window")

	// ErrInvalidState rejects a transition the state machine does not
	// allow, e.g. cancelling a booking that already fired.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrDuplicateRecurring rejects a second active weekly template for
	// the same (weekday, time, slot).
	ErrDuplicateRecurring = errors.New("an active recurring booking already exists for this slot")
)

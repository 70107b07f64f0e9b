package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/sport-scheduler/internal/catalog"
	"github.com/example/sport-scheduler/internal/db"
)

// Manager exposes creation, lookup and cancellation for scheduled and
// recurring bookings, plus confirmation issuance and resolution.
type Manager struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger

	// AdvanceDays is the remote site's booking horizon: attempts fire at
	// local midnight AdvanceDays before the occurrence.
	advanceDays  int
	expiryMargin time.Duration

	now func() time.Time
}

type ManagerOptions struct {
	Location     *time.Location
	AdvanceDays  int
	ExpiryMargin time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
}

func NewManager(store Store, opts ManagerOptions) *Manager {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.AdvanceDays <= 0 {
		opts.AdvanceDays = 2
	}
	if opts.ExpiryMargin <= 0 {
		opts.ExpiryMargin = 5 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:        store,
		loc:          opts.Location,
		logger:       opts.Logger,
		advanceDays:  opts.AdvanceDays,
		expiryMargin: opts.ExpiryMargin,
		now:          opts.Now,
	}
}

func (m *Manager) Location() *time.Location { return m.loc }

// SlotRefOf denormalizes a catalog slot onto a booking record.
func SlotRefOf(s catalog.Slot) SlotRef {
	return SlotRef{
		Key:        s.Key(),
		Name:       s.Name,
		Location:   s.Location,
		Weekday:    s.Weekday,
		TimeStart:  s.TimeStart,
		TimeEnd:    s.TimeEnd,
		OpenAccess: s.OpenAccess,
	}
}

// midnight truncates t to local midnight.
func (m *Manager) midnight(t time.Time) time.Time {
	t = t.In(m.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, m.loc)
}

// FireAtFor computes when a booking for targetDate should run: local
// midnight, advance-window days before the occurrence.
func (m *Manager) FireAtFor(targetDate time.Time) time.Time {
	return m.midnight(targetDate).AddDate(0, 0, -m.advanceDays)
}

// WithinInstantHorizon reports whether targetDate can already be booked
// directly on the site (today up to advance-window days ahead). Calendar
// days, not elapsed hours: a DST transition inside the window must not
// shift the count.
func (m *Manager) WithinInstantHorizon(targetDate time.Time) bool {
	target := m.midnight(targetDate)
	today := m.midnight(m.now())
	return !target.Before(today) && !target.After(today.AddDate(0, 0, m.advanceDays))
}

// NextOccurrence returns the next occurrence of weekday strictly beyond the
// instant horizon — the occurrence the daily rollover targets. Nearer
// occurrences are the instant path's business.
func (m *Manager) NextOccurrence(weekday time.Weekday) time.Time {
	d := m.midnight(m.now())
	for {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == weekday && !m.WithinInstantHorizon(d) {
			return d
		}
	}
}

// Schedule creates a pending one-shot booking for slot on targetDate.
func (m *Manager) Schedule(ctx context.Context, slot SlotRef, targetDate time.Time) (ScheduledBooking, error) {
	return m.scheduleFor(ctx, slot, targetDate, 0)
}

// ScheduleRecurring creates a pending booking bound to its template, so the
// rollover can see the occurrence is already covered.
func (m *Manager) ScheduleRecurring(ctx context.Context, r RecurringBooking, targetDate time.Time) (ScheduledBooking, error) {
	return m.scheduleFor(ctx, r.Slot, targetDate, r.ID)
}

func (m *Manager) scheduleFor(ctx context.Context, slot SlotRef, targetDate time.Time, recurringID int64) (ScheduledBooking, error) {
	target := m.midnight(targetDate)
	if target.Before(m.midnight(m.now())) || m.WithinInstantHorizon(target) {
		return ScheduledBooking{}, ErrPastWindow
	}

	b := ScheduledBooking{
		Slot:        slot,
		RecurringID: recurringID,
		TargetDate:  target,
		FireAt:      m.FireAtFor(target),
		Status:      StatusPending,
		CreatedAt:   m.now(),
	}
	id, err := m.store.CreateScheduled(ctx, b)
	if err != nil {
		return ScheduledBooking{}, fmt.Errorf("create scheduled booking: %w", err)
	}
	b.ID = id
	m.logger.Info("scheduled booking created",
		zap.Int64("id", id),
		zap.String("slot", slot.Name),
		zap.Time("target", target),
		zap.Time("fire_at", b.FireAt))
	return b, nil
}

// Cancel flips a pending booking to cancelled. Any other state is an
// ErrInvalidState; cancellation is state-based, nothing in flight is
// interrupted.
func (m *Manager) Cancel(ctx context.Context, id int64) error {
	b, err := m.store.GetScheduled(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != StatusPending {
		return fmt.Errorf("cancel booking %d in state %q: %w", id, b.Status, ErrInvalidState)
	}
	return m.store.UpdateScheduledStatus(ctx, id, StatusCancelled, "cancelled by user")
}

// MarkFired, MarkSucceeded and MarkFailed are the Execution Engine's
// transitions.
func (m *Manager) MarkFired(ctx context.Context, id int64) error {
	return m.transition(ctx, id, StatusPending, StatusFired, "")
}

func (m *Manager) MarkSucceeded(ctx context.Context, id int64) error {
	return m.transition(ctx, id, StatusFired, StatusSucceeded, "")
}

func (m *Manager) MarkFailed(ctx context.Context, id int64, reason string) error {
	return m.transition(ctx, id, StatusFired, StatusFailed, reason)
}

func (m *Manager) transition(ctx context.Context, id int64, from, to, reason string) error {
	b, err := m.store.GetScheduled(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != from {
		return fmt.Errorf("booking %d: %s -> %s from %q: %w", id, from, to, b.Status, ErrInvalidState)
	}
	return m.store.UpdateScheduledStatus(ctx, id, to, reason)
}

// ListDue returns the current batch: pending bookings whose fire-at has
// passed, in deterministic order.
func (m *Manager) ListDue(ctx context.Context) ([]ScheduledBooking, error) {
	return m.store.ListDue(ctx, m.now())
}

func (m *Manager) ListScheduled(ctx context.Context, status string) ([]ScheduledBooking, error) {
	return m.store.ListScheduled(ctx, status)
}

// CreateRecurring registers a weekly template for the slot.
func (m *Manager) CreateRecurring(ctx context.Context, slot SlotRef, requiresConfirmation bool) (RecurringBooking, error) {
	_, err := m.store.FindActiveRecurring(ctx, slot.Weekday, slot.TimeStart, slot.Key)
	switch {
	case err == nil:
		return RecurringBooking{}, ErrDuplicateRecurring
	case !db.IsNotFound(err):
		return RecurringBooking{}, err
	}

	r := RecurringBooking{
		Slot:                 slot,
		RequiresConfirmation: requiresConfirmation,
		Active:               true,
		CreatedAt:            m.now(),
	}
	id, err := m.store.CreateRecurring(ctx, r)
	if err != nil {
		return RecurringBooking{}, fmt.Errorf("create recurring booking: %w", err)
	}
	r.ID = id
	m.logger.Info("recurring booking created",
		zap.Int64("id", id),
		zap.String("slot", slot.Name),
		zap.Bool("requires_confirmation", requiresConfirmation))
	return r, nil
}

func (m *Manager) ToggleRecurring(ctx context.Context, id int64, active bool) error {
	if _, err := m.store.GetRecurring(ctx, id); err != nil {
		return err
	}
	return m.store.SetRecurringActive(ctx, id, active)
}

func (m *Manager) DeleteRecurring(ctx context.Context, id int64) error {
	return m.store.DeleteRecurring(ctx, id)
}

func (m *Manager) ListRecurring(ctx context.Context, activeOnly bool) ([]RecurringBooking, error) {
	return m.store.ListRecurring(ctx, activeOnly)
}

// IssueConfirmation opens a yes/no gate for one upcoming occurrence of a
// recurring template. ExpiresAt lands before FireAt so an expired gate can
// never race a booking.
func (m *Manager) IssueConfirmation(ctx context.Context, r RecurringBooking, targetDate time.Time) (Confirmation, error) {
	target := m.midnight(targetDate)
	fireAt := m.FireAtFor(target)
	expiresAt := fireAt.Add(-m.expiryMargin)
	if !expiresAt.Before(fireAt) {
		return Confirmation{}, fmt.Errorf("confirmation expiry %s not before fire-at %s", expiresAt, fireAt)
	}

	c := Confirmation{
		RecurringID:  r.ID,
		Slot:         r.Slot,
		TargetDate:   target,
		ScheduledFor: atClock(target, r.Slot.TimeStart, m.loc),
		FireAt:       fireAt,
		ExpiresAt:    expiresAt,
		Resolution:   ResolutionUnresolved,
		CreatedAt:    m.now(),
	}
	id, err := m.store.CreateConfirmation(ctx, c)
	if err != nil {
		return Confirmation{}, fmt.Errorf("create confirmation: %w", err)
	}
	c.ID = id
	m.logger.Info("confirmation issued",
		zap.Int64("id", id),
		zap.Int64("recurring_id", r.ID),
		zap.Time("expires_at", expiresAt))
	return c, nil
}

// ResolveConfirmation settles a gate. Accepting creates the scheduled
// booking; declining just closes the gate — in this flow nothing was booked
// yet, so there is nothing to undo remotely.
func (m *Manager) ResolveConfirmation(ctx context.Context, id int64, accept bool) (Confirmation, error) {
	c, err := m.store.GetConfirmation(ctx, id)
	if err != nil {
		return Confirmation{}, err
	}
	if c.Resolution != ResolutionUnresolved {
		return Confirmation{}, fmt.Errorf("confirmation %d already %s: %w", id, c.Resolution, ErrInvalidState)
	}
	if !m.now().Before(c.ExpiresAt) {
		return Confirmation{}, fmt.Errorf("confirmation %d past deadline: %w", id, ErrInvalidState)
	}

	if !accept {
		if err := m.store.SetConfirmationResolution(ctx, id, ResolutionDeclined); err != nil {
			return Confirmation{}, err
		}
		c.Resolution = ResolutionDeclined
		return c, nil
	}

	if _, err := m.scheduleFor(ctx, c.Slot, c.TargetDate, c.RecurringID); err != nil {
		return Confirmation{}, err
	}
	if err := m.store.SetConfirmationResolution(ctx, id, ResolutionConfirmed); err != nil {
		return Confirmation{}, err
	}
	c.Resolution = ResolutionConfirmed
	return c, nil
}

// ExpireConfirmations marks every unresolved confirmation past its
// deadline as expired and returns them. No booking is ever created for an
// expired gate.
func (m *Manager) ExpireConfirmations(ctx context.Context) ([]Confirmation, error) {
	due, err := m.store.ListExpiredConfirmations(ctx, m.now())
	if err != nil {
		return nil, err
	}
	var out []Confirmation
	for _, c := range due {
		if err := m.store.SetConfirmationResolution(ctx, c.ID, ResolutionExpired); err != nil {
			return out, err
		}
		c.Resolution = ResolutionExpired
		out = append(out, c)
		m.logger.Info("confirmation expired", zap.Int64("id", c.ID), zap.Time("deadline", c.ExpiresAt))
	}
	return out, nil
}

// ConfirmationsNeedingReminder lists unresolved confirmations within lead
// of their deadline that have not been reminded yet.
func (m *Manager) ConfirmationsNeedingReminder(ctx context.Context, lead time.Duration) ([]Confirmation, error) {
	return m.store.ListConfirmationsNeedingReminder(ctx, m.now(), lead)
}

func (m *Manager) MarkConfirmationReminded(ctx context.Context, id int64) error {
	return m.store.MarkConfirmationReminded(ctx, id, m.now())
}

// HasOccurrence reports whether the template already has a scheduled
// booking or a live confirmation for targetDate. Keeps the daily rollover
// idempotent.
func (m *Manager) HasOccurrence(ctx context.Context, recurringID int64, targetDate time.Time) (bool, error) {
	target := m.midnight(targetDate)
	if ok, err := m.store.ScheduledExistsForOccurrence(ctx, recurringID, target); err != nil || ok {
		return ok, err
	}
	return m.store.ConfirmationExistsForOccurrence(ctx, recurringID, target)
}

// SyncReservations mirrors the website's own booking list: remote bookings
// are upserted, locally known active reservations missing from the site are
// marked cancelled.
func (m *Manager) SyncReservations(ctx context.Context, remote []Reservation) (int, error) {
	seen := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		r.Status = ReservationActive
		if err := m.store.UpsertReservation(ctx, r); err != nil {
			return 0, fmt.Errorf("upsert reservation %s: %w", r.RemoteID, err)
		}
		seen[r.RemoteID] = struct{}{}
	}

	local, err := m.store.ListReservations(ctx, ReservationActive)
	if err != nil {
		return 0, err
	}
	for _, r := range local {
		if _, ok := seen[r.RemoteID]; !ok {
			if err := m.store.SetReservationStatus(ctx, r.RemoteID, ReservationCancelled); err != nil {
				return 0, err
			}
			m.logger.Info("reservation gone from site, marked cancelled", zap.String("remote_id", r.RemoteID))
		}
	}
	return len(remote), nil
}

func (m *Manager) RecordReservation(ctx context.Context, r Reservation) error {
	r.Status = ReservationActive
	return m.store.UpsertReservation(ctx, r)
}

func (m *Manager) CancelReservation(ctx context.Context, remoteID string) error {
	return m.store.SetReservationStatus(ctx, remoteID, ReservationCancelled)
}

func (m *Manager) ListReservations(ctx context.Context, status string) ([]Reservation, error) {
	return m.store.ListReservations(ctx, status)
}

func (m *Manager) ListConfirmations(ctx context.Context, resolution string) ([]Confirmation, error) {
	return m.store.ListConfirmations(ctx, resolution)
}

func (m *Manager) GetRecurring(ctx context.Context, id int64) (RecurringBooking, error) {
	return m.store.GetRecurring(ctx, id)
}

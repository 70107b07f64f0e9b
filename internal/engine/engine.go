// Package engine drives the four periodic jobs: catalog sync, confirmation
// sweep, the daily rollover of recurring templates and the execution of due
// bookings. All remote work runs inside a single scoped session per batch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/sport-scheduler/internal/booking"
	"github.com/example/sport-scheduler/internal/catalog"
	"github.com/example/sport-scheduler/internal/db"
	"github.com/example/sport-scheduler/internal/notify"
	"github.com/example/sport-scheduler/internal/sportrick"
)

// Engine wires the booking manager, the catalog and the remote session
// manager together.
type Engine struct {
	manager  *booking.Manager
	catalog  catalog.Store
	catSync  *catalog.Synchronizer
	sessions sportrick.SessionManager
	notifier notify.Notifier
	logger   *zap.Logger

	actionTimeout time.Duration
	reminderLead  time.Duration
}

type Options struct {
	Manager       *booking.Manager
	Catalog       catalog.Store
	Synchronizer  *catalog.Synchronizer
	Sessions      sportrick.SessionManager
	Notifier      notify.Notifier
	Logger        *zap.Logger
	ActionTimeout time.Duration
	ReminderLead  time.Duration
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 60 * time.Second
	}
	if opts.ReminderLead <= 0 {
		opts.ReminderLead = 5 * time.Hour
	}
	return &Engine{
		manager:       opts.Manager,
		catalog:       opts.Catalog,
		catSync:       opts.Synchronizer,
		sessions:      opts.Sessions,
		notifier:      opts.Notifier,
		logger:        opts.Logger,
		actionTimeout: opts.ActionTimeout,
		reminderLead:  opts.ReminderLead,
	}
}

// Outcome is the result of one booking attempt within a batch.
type Outcome struct {
	BookingID int64
	Slot      string
	Succeeded bool
	Reason    string
}

// BatchResult reports one execution pass over the due bookings.
type BatchResult struct {
	BatchID  string
	Outcomes []Outcome
}

// ExecuteDue runs every due pending booking inside one remote session.
// If the session cannot be acquired the whole batch aborts: every booking
// stays pending for the next pass and exactly one failure notice goes out.
// Inside a live session each booking succeeds or fails on its own.
func (e *Engine) ExecuteDue(ctx context.Context) (BatchResult, error) {
	due, err := e.manager.ListDue(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	if len(due) == 0 {
		return BatchResult{}, nil
	}

	res := BatchResult{BatchID: uuid.NewString()}
	e.logger.Info("executing batch",
		zap.String("batch", res.BatchID),
		zap.Int("due", len(due)))

	err = e.sessions.WithSession(ctx, func(s sportrick.Session) error {
		for _, b := range due {
			res.Outcomes = append(res.Outcomes, e.executeOne(ctx, s, b))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sportrick.ErrSessionAcquisition) {
			e.logger.Error("batch aborted, session unavailable",
				zap.String("batch", res.BatchID), zap.Error(err))
			e.send(ctx, notify.Message{
				Text: fmt.Sprintf("Booking run skipped: could not log in (%d bookings waiting). Will retry.", len(due)),
			})
			return BatchResult{BatchID: res.BatchID}, err
		}
		return res, err
	}
	return res, nil
}

// executeOne drives a single booking through fired -> succeeded/failed.
func (e *Engine) executeOne(ctx context.Context, s sportrick.Session, b booking.ScheduledBooking) Outcome {
	out := Outcome{BookingID: b.ID, Slot: b.Slot.Name}

	if err := e.manager.MarkFired(ctx, b.ID); err != nil {
		out.Reason = err.Error()
		return out
	}

	// The slot must still exist in the current catalog; a vanished slot is
	// a schedule change on the site, not a transient error.
	if _, err := e.catalog.ByKey(ctx, b.Slot.Key); err != nil {
		reason := fmt.Sprintf("slot no longer on schedule: %v", err)
		if db.IsNotFound(err) {
			reason = "slot no longer on schedule"
		}
		e.fail(ctx, b, reason)
		out.Reason = reason
		return out
	}

	actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	remoteID, err := s.Book(actionCtx, sportrick.BookingRequest{
		SlotName:   b.Slot.Name,
		Location:   b.Slot.Location,
		Date:       b.TargetDate,
		TimeStart:  b.Slot.TimeStart,
		OpenAccess: b.Slot.OpenAccess,
	})
	cancel()
	if err != nil {
		e.fail(ctx, b, err.Error())
		out.Reason = err.Error()
		return out
	}

	if err := e.manager.MarkSucceeded(ctx, b.ID); err != nil {
		out.Reason = err.Error()
		return out
	}
	e.recordSuccess(ctx, b, remoteID)
	out.Succeeded = true
	return out
}

func (e *Engine) fail(ctx context.Context, b booking.ScheduledBooking, reason string) {
	if err := e.manager.MarkFailed(ctx, b.ID, reason); err != nil {
		e.logger.Error("mark failed", zap.Int64("booking", b.ID), zap.Error(err))
	}
	e.logger.Warn("booking failed",
		zap.Int64("booking", b.ID),
		zap.String("slot", b.Slot.Name),
		zap.String("reason", reason))
	e.send(ctx, notify.Message{
		Text: fmt.Sprintf("❌ Booking failed: %s on %s at %s.\n%s",
			b.Slot.Name, b.TargetDate.Format("Mon 02 Jan"), b.Slot.TimeStart, reason),
	})
}

func (e *Engine) recordSuccess(ctx context.Context, b booking.ScheduledBooking, remoteID string) {
	if err := e.manager.RecordReservation(ctx, booking.Reservation{
		RemoteID:       remoteID,
		Description:    b.Slot.Name,
		Location:       b.Slot.Location,
		OccurrenceDate: b.TargetDate.Format("2006-01-02"),
		OccurrenceTime: b.Slot.TimeStart,
	}); err != nil {
		e.logger.Error("record reservation", zap.String("remote_id", remoteID), zap.Error(err))
	}

	loc := e.manager.Location()
	start := b.Occurrence(loc)
	end := start.Add(time.Hour)
	if t, err := time.Parse("15:04", b.Slot.TimeEnd); err == nil {
		end = time.Date(start.Year(), start.Month(), start.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	}

	e.logger.Info("booking succeeded",
		zap.Int64("booking", b.ID),
		zap.String("slot", b.Slot.Name),
		zap.String("remote_id", remoteID))
	e.send(ctx, notify.Message{
		Text: fmt.Sprintf("✅ Booked: %s on %s at %s (%s).",
			b.Slot.Name, b.TargetDate.Format("Mon 02 Jan"), b.Slot.TimeStart, b.Slot.Location),
		Attachment: notify.EventAttachment(notify.CalendarEvent{
			UID:      fmt.Sprintf("%s@sportsched", remoteID),
			Summary:  b.Slot.Name,
			Location: b.Slot.Location,
			Start:    start,
			End:      end,
		}),
	})
}

// BookNow books a slot occurrence inside the instant horizon directly,
// bypassing the scheduled path.
func (e *Engine) BookNow(ctx context.Context, slot catalog.Slot, date time.Time) (string, error) {
	if !e.manager.WithinInstantHorizon(date) {
		return "", booking.ErrPastWindow
	}

	var remoteID string
	err := e.sessions.WithSession(ctx, func(s sportrick.Session) error {
		actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
		defer cancel()
		id, err := s.Book(actionCtx, sportrick.BookingRequest{
			SlotName:   slot.Name,
			Location:   slot.Location,
			Date:       date,
			TimeStart:  slot.TimeStart,
			OpenAccess: slot.OpenAccess,
		})
		if err != nil {
			return err
		}
		remoteID = id
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := e.manager.RecordReservation(ctx, booking.Reservation{
		RemoteID:       remoteID,
		Description:    slot.Name,
		Location:       slot.Location,
		OccurrenceDate: date.Format("2006-01-02"),
		OccurrenceTime: slot.TimeStart,
	}); err != nil {
		e.logger.Error("record reservation", zap.String("remote_id", remoteID), zap.Error(err))
	}
	return remoteID, nil
}

// Rollover advances every active recurring template to its next occurrence
// beyond the instant horizon. Templates with a confirmation requirement get
// a gate and a notice; the rest get a scheduled booking directly. Running
// twice in a day is a no-op.
func (e *Engine) Rollover(ctx context.Context) error {
	templates, err := e.manager.ListRecurring(ctx, true)
	if err != nil {
		return err
	}

	for _, r := range templates {
		target := e.manager.NextOccurrence(r.Slot.Weekday)

		exists, err := e.manager.HasOccurrence(ctx, r.ID, target)
		if err != nil {
			return fmt.Errorf("rollover template %d: %w", r.ID, err)
		}
		if exists {
			continue
		}

		if r.RequiresConfirmation {
			c, err := e.manager.IssueConfirmation(ctx, r, target)
			if err != nil {
				return fmt.Errorf("rollover template %d: %w", r.ID, err)
			}
			e.send(ctx, notify.Message{
				Text: fmt.Sprintf("❓ Confirm your %s on %s at %s?\nReply before %s or it is skipped.",
					r.Slot.Name, target.Format("Mon 02 Jan"), r.Slot.TimeStart,
					c.ExpiresAt.In(e.manager.Location()).Format("Mon 02 Jan 15:04")),
			})
			continue
		}

		if _, err := e.manager.ScheduleRecurring(ctx, r, target); err != nil {
			return fmt.Errorf("rollover template %d: %w", r.ID, err)
		}
	}
	return nil
}

// SweepConfirmations expires overdue gates and sends one reminder per
// still-open gate approaching its deadline.
func (e *Engine) SweepConfirmations(ctx context.Context) error {
	expired, err := e.manager.ExpireConfirmations(ctx)
	if err != nil {
		return err
	}
	for _, c := range expired {
		e.send(ctx, notify.Message{
			Text: fmt.Sprintf("⏰ Confirmation expired: %s on %s at %s was not confirmed, no booking will be made.",
				c.Slot.Name, c.TargetDate.Format("Mon 02 Jan"), c.Slot.TimeStart),
		})
	}

	pending, err := e.manager.ConfirmationsNeedingReminder(ctx, e.reminderLead)
	if err != nil {
		return err
	}
	for _, c := range pending {
		e.send(ctx, notify.Message{
			Text: fmt.Sprintf("⏳ Still unconfirmed: %s on %s at %s. Deadline %s.",
				c.Slot.Name, c.TargetDate.Format("Mon 02 Jan"), c.Slot.TimeStart,
				c.ExpiresAt.In(e.manager.Location()).Format("Mon 02 Jan 15:04")),
		})
		if err := e.manager.MarkConfirmationReminded(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// SyncCatalog scrapes the full schedule and replaces the catalog with it.
func (e *Engine) SyncCatalog(ctx context.Context) (catalog.Result, error) {
	var rows []catalog.RawRow
	err := e.sessions.WithSession(ctx, func(s sportrick.Session) error {
		var err error
		rows, err = s.FetchSnapshot(ctx)
		return err
	})
	if err != nil {
		return catalog.Result{}, err
	}
	return e.catSync.Sync(ctx, rows)
}

// CancelReservation cancels a reservation on the site and marks the local
// record cancelled.
func (e *Engine) CancelReservation(ctx context.Context, remoteID string) error {
	err := e.sessions.WithSession(ctx, func(s sportrick.Session) error {
		actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
		defer cancel()
		return s.CancelBooking(actionCtx, remoteID)
	})
	if err != nil {
		return err
	}
	return e.manager.CancelReservation(ctx, remoteID)
}

// SyncReservations mirrors the website's own bookings list into the local
// reservation records.
func (e *Engine) SyncReservations(ctx context.Context) (int, error) {
	var remote []sportrick.RemoteBooking
	err := e.sessions.WithSession(ctx, func(s sportrick.Session) error {
		var err error
		remote, err = s.ListBookings(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	records := make([]booking.Reservation, 0, len(remote))
	for _, r := range remote {
		records = append(records, booking.Reservation{
			RemoteID:       r.RemoteID,
			Description:    r.Description,
			Location:       r.Location,
			OccurrenceDate: r.Date,
			OccurrenceTime: r.Time,
		})
	}
	return e.manager.SyncReservations(ctx, records)
}

// send delivers a notification, logging rather than propagating failures.
func (e *Engine) send(ctx context.Context, msg notify.Message) {
	if err := e.notifier.Notify(ctx, msg); err != nil {
		e.logger.Error("notify failed", zap.Error(err))
	}
}

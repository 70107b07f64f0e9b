package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rome = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		panic(err)
	}
	return loc
}()

// newTestManager pins the clock so window math is deterministic.
func newTestManager(t *testing.T, now time.Time) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	m := NewManager(store, ManagerOptions{
		Location:     rome,
		AdvanceDays:  2,
		ExpiryMargin: 5 * time.Hour,
		Now:          func() time.Time { return now },
	})
	return m, store
}

func testSlot(weekday time.Weekday, start string) SlotRef {
	return SlotRef{
		Key:       "k-" + start,
		Name:      "Functional Training",
		Location:  "Giuriati/Fitness",
		Weekday:   weekday,
		TimeStart: start,
		TimeEnd:   "19:00",
	}
}

func TestScheduleFiresAtMidnightTwoDaysBefore(t *testing.T) {
	// Wednesday.
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)

	target := time.Date(2026, 9, 7, 0, 0, 0, 0, rome) // next Monday
	b, err := m.Schedule(context.Background(), testSlot(time.Monday, "18:00"), target)
	require.NoError(t, err)

	want := time.Date(2026, 9, 5, 0, 0, 0, 0, rome) // Saturday midnight
	assert.True(t, b.FireAt.Equal(want), "fire at %s, want %s", b.FireAt, want)
	assert.Equal(t, StatusPending, b.Status)
}

func TestScheduleRejectsPastAndInstantWindow(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()
	slot := testSlot(time.Monday, "18:00")

	for _, date := range []time.Time{
		now.AddDate(0, 0, -1), // yesterday
		now,                   // today: bookable directly
		now.AddDate(0, 0, 2),  // edge of the instant window
	} {
		_, err := m.Schedule(ctx, slot, date)
		assert.ErrorIs(t, err, ErrPastWindow, "date %s", date)
	}

	_, err := m.Schedule(ctx, slot, now.AddDate(0, 0, 3))
	assert.NoError(t, err)
}

func TestWindowArithmeticAcrossSpringForward(t *testing.T) {
	// Rome jumps 02:00 -> 03:00 on Sunday 2026-03-29, so Friday to Monday
	// is 71 elapsed hours but 3 calendar days.
	now := time.Date(2026, 3, 27, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	monday := time.Date(2026, 3, 30, 0, 0, 0, 0, rome)
	assert.False(t, m.WithinInstantHorizon(monday), "3 calendar days out is beyond the window")

	b, err := m.Schedule(ctx, testSlot(time.Monday, "18:00"), monday)
	require.NoError(t, err)
	want := time.Date(2026, 3, 28, 0, 0, 0, 0, rome)
	assert.True(t, b.FireAt.Equal(want), "fire at %s, want %s", b.FireAt, want)

	// The transition Sunday itself is 2 days out and still instant-bookable.
	sunday := time.Date(2026, 3, 29, 0, 0, 0, 0, rome)
	assert.True(t, m.WithinInstantHorizon(sunday))
	_, err = m.Schedule(ctx, testSlot(time.Sunday, "18:00"), sunday)
	assert.ErrorIs(t, err, ErrPastWindow)
}

func TestNextOccurrenceSkipsInstantWindow(t *testing.T) {
	// Sunday. Monday tomorrow is inside the instant window, so the rollover
	// must target the Monday after.
	now := time.Date(2026, 9, 6, 0, 30, 0, 0, rome)
	m, _ := newTestManager(t, now)

	got := m.NextOccurrence(time.Monday)
	want := time.Date(2026, 9, 14, 0, 0, 0, 0, rome)
	assert.True(t, got.Equal(want), "got %s, want %s", got, want)
}

func TestCancelOnlyPending(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	b, err := m.Schedule(ctx, testSlot(time.Monday, "18:00"), now.AddDate(0, 0, 5))
	require.NoError(t, err)

	require.NoError(t, m.Cancel(ctx, b.ID))
	assert.ErrorIs(t, m.Cancel(ctx, b.ID), ErrInvalidState)
}

func TestStateTransitions(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, store := newTestManager(t, now)
	ctx := context.Background()

	b, err := m.Schedule(ctx, testSlot(time.Monday, "18:00"), now.AddDate(0, 0, 5))
	require.NoError(t, err)

	// succeeded requires fired first.
	assert.ErrorIs(t, m.MarkSucceeded(ctx, b.ID), ErrInvalidState)

	require.NoError(t, m.MarkFired(ctx, b.ID))
	require.NoError(t, m.MarkSucceeded(ctx, b.ID))

	got, err := store.GetScheduled(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)

	// Terminal states do not move.
	assert.ErrorIs(t, m.MarkFired(ctx, b.ID), ErrInvalidState)
}

func TestListDueOrderAndFilter(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	early, err := m.Schedule(ctx, testSlot(time.Saturday, "10:00"), now.AddDate(0, 0, 3))
	require.NoError(t, err)
	late, err := m.Schedule(ctx, testSlot(time.Sunday, "10:00"), now.AddDate(0, 0, 4))
	require.NoError(t, err)
	_, err = m.Schedule(ctx, testSlot(time.Monday, "10:00"), now.AddDate(0, 0, 5))
	require.NoError(t, err)

	// Jump past the first two fire-at instants.
	m.now = func() time.Time { return now.AddDate(0, 0, 2) }

	due, err := m.ListDue(ctx)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)
}

func TestCreateRecurringRejectsActiveDuplicate(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()
	slot := testSlot(time.Monday, "18:00")

	first, err := m.CreateRecurring(ctx, slot, false)
	require.NoError(t, err)

	_, err = m.CreateRecurring(ctx, slot, false)
	assert.ErrorIs(t, err, ErrDuplicateRecurring)

	// Pausing the first frees the (weekday, time, slot) identity.
	require.NoError(t, m.ToggleRecurring(ctx, first.ID, false))
	_, err = m.CreateRecurring(ctx, slot, false)
	assert.NoError(t, err)
}

func TestIssueConfirmationExpiresBeforeFireAt(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	r, err := m.CreateRecurring(ctx, testSlot(time.Monday, "18:00"), true)
	require.NoError(t, err)

	target := time.Date(2026, 9, 14, 0, 0, 0, 0, rome)
	c, err := m.IssueConfirmation(ctx, r, target)
	require.NoError(t, err)

	assert.True(t, c.ExpiresAt.Before(c.FireAt))
	assert.Equal(t, 5*time.Hour, c.FireAt.Sub(c.ExpiresAt))
	assert.Equal(t, ResolutionUnresolved, c.Resolution)
	assert.True(t, c.ScheduledFor.Equal(time.Date(2026, 9, 14, 18, 0, 0, 0, rome)))
}

func TestResolveConfirmationAcceptSchedules(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	r, err := m.CreateRecurring(ctx, testSlot(time.Monday, "18:00"), true)
	require.NoError(t, err)
	target := time.Date(2026, 9, 14, 0, 0, 0, 0, rome)
	c, err := m.IssueConfirmation(ctx, r, target)
	require.NoError(t, err)

	got, err := m.ResolveConfirmation(ctx, c.ID, true)
	require.NoError(t, err)
	assert.Equal(t, ResolutionConfirmed, got.Resolution)

	pending, err := m.ListScheduled(ctx, StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, r.ID, pending[0].RecurringID)
	assert.True(t, pending[0].TargetDate.Equal(target))

	// The occurrence is now covered for the rollover.
	ok, err := m.HasOccurrence(ctx, r.ID, target)
	require.NoError(t, err)
	assert.True(t, ok)

	// Already resolved.
	_, err = m.ResolveConfirmation(ctx, c.ID, true)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestResolveConfirmationDeclineSchedulesNothing(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	r, err := m.CreateRecurring(ctx, testSlot(time.Monday, "18:00"), true)
	require.NoError(t, err)
	c, err := m.IssueConfirmation(ctx, r, time.Date(2026, 9, 14, 0, 0, 0, 0, rome))
	require.NoError(t, err)

	got, err := m.ResolveConfirmation(ctx, c.ID, false)
	require.NoError(t, err)
	assert.Equal(t, ResolutionDeclined, got.Resolution)

	pending, err := m.ListScheduled(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolveConfirmationPastDeadline(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	r, err := m.CreateRecurring(ctx, testSlot(time.Monday, "18:00"), true)
	require.NoError(t, err)
	c, err := m.IssueConfirmation(ctx, r, time.Date(2026, 9, 14, 0, 0, 0, 0, rome))
	require.NoError(t, err)

	m.now = func() time.Time { return c.ExpiresAt }
	_, err = m.ResolveConfirmation(ctx, c.ID, true)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestExpireConfirmations(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	r, err := m.CreateRecurring(ctx, testSlot(time.Monday, "18:00"), true)
	require.NoError(t, err)
	c, err := m.IssueConfirmation(ctx, r, time.Date(2026, 9, 14, 0, 0, 0, 0, rome))
	require.NoError(t, err)

	// Nothing expires before the deadline.
	expired, err := m.ExpireConfirmations(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)

	m.now = func() time.Time { return c.ExpiresAt.Add(time.Minute) }
	expired, err = m.ExpireConfirmations(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, ResolutionExpired, expired[0].Resolution)

	// No booking was ever created.
	pending, err := m.ListScheduled(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Idempotent.
	expired, err = m.ExpireConfirmations(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestReminderSentOnce(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	r, err := m.CreateRecurring(ctx, testSlot(time.Monday, "18:00"), true)
	require.NoError(t, err)
	c, err := m.IssueConfirmation(ctx, r, time.Date(2026, 9, 14, 0, 0, 0, 0, rome))
	require.NoError(t, err)

	lead := 5 * time.Hour

	// Too early.
	m.now = func() time.Time { return c.ExpiresAt.Add(-lead - time.Hour) }
	due, err := m.ConfirmationsNeedingReminder(ctx, lead)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Inside the lead window.
	m.now = func() time.Time { return c.ExpiresAt.Add(-time.Hour) }
	due, err = m.ConfirmationsNeedingReminder(ctx, lead)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, m.MarkConfirmationReminded(ctx, c.ID))
	due, err = m.ConfirmationsNeedingReminder(ctx, lead)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSyncReservationsMirrorsSite(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, rome)
	m, _ := newTestManager(t, now)
	ctx := context.Background()

	require.NoError(t, m.RecordReservation(ctx, Reservation{RemoteID: "a"}))
	require.NoError(t, m.RecordReservation(ctx, Reservation{RemoteID: "b"}))

	// The site only knows "b" and a new "c".
	n, err := m.SyncReservations(ctx, []Reservation{{RemoteID: "b"}, {RemoteID: "c"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err := m.ListReservations(ctx, ReservationActive)
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, r := range active {
		ids = append(ids, r.RemoteID)
	}
	assert.ElementsMatch(t, []string{"b", "c"}, ids)

	cancelled, err := m.ListReservations(ctx, ReservationCancelled)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "a", cancelled[0].RemoteID)
}

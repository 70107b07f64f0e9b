package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/sport-scheduler/internal/db"
)

// MemoryStore is an in-process Store used by tests and dry runs.
type MemoryStore struct {
	mu sync.Mutex

	scheduled     map[int64]*ScheduledBooking
	recurring     map[int64]*RecurringBooking
	confirmations map[int64]*Confirmation
	reservations  map[string]*Reservation

	nextScheduled    int64
	nextRecurring    int64
	nextConfirmation int64
	nextReservation  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scheduled:        map[int64]*ScheduledBooking{},
		recurring:        map[int64]*RecurringBooking{},
		confirmations:    map[int64]*Confirmation{},
		reservations:     map[string]*Reservation{},
		nextScheduled:    1,
		nextRecurring:    1,
		nextConfirmation: 1,
		nextReservation:  1,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *MemoryStore) CreateScheduled(_ context.Context, b ScheduledBooking) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextScheduled
	s.nextScheduled++
	s.scheduled[b.ID] = &b
	return b.ID, nil
}

func (s *MemoryStore) GetScheduled(_ context.Context, id int64) (ScheduledBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.scheduled[id]; ok {
		return *b, nil
	}
	return ScheduledBooking{}, db.ErrNotFound
}

func (s *MemoryStore) ListScheduled(_ context.Context, status string) ([]ScheduledBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScheduledBooking
	for _, b := range s.scheduled {
		if status == "" || b.Status == status {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListDue(_ context.Context, now time.Time) ([]ScheduledBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScheduledBooking
	for _, b := range s.scheduled {
		if b.Status == StatusPending && !b.FireAt.After(now) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateScheduledStatus(_ context.Context, id int64, status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.scheduled[id]
	if !ok {
		return db.ErrNotFound
	}
	b.Status = status
	b.Reason = reason
	b.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ScheduledExistsForOccurrence(_ context.Context, recurringID int64, targetDate time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.scheduled {
		if b.RecurringID == recurringID && sameDay(b.TargetDate, targetDate) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateRecurring(_ context.Context, r RecurringBooking) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextRecurring
	s.nextRecurring++
	s.recurring[r.ID] = &r
	return r.ID, nil
}

func (s *MemoryStore) GetRecurring(_ context.Context, id int64) (RecurringBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recurring[id]; ok {
		return *r, nil
	}
	return RecurringBooking{}, db.ErrNotFound
}

func (s *MemoryStore) ListRecurring(_ context.Context, activeOnly bool) ([]RecurringBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RecurringBooking
	for _, r := range s.recurring {
		if !activeOnly || r.Active {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindActiveRecurring(_ context.Context, weekday time.Weekday, timeStart, slotKey string) (RecurringBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recurring {
		if r.Active && r.Slot.Weekday == weekday && r.Slot.TimeStart == timeStart && r.Slot.Key == slotKey {
			return *r, nil
		}
	}
	return RecurringBooking{}, db.ErrNotFound
}

func (s *MemoryStore) SetRecurringActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurring[id]
	if !ok {
		return db.ErrNotFound
	}
	r.Active = active
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteRecurring(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recurring, id)
	return nil
}

func (s *MemoryStore) CreateConfirmation(_ context.Context, c Confirmation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextConfirmation
	s.nextConfirmation++
	s.confirmations[c.ID] = &c
	return c.ID, nil
}

func (s *MemoryStore) GetConfirmation(_ context.Context, id int64) (Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.confirmations[id]; ok {
		return *c, nil
	}
	return Confirmation{}, db.ErrNotFound
}

func (s *MemoryStore) ListConfirmations(_ context.Context, resolution string) ([]Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Confirmation
	for _, c := range s.confirmations {
		if resolution == "" || c.Resolution == resolution {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListExpiredConfirmations(_ context.Context, now time.Time) ([]Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Confirmation
	for _, c := range s.confirmations {
		if c.Resolution == ResolutionUnresolved && !c.ExpiresAt.After(now) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListConfirmationsNeedingReminder(_ context.Context, now time.Time, lead time.Duration) ([]Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Confirmation
	for _, c := range s.confirmations {
		if c.Resolution != ResolutionUnresolved || c.ReminderSentAt != nil {
			continue
		}
		if now.Before(c.ExpiresAt) && !now.Before(c.ExpiresAt.Add(-lead)) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SetConfirmationResolution(_ context.Context, id int64, resolution string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.confirmations[id]
	if !ok {
		return db.ErrNotFound
	}
	c.Resolution = resolution
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkConfirmationReminded(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.confirmations[id]
	if !ok {
		return db.ErrNotFound
	}
	c.ReminderSentAt = &at
	c.UpdatedAt = at
	return nil
}

func (s *MemoryStore) ConfirmationExistsForOccurrence(_ context.Context, recurringID int64, targetDate time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.confirmations {
		if c.RecurringID == recurringID && sameDay(c.TargetDate, targetDate) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpsertReservation(_ context.Context, r Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.reservations[r.RemoteID]; ok {
		existing.Description = r.Description
		existing.Location = r.Location
		existing.OccurrenceDate = r.OccurrenceDate
		existing.OccurrenceTime = r.OccurrenceTime
		existing.Status = r.Status
		existing.UpdatedAt = time.Now()
		return nil
	}
	r.ID = s.nextReservation
	s.nextReservation++
	s.reservations[r.RemoteID] = &r
	return nil
}

func (s *MemoryStore) ListReservations(_ context.Context, status string) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SetReservationStatus(_ context.Context, remoteID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[remoteID]
	if !ok {
		return db.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

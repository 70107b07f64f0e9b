package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrStaleCatalog signals that a sync produced an empty snapshot while the
// store still holds slots. The store is left untouched; an empty scrape over
// a previously populated catalog is far more likely a page-structure change
// than a facility with no schedule.
var ErrStaleCatalog = errors.New("stale catalog: empty snapshot over non-empty store")

// Result reports the outcome of one sync pass.
type Result struct {
	Inserted int
	Total    int
}

// Synchronizer refreshes the Store from a scraped snapshot, folding rows
// that share an identity key into a single slot.
type Synchronizer struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewSynchronizer(store Store, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{store: store, logger: logger, now: time.Now}
}

// Sync replaces the catalog with the deduplicated snapshot. Rows sharing a
// key are folded, last-seen wins for display fields. Re-running with an
// unchanged snapshot inserts nothing new.
func (s *Synchronizer) Sync(ctx context.Context, rows []RawRow) (Result, error) {
	prev, err := s.store.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("catalog count: %w", err)
	}

	deduped := Dedup(rows, s.now())

	if len(deduped) == 0 && prev > 0 {
		s.logger.Warn("refusing empty sync over populated catalog", zap.Int("existing", prev))
		return Result{}, ErrStaleCatalog
	}

	existing := make(map[string]struct{}, prev)
	if prev > 0 {
		all, err := s.store.All(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("catalog read: %w", err)
		}
		for _, sl := range all {
			existing[sl.Key()] = struct{}{}
		}
	}

	inserted := 0
	for _, sl := range deduped {
		if _, ok := existing[sl.Key()]; !ok {
			inserted++
		}
	}

	if err := s.store.ReplaceAll(ctx, deduped); err != nil {
		return Result{}, fmt.Errorf("catalog replace: %w", err)
	}

	s.logger.Info("catalog synced",
		zap.Int("rows", len(rows)),
		zap.Int("slots", len(deduped)),
		zap.Int("inserted", inserted))

	return Result{Inserted: inserted, Total: len(deduped)}, nil
}

// Dedup folds raw rows by identity key, preserving first-seen order.
// Last-seen wins for mutable display fields such as capacity.
func Dedup(rows []RawRow, now time.Time) []Slot {
	index := make(map[string]int, len(rows))
	var out []Slot
	for _, r := range rows {
		if !r.Valid() {
			continue
		}
		sl := r.slot(now)
		k := sl.Key()
		if i, ok := index[k]; ok {
			out[i].CourseType = sl.CourseType
			out[i].Capacity = sl.Capacity
			out[i].OpenAccess = sl.OpenAccess
			continue
		}
		index[k] = len(out)
		out = append(out, sl)
	}
	return out
}

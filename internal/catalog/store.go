package catalog

import "context"

// Store persists the slot catalog. ReplaceAll swaps the whole catalog in one
// shot; IDs are not stable across syncs, the identity key is.
type Store interface {
	ReplaceAll(ctx context.Context, slots []Slot) error
	All(ctx context.Context) ([]Slot, error)
	ByKey(ctx context.Context, key string) (Slot, error)
	ByWeekday(ctx context.Context, weekday int) ([]Slot, error)
	Count(ctx context.Context) (int, error)
}

package session

import "context"

type Store interface {
	// Get reports ok=false for a missing key; err is reserved for backend failures.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Clear removes all given keys as one unit.
	Clear(ctx context.Context, keys ...string) error
}

type Notifier interface {
	Notify(ctx context.Context, message string)
}

type Navigator interface {
	Navigate(ctx context.Context, target string)
}

type Entry struct {
	Key   string
	Value string
}

// BatchStore is a Store that can write several entries as one unit. Entries are
// applied in order.
type BatchStore interface {
	Store
	SetAll(ctx context.Context, entries ...Entry) error
}

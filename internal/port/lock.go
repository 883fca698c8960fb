package port

import "context"

// Locker grants at most one in-flight action per subject key.
// TryLock returns domain.ErrActionInFlight when the key is held.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
)

// Locker holds subject keys within a single process.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ port.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

func (l *Locker) TryLock(ctx context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, domain.ErrActionInFlight
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

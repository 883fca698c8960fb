package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.Locker = (*RedisLocker)(nil)

// ErrLockNotHeld is returned by unlock when the lock expired or was taken over.
var ErrLockNotHeld = errors.New("lock was not held or already expired")

// RedisLocker holds subject locks across service instances. Each lock carries
// a random token and is released only by its holder.
type RedisLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{rs: redsync.New(goredis.NewPool(client)), ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, k string) (func(context.Context) error, error) {
	if strings.TrimSpace(k) == "" {
		return nil, errors.New("lock key cannot be empty")
	}
	mutex := l.rs.NewMutex("lock:"+k,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
		redsync.WithGenValueFunc(func() (string, error) { return uuid.NewString(), nil }),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if isContention(err) {
			return nil, domain.ErrActionInFlight
		}
		return nil, fmt.Errorf("lock %s: %w", k, err)
	}
	return func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if ok {
			return nil
		}
		if err != nil {
			return fmt.Errorf("unlock %s: %w: %v", k, ErrLockNotHeld, err)
		}
		return ErrLockNotHeld
	}, nil
}

func isContention(err error) bool {
	var taken *redsync.ErrTaken
	if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "lock already taken") || strings.Contains(msg, "failed to acquire lock")
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.Cache = (*RedisCache)(nil)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

// Client exposes the connection so the subject locker can share it.
func (c *RedisCache) Client() *redis.Client { return c.client }

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

func key(k string) string { return "snap:" + k }

func (c *RedisCache) SetSnapshot(ctx context.Context, snap *domain.MarketSnapshot) error {
	if snap == nil || snap.Key == "" {
		return errors.New("cache: snapshot without key")
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", snap.Key, err)
	}
	return c.client.Set(ctx, key(snap.Key), b, c.ttl).Err()
}

func (c *RedisCache) GetSnapshot(ctx context.Context, k string) (*domain.MarketSnapshot, error) {
	b, err := c.client.Get(ctx, key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.MarketSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", k, err)
	}
	return &snap, nil
}


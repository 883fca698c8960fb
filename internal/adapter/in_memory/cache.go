package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
)

type Cache struct {
	mu    sync.Mutex
	store map[string]*domain.MarketSnapshot
}

var _ port.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{store: make(map[string]*domain.MarketSnapshot)}
}

func (c *Cache) SetSnapshot(ctx context.Context, snap *domain.MarketSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *snap
	cp.Orderbook = snap.Orderbook.DeepCopy()
	c.store[snap.Key] = &cp
	return nil
}

func (c *Cache) GetSnapshot(ctx context.Context, key string) (*domain.MarketSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.store[key]
	if !ok {
		return nil, nil
	}
	cp := *snap
	cp.Orderbook = snap.Orderbook.DeepCopy()
	return &cp, nil
}

package core

import (
	"context"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
	"go.uber.org/zap"
)

// Market serves read-only market data, preferring the latest polled snapshot
// and falling back to the indexer. Reads degrade to empty results.
type Market struct {
	data   port.MarketData
	cache  port.Cache
	logger *zap.Logger
}

func NewMarket(data port.MarketData, cache port.Cache, logger *zap.Logger) *Market {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Market{data: data, cache: cache, logger: logger}
}

func (m *Market) Pools(ctx context.Context) []domain.Pool {
	snap := m.getOrLoad(ctx, domain.SnapshotPools, "", func(ctx context.Context, s *domain.MarketSnapshot) error {
		pools, err := m.data.ListPools(ctx)
		s.Pools = pools
		return err
	})
	if snap == nil || snap.Pools == nil {
		return []domain.Pool{}
	}
	return snap.Pools
}

func (m *Market) Orderbook(ctx context.Context, poolID string, depth int) *domain.OrderbookSnapshot {
	snap := m.getOrLoad(ctx, domain.SnapshotOrderbook, poolID, func(ctx context.Context, s *domain.MarketSnapshot) error {
		ob, err := m.data.LoadOrderbook(ctx, poolID, depth)
		s.Orderbook = ob
		return err
	})
	if snap == nil || snap.Orderbook == nil {
		return &domain.OrderbookSnapshot{PoolID: poolID, Bids: []domain.Level{}, Asks: []domain.Level{}}
	}
	ob := snap.Orderbook.DeepCopy()
	if depth > 0 {
		if len(ob.Bids) > depth {
			ob.Bids = ob.Bids[:depth]
		}
		if len(ob.Asks) > depth {
			ob.Asks = ob.Asks[:depth]
		}
	}
	return ob
}

func (m *Market) Trades(ctx context.Context, poolID string, limit int) []domain.Trade {
	snap := m.getOrLoad(ctx, domain.SnapshotTrades, poolID, func(ctx context.Context, s *domain.MarketSnapshot) error {
		trades, err := m.data.LoadTrades(ctx, poolID, limit)
		s.Trades = trades
		return err
	})
	if snap == nil || snap.Trades == nil {
		return []domain.Trade{}
	}
	return truncate(snap.Trades, limit)
}

// Orders is never served from the cache: it is per manager and not polled.
func (m *Market) Orders(ctx context.Context, managerID string, limit int) []domain.Order {
	if m.data == nil {
		return []domain.Order{}
	}
	orders, err := m.data.LoadOrders(ctx, managerID, limit)
	if err != nil {
		m.logger.Warn("orders read degraded to empty", zap.String("manager", managerID), zap.Error(err))
		return []domain.Order{}
	}
	return orders
}

func (m *Market) Candles(ctx context.Context, poolID string, interval time.Duration, limit int) []domain.Candle {
	snap := m.getOrLoad(ctx, domain.SnapshotCandles, domain.CandleSeries(poolID, interval), func(ctx context.Context, s *domain.MarketSnapshot) error {
		candles, err := m.data.LoadCandles(ctx, poolID, interval, limit)
		s.Candles = candles
		return err
	})
	if snap == nil || snap.Candles == nil {
		return []domain.Candle{}
	}
	return truncate(snap.Candles, limit)
}

func (m *Market) getOrLoad(ctx context.Context, kind, id string, load func(context.Context, *domain.MarketSnapshot) error) *domain.MarketSnapshot {
	key := domain.SnapshotKey(kind, id)
	if m.cache != nil {
		if snap, err := m.cache.GetSnapshot(ctx, key); err == nil && snap != nil {
			return snap
		}
	}
	if m.data == nil {
		return nil
	}
	snap := &domain.MarketSnapshot{Key: key, Kind: kind, FetchedAt: time.Now()}
	// the read is shaped by this caller's depth or limit and carries no
	// sequence number, so it is served but never written under the poller's key
	if err := load(ctx, snap); err != nil {
		m.logger.Warn("market read degraded to empty", zap.String("key", key), zap.Error(err))
		return nil
	}
	return snap
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

package poller

import (
	"context"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
)

// Settings choose which market data is polled and how often.
type Settings struct {
	Pools          time.Duration
	Orderbook      time.Duration
	Trades         time.Duration
	Candles        time.Duration
	CandleInterval time.Duration
	PoolIDs        []string
	Depth          int
	Limit          int
}

// MarketTasks builds the pool list task plus order book, trades and candles
// tasks for every configured pool.
func MarketTasks(data port.MarketData, s Settings) []Task {
	if s.CandleInterval <= 0 {
		s.CandleInterval = time.Minute
	}
	tasks := []Task{{
		Key:      domain.SnapshotKey(domain.SnapshotPools, ""),
		Kind:     domain.SnapshotPools,
		Interval: s.Pools,
		Fetch: func(ctx context.Context, snap *domain.MarketSnapshot) error {
			pools, err := data.ListPools(ctx)
			snap.Pools = pools
			return err
		},
	}}

	for _, id := range s.PoolIDs {
		poolID := id
		tasks = append(tasks,
			Task{
				Key:      domain.SnapshotKey(domain.SnapshotOrderbook, poolID),
				Kind:     domain.SnapshotOrderbook,
				Interval: s.Orderbook,
				Fetch: func(ctx context.Context, snap *domain.MarketSnapshot) error {
					ob, err := data.LoadOrderbook(ctx, poolID, s.Depth)
					snap.Orderbook = ob
					return err
				},
			},
			Task{
				Key:      domain.SnapshotKey(domain.SnapshotTrades, poolID),
				Kind:     domain.SnapshotTrades,
				Interval: s.Trades,
				Fetch: func(ctx context.Context, snap *domain.MarketSnapshot) error {
					trades, err := data.LoadTrades(ctx, poolID, s.Limit)
					snap.Trades = trades
					return err
				},
			},
			Task{
				Key:      domain.SnapshotKey(domain.SnapshotCandles, domain.CandleSeries(poolID, s.CandleInterval)),
				Kind:     domain.SnapshotCandles,
				Interval: s.Candles,
				Fetch: func(ctx context.Context, snap *domain.MarketSnapshot) error {
					candles, err := data.LoadCandles(ctx, poolID, s.CandleInterval, s.Limit)
					snap.Candles = candles
					return err
				},
			},
		)
	}
	return tasks
}

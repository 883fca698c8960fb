package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/olyamironova/txbuilder/internal/adapter/in_memory"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPoller(t *testing.T) (*Poller, *in_memory.Cache, *metrics.Metrics) {
	t.Helper()
	cache := in_memory.NewCache()
	m := metrics.New(prometheus.NewRegistry())
	return New(cache, m, zap.NewNop()), cache, m
}

func poolsTask(fetch func(ctx context.Context, snap *domain.MarketSnapshot) error) Task {
	return Task{Key: domain.SnapshotPools, Kind: domain.SnapshotPools, Interval: time.Hour, Fetch: fetch}
}

func TestPoll_LateResultIsDiscarded(t *testing.T) {
	p, cache, _ := newTestPoller(t)
	ctx := context.Background()

	release := make(chan struct{})
	fetched := make(chan struct{})
	var calls int
	var mu sync.Mutex
	task := poolsTask(func(ctx context.Context, snap *domain.MarketSnapshot) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(fetched)
			<-release
			snap.Pools = []domain.Pool{{ID: "old"}}
			return nil
		}
		snap.Pools = []domain.Pool{{ID: "new"}}
		return nil
	})

	slow := make(chan string, 1)
	go func() { slow <- p.poll(ctx, task) }()
	<-fetched

	assert.Equal(t, ResultStored, p.poll(ctx, task))
	close(release)
	assert.Equal(t, ResultDiscarded, <-slow)

	snap, err := cache.GetSnapshot(ctx, domain.SnapshotPools)
	require.NoError(t, err)
	require.Len(t, snap.Pools, 1)
	assert.Equal(t, "new", snap.Pools[0].ID)
	assert.Equal(t, uint64(2), snap.Seq)
}

func TestPoll_LaterResultReplaces(t *testing.T) {
	p, cache, _ := newTestPoller(t)
	ctx := context.Background()

	n := 0
	task := poolsTask(func(ctx context.Context, snap *domain.MarketSnapshot) error {
		n++
		snap.Pools = []domain.Pool{{ID: string(rune('a' + n))}}
		return nil
	})
	require.Equal(t, ResultStored, p.poll(ctx, task))
	require.Equal(t, ResultStored, p.poll(ctx, task))

	snap, err := cache.GetSnapshot(ctx, domain.SnapshotPools)
	require.NoError(t, err)
	assert.Equal(t, "c", snap.Pools[0].ID)
	assert.Len(t, snap.Pools, 1, "a newer result replaces, never merges")
}

func TestPoll_ErrorKeepsPreviousSnapshot(t *testing.T) {
	p, cache, _ := newTestPoller(t)
	ctx := context.Background()

	fail := false
	task := poolsTask(func(ctx context.Context, snap *domain.MarketSnapshot) error {
		if fail {
			return errors.New("indexer unavailable")
		}
		snap.Pools = []domain.Pool{{ID: "p1"}}
		return nil
	})
	require.Equal(t, ResultStored, p.poll(ctx, task))
	fail = true
	assert.Equal(t, ResultError, p.poll(ctx, task))

	snap, err := cache.GetSnapshot(ctx, domain.SnapshotPools)
	require.NoError(t, err)
	assert.Equal(t, "p1", snap.Pools[0].ID)
}

func TestAdd_SkipsInvalidTasks(t *testing.T) {
	p, _, _ := newTestPoller(t)
	p.Add(
		Task{Key: "a", Interval: 0, Fetch: func(context.Context, *domain.MarketSnapshot) error { return nil }},
		Task{Key: "b", Interval: time.Second},
		Task{Key: "c", Interval: time.Second, Fetch: func(context.Context, *domain.MarketSnapshot) error { return nil }},
	)
	require.Len(t, p.tasks, 1)
	assert.Equal(t, "c", p.tasks[0].Key)
}

func TestRun_PollsImmediatelyAndStops(t *testing.T) {
	p, cache, _ := newTestPoller(t)
	ctx, cancel := context.WithCancel(context.Background())

	stored := make(chan struct{}, 1)
	p.Add(poolsTask(func(ctx context.Context, snap *domain.MarketSnapshot) error {
		snap.Pools = []domain.Pool{{ID: "p1"}}
		select {
		case stored <- struct{}{}:
		default:
		}
		return nil
	}))

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-stored:
	case <-time.After(2 * time.Second):
		t.Fatal("first poll did not run")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	snap, err := cache.GetSnapshot(context.Background(), domain.SnapshotPools)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "p1", snap.Pools[0].ID)
}

type stubMarketData struct{}

func (stubMarketData) ListPools(ctx context.Context) ([]domain.Pool, error) {
	return []domain.Pool{{ID: "0xp"}}, nil
}

func (stubMarketData) LoadOrderbook(ctx context.Context, poolID string, depth int) (*domain.OrderbookSnapshot, error) {
	return &domain.OrderbookSnapshot{PoolID: poolID, Bids: []domain.Level{{Price: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(int64(depth))}}}, nil
}

func (stubMarketData) LoadTrades(ctx context.Context, poolID string, limit int) ([]domain.Trade, error) {
	return []domain.Trade{{ID: "t1", PoolID: poolID}}, nil
}

func (stubMarketData) LoadOrders(ctx context.Context, managerID string, limit int) ([]domain.Order, error) {
	return nil, nil
}

func (stubMarketData) LoadCandles(ctx context.Context, poolID string, interval time.Duration, limit int) ([]domain.Candle, error) {
	return []domain.Candle{{OpenTime: time.Unix(0, 0).UTC()}}, nil
}

func TestMarketTasks(t *testing.T) {
	tasks := MarketTasks(stubMarketData{}, Settings{
		Pools: time.Minute, Orderbook: time.Second, Trades: time.Second, Candles: time.Second,
		PoolIDs: []string{"0xp"}, Depth: 5, Limit: 10,
	})
	require.Len(t, tasks, 4)

	keys := make([]string, len(tasks))
	for i, task := range tasks {
		keys[i] = task.Key
	}
	assert.Equal(t, []string{"pools", "orderbook:0xp", "trades:0xp", "candles:0xp@1m0s"}, keys)

	p, cache, _ := newTestPoller(t)
	ctx := context.Background()
	for _, task := range tasks {
		require.Equal(t, ResultStored, p.poll(ctx, task))
	}
	ob, err := cache.GetSnapshot(ctx, "orderbook:0xp")
	require.NoError(t, err)
	assert.True(t, ob.Orderbook.Bids[0].Quantity.Equal(decimal.NewFromInt(5)))
}

package port

import (
	"context"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
)

// MarketData is the read-only market-data indexer.
type MarketData interface {
	ListPools(ctx context.Context) ([]domain.Pool, error)
	LoadOrderbook(ctx context.Context, poolID string, depth int) (*domain.OrderbookSnapshot, error)
	LoadTrades(ctx context.Context, poolID string, limit int) ([]domain.Trade, error)
	LoadOrders(ctx context.Context, managerID string, limit int) ([]domain.Order, error)
	LoadCandles(ctx context.Context, poolID string, interval time.Duration, limit int) ([]domain.Candle, error)
}

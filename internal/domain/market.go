package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pool is a spot trading pool between a base and a quote asset.
type Pool struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Base     AssetType       `json:"base"`
	Quote    AssetType       `json:"quote"`
	TickSize decimal.Decimal `json:"tick_size"`
	LotSize  decimal.Decimal `json:"lot_size"`
	MinSize  decimal.Decimal `json:"min_size"`
}

type Trade struct {
	ID        string          `json:"id"`
	PoolID    string          `json:"pool_id"`
	MakerID   string          `json:"maker_order_id"`
	TakerID   string          `json:"taker_order_id"`
	TakerSide Side            `json:"taker_side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
}

type Candle struct {
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	OpenTime time.Time       `json:"open_time"`
}

// Level is an aggregated price level of the order book.
type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type OrderbookSnapshot struct {
	PoolID    string    `json:"pool_id"`
	Bids      []Level   `json:"bids"`
	Asks      []Level   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *OrderbookSnapshot) DeepCopy() *OrderbookSnapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Bids = append([]Level(nil), s.Bids...)
	cp.Asks = append([]Level(nil), s.Asks...)
	return &cp
}

// MarketSnapshot is the result of one completed market-data poll.
// Only the field matching Kind is populated.
type MarketSnapshot struct {
	Key       string             `json:"key"`
	Kind      string             `json:"kind"`
	Seq       uint64             `json:"seq"`
	FetchedAt time.Time          `json:"fetched_at"`
	Pools     []Pool             `json:"pools,omitempty"`
	Orderbook *OrderbookSnapshot `json:"orderbook,omitempty"`
	Trades    []Trade            `json:"trades,omitempty"`
	Orders    []Order            `json:"orders,omitempty"`
	Candles   []Candle           `json:"candles,omitempty"`
}

// Snapshot kinds stored by the poller and read back by the market service.
const (
	SnapshotPools     = "pools"
	SnapshotOrderbook = "orderbook"
	SnapshotTrades    = "trades"
	SnapshotOrders    = "orders"
	SnapshotCandles   = "candles"
)

// SnapshotKey is the cache key of a snapshot kind for one pool or manager.
func SnapshotKey(kind, id string) string {
	if id == "" {
		return kind
	}
	return kind + ":" + id
}

// CandleSeries identifies one pool's candles at one bucket interval.
func CandleSeries(poolID string, interval time.Duration) string {
	return poolID + "@" + interval.String()
}

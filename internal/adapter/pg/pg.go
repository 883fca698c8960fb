package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
)

var _ port.MarketData = (*Indexer)(nil)

const (
	maxDepth = 500
	maxLimit = 1000
)

// Indexer reads market data from the ledger indexer's Postgres database.
// It never writes.
type Indexer struct {
	pool *pgxpool.Pool
}

// call Close when finish to work with database.
func NewIndexer(ctx context.Context, dsn string) (*Indexer, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &Indexer{pool: pool}, nil
}

func (p *Indexer) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Indexer) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Indexer) ListPools(ctx context.Context) ([]domain.Pool, error) {
	rows, err := p.pool.Query(ctx, `
SELECT pool_id, pool_name, base_asset_type, base_decimals, quote_asset_type, quote_decimals,
       tick_size, lot_size, min_size
FROM pools
ORDER BY pool_name
`)
	if err != nil {
		return nil, fmt.Errorf("pg: list pools: %w", err)
	}
	defer rows.Close()

	res := []domain.Pool{}
	for rows.Next() {
		var pl domain.Pool
		var baseDec, quoteDec int16
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.Base.Type, &baseDec, &pl.Quote.Type, &quoteDec,
			&pl.TickSize, &pl.LotSize, &pl.MinSize); err != nil {
			return nil, err
		}
		pl.Base.Decimals = uint8(baseDec)
		pl.Quote.Decimals = uint8(quoteDec)
		res = append(res, pl)
	}
	return res, rows.Err()
}

// LoadOrderbook aggregates resting orders into price levels, best first.
func (p *Indexer) LoadOrderbook(ctx context.Context, poolID string, depth int) (*domain.OrderbookSnapshot, error) {
	depth = clamp(depth, maxDepth)
	ob := &domain.OrderbookSnapshot{PoolID: poolID, Timestamp: time.Now().UTC()}

	var err error
	if ob.Bids, err = p.levels(ctx, poolID, true, depth); err != nil {
		return nil, err
	}
	if ob.Asks, err = p.levels(ctx, poolID, false, depth); err != nil {
		return nil, err
	}
	return ob, nil
}

func (p *Indexer) levels(ctx context.Context, poolID string, bids bool, depth int) ([]domain.Level, error) {
	order := "ASC"
	if bids {
		order = "DESC"
	}
	rows, err := p.pool.Query(ctx, `
SELECT price, SUM(quantity - filled_quantity) AS open_quantity
FROM orders
WHERE pool_id = $1 AND is_bid = $2 AND status IN ('OPEN', 'PARTIALLY FILLED')
GROUP BY price
HAVING SUM(quantity - filled_quantity) > 0
ORDER BY price `+order+`
LIMIT $3
`, poolID, bids, depth)
	if err != nil {
		return nil, fmt.Errorf("pg: load levels %s: %w", poolID, err)
	}
	defer rows.Close()

	res := []domain.Level{}
	for rows.Next() {
		var l domain.Level
		if err := rows.Scan(&l.Price, &l.Quantity); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// LoadTrades returns the most recent fills of a pool, newest first.
func (p *Indexer) LoadTrades(ctx context.Context, poolID string, limit int) ([]domain.Trade, error) {
	rows, err := p.pool.Query(ctx, `
SELECT event_digest, pool_id, maker_order_id, taker_order_id, taker_is_bid, price, base_quantity, checkpoint_timestamp
FROM order_fills
WHERE pool_id = $1
ORDER BY checkpoint_timestamp DESC
LIMIT $2
`, poolID, clamp(limit, maxLimit))
	if err != nil {
		return nil, fmt.Errorf("pg: load trades %s: %w", poolID, err)
	}
	defer rows.Close()

	res := []domain.Trade{}
	for rows.Next() {
		var t domain.Trade
		var takerBid bool
		if err := rows.Scan(&t.ID, &t.PoolID, &t.MakerID, &t.TakerID, &takerBid, &t.Price, &t.Quantity, &t.Timestamp); err != nil {
			return nil, err
		}
		t.TakerSide = sideOf(takerBid)
		res = append(res, t)
	}
	return res, rows.Err()
}

// LoadOrders returns a balance manager's orders, most recently updated first.
func (p *Indexer) LoadOrders(ctx context.Context, managerID string, limit int) ([]domain.Order, error) {
	rows, err := p.pool.Query(ctx, `
SELECT order_id, client_order_id, balance_manager_id, pool_id, is_bid, order_type,
       price, quantity, filled_quantity, status, created_at, updated_at
FROM orders
WHERE balance_manager_id = $1
ORDER BY updated_at DESC
LIMIT $2
`, managerID, clamp(limit, maxLimit))
	if err != nil {
		return nil, fmt.Errorf("pg: load orders %s: %w", managerID, err)
	}
	defer rows.Close()

	res := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func scanOrder(rows pgx.Rows) (domain.Order, error) {
	var o domain.Order
	var isBid bool
	var typ, status string
	if err := rows.Scan(&o.ID, &o.ClientOrderID, &o.ManagerID, &o.PoolID, &isBid, &typ,
		&o.Price, &o.Quantity, &o.FilledQuantity, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return o, err
	}
	o.Side = sideOf(isBid)
	o.Type = domain.OrderType(typ)
	o.Status = domain.OrderStatus(status)
	return o, nil
}

// LoadCandles buckets fills into OHLCV candles of the given interval, oldest first.
func (p *Indexer) LoadCandles(ctx context.Context, poolID string, interval time.Duration, limit int) ([]domain.Candle, error) {
	if interval < time.Minute {
		return nil, fmt.Errorf("pg: candle interval %s below one minute", interval)
	}
	rows, err := p.pool.Query(ctx, `
SELECT bucket, open, high, low, close, volume FROM (
  SELECT date_bin($2::interval, checkpoint_timestamp, TIMESTAMPTZ '2001-01-01') AS bucket,
         (ARRAY_AGG(price ORDER BY checkpoint_timestamp ASC))[1]  AS open,
         MAX(price)                                              AS high,
         MIN(price)                                              AS low,
         (ARRAY_AGG(price ORDER BY checkpoint_timestamp DESC))[1] AS close,
         SUM(base_quantity)                                      AS volume
  FROM order_fills
  WHERE pool_id = $1
  GROUP BY bucket
  ORDER BY bucket DESC
  LIMIT $3
) c
ORDER BY bucket ASC
`, poolID, interval, clamp(limit, maxLimit))
	if err != nil {
		return nil, fmt.Errorf("pg: load candles %s: %w", poolID, err)
	}
	defer rows.Close()

	res := []domain.Candle{}
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func sideOf(isBid bool) domain.Side {
	if isBid {
		return domain.Buy
	}
	return domain.Sell
}

func clamp(n, ceiling int) int {
	if n <= 0 || n > ceiling {
		return ceiling
	}
	return n
}

package scale

import (
	"math/big"
	"sync/atomic"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderInput is an order as the user typed it. Price is ignored for market orders.
type OrderInput struct {
	Side     domain.Side
	Kind     domain.OrderType
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// PoolParams are the encoded size constraints of a new pool.
type PoolParams struct {
	TickSize uint64
	LotSize  uint64
	MinSize  uint64
}

// OrderScaler encodes orders and hands out client order ids.
type OrderScaler struct {
	seq atomic.Uint64
}

// NewOrderScaler seeds the client order id counter from wall-clock milliseconds
// so ids keep increasing across restarts.
func NewOrderScaler() *OrderScaler {
	s := &OrderScaler{}
	s.seq.Store(uint64(time.Now().UnixMilli()))
	return s
}

// NextClientOrderID returns a strictly increasing id.
func (s *OrderScaler) NextClientOrderID() uint64 {
	return s.seq.Add(1)
}

// Scale validates in and encodes it for a pool with the given decimals.
func (s *OrderScaler) Scale(in OrderInput, baseDecimals, quoteDecimals uint8) (domain.OrderParameters, error) {
	switch in.Side {
	case domain.Buy, domain.Sell:
	default:
		return domain.OrderParameters{}, domain.NewValidationError("side", "invalid side: %s", in.Side)
	}
	switch in.Kind {
	case domain.Limit, domain.Market:
	default:
		return domain.OrderParameters{}, domain.NewValidationError("type", "invalid order type: %s", in.Kind)
	}
	if !in.Quantity.IsPositive() {
		return domain.OrderParameters{}, domain.NewValidationError("quantity", "must be > 0")
	}
	if baseDecimals > MaxDecimals || quoteDecimals > MaxDecimals {
		return domain.OrderParameters{}, domain.NewValidationError("decimals", "exceed %d", MaxDecimals)
	}

	params := domain.OrderParameters{Side: in.Side, Kind: in.Kind}
	if in.Kind == domain.Limit {
		if !in.Price.IsPositive() {
			return domain.OrderParameters{}, domain.NewValidationError("price", "must be > 0 for LIMIT orders")
		}
		p, err := ScalePrice(in.Price, baseDecimals, quoteDecimals)
		if err != nil {
			return domain.OrderParameters{}, err
		}
		params.ScaledPrice = &p
	}
	q, err := ScaleQuantity(in.Quantity, baseDecimals)
	if err != nil {
		return domain.OrderParameters{}, err
	}
	params.ScaledQuantity = q
	params.ClientOrderID = s.NextClientOrderID()
	return params, nil
}

// ScalePrice returns round(price * FloatScalar * 10^quote / 10^base).
func ScalePrice(price decimal.Decimal, baseDecimals, quoteDecimals uint8) (uint64, error) {
	fs := decimal.NewFromBigInt(new(big.Int).SetUint64(FloatScalar), 0)
	v, err := toUint64("price", price.Mul(fs).Shift(int32(quoteDecimals)-int32(baseDecimals)).Round(0))
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, domain.NewValidationError("price", "%s rounds to zero", price.String())
	}
	return v, nil
}

// ScaleQuantity returns round(quantity * 10^base).
func ScaleQuantity(quantity decimal.Decimal, baseDecimals uint8) (uint64, error) {
	v, err := toUint64("quantity", quantity.Shift(int32(baseDecimals)).Round(0))
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, domain.NewValidationError("quantity", "%s rounds to zero", quantity.String())
	}
	return v, nil
}

// ScalePool encodes tick, lot and minimum sizes of a new pool.
func ScalePool(tick, lot, minSize decimal.Decimal, baseDecimals, quoteDecimals uint8) (PoolParams, error) {
	if !tick.IsPositive() || !lot.IsPositive() || !minSize.IsPositive() {
		return PoolParams{}, domain.NewValidationError("pool", "tick, lot and min size must be > 0")
	}
	t, err := ScalePrice(tick, baseDecimals, quoteDecimals)
	if err != nil {
		return PoolParams{}, err
	}
	l, err := ScaleQuantity(lot, baseDecimals)
	if err != nil {
		return PoolParams{}, err
	}
	m, err := ScaleQuantity(minSize, baseDecimals)
	if err != nil {
		return PoolParams{}, err
	}
	if m < l || m%l != 0 {
		return PoolParams{}, domain.NewValidationError("min_size", "must be a multiple of lot size")
	}
	return PoolParams{TickSize: t, LotSize: l, MinSize: m}, nil
}

// QuoteForBid returns the quote base units a bid of quantity at price locks,
// floor(price * quantity / FloatScalar).
func QuoteForBid(scaledPrice, scaledQuantity uint64) (uint64, error) {
	return mulDiv("quote_amount", scaledPrice, scaledQuantity, FloatScalar)
}

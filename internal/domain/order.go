package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string
type OrderType string
type OrderStatus string

const (
	Buy             Side        = "BUY"
	Sell            Side        = "SELL"
	Limit           OrderType   = "LIMIT"
	Market          OrderType   = "MARKET"
	Open            OrderStatus = "OPEN"
	Filled          OrderStatus = "FILLED"
	Cancelled       OrderStatus = "CANCELLED"
	PartiallyFilled OrderStatus = "PARTIALLY FILLED"
)

// OrderParameters is an order encoded in the pool's fixed-point units.
// ScaledPrice is nil for market orders.
type OrderParameters struct {
	Side           Side      `json:"side"`
	Kind           OrderType `json:"kind"`
	ScaledPrice    *uint64   `json:"scaled_price,omitempty"`
	ScaledQuantity uint64    `json:"scaled_quantity"`
	ClientOrderID  uint64    `json:"client_order_id"`
}

// IsBid reports whether the order buys base with quote.
func (p OrderParameters) IsBid() bool { return p.Side == Buy }

// Order is an order as reported by the market-data indexer.
type Order struct {
	ID             string
	ClientOrderID  string
	ManagerID      string
	PoolID         string
	Side           Side
	Type           OrderType
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	Status         OrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (o *Order) PartiallyFilled() bool {
	return o.FilledQuantity.GreaterThan(decimal.Zero) &&
		o.FilledQuantity.LessThan(o.Quantity)
}

// Remaining is the unfilled part of the order.
func (o *Order) Remaining() decimal.Decimal {
	r := o.Quantity.Sub(o.FilledQuantity)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

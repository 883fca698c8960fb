package scale

import (
	"sync"
	"testing"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale_LimitBidToBaseUnits(t *testing.T) {
	s := NewOrderScaler()
	params, err := s.Scale(OrderInput{
		Side:     domain.Buy,
		Kind:     domain.Limit,
		Price:    decimal.RequireFromString("2.5"),
		Quantity: decimal.NewFromInt(10),
	}, 9, 6)
	require.NoError(t, err)

	require.NotNil(t, params.ScaledPrice)
	assert.Equal(t, uint64(2_500_000), *params.ScaledPrice)
	assert.Equal(t, uint64(10_000_000_000), params.ScaledQuantity)
	assert.True(t, params.IsBid())
	assert.NotZero(t, params.ClientOrderID)
}

func TestScale_RoundsToNearest(t *testing.T) {
	q, err := ScaleQuantity(decimal.RequireFromString("1.0000005"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_001), q)

	q, err = ScaleQuantity(decimal.RequireFromString("1.0000004"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), q)
}

func TestScale_MarketOrderHasNoPrice(t *testing.T) {
	params, err := NewOrderScaler().Scale(OrderInput{
		Side:     domain.Sell,
		Kind:     domain.Market,
		Quantity: decimal.RequireFromString("0.5"),
	}, 9, 6)
	require.NoError(t, err)
	assert.Nil(t, params.ScaledPrice)
	assert.Equal(t, uint64(500_000_000), params.ScaledQuantity)
}

func TestScale_Validation(t *testing.T) {
	s := NewOrderScaler()
	tests := []struct {
		name string
		in   OrderInput
	}{
		{"bad side", OrderInput{Side: "HOLD", Kind: domain.Limit, Price: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(1)}},
		{"bad kind", OrderInput{Side: domain.Buy, Kind: "STOP", Price: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(1)}},
		{"zero limit price", OrderInput{Side: domain.Buy, Kind: domain.Limit, Quantity: decimal.NewFromInt(1)}},
		{"negative quantity", OrderInput{Side: domain.Sell, Kind: domain.Market, Quantity: decimal.NewFromInt(-1)}},
		{"quantity rounds to zero", OrderInput{Side: domain.Sell, Kind: domain.Market, Quantity: decimal.RequireFromString("0.0000000001")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Scale(tt.in, 9, 6)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestClientOrderID_Monotonic(t *testing.T) {
	s := NewOrderScaler()
	const n = 200
	ids := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- s.NextClientOrderID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)

	a := s.NextClientOrderID()
	b := s.NextClientOrderID()
	assert.Greater(t, b, a)
}

func TestScalePool(t *testing.T) {
	p, err := ScalePool(decimal.RequireFromString("0.001"), decimal.RequireFromString("0.1"), decimal.RequireFromString("1"), 9, 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), p.TickSize)
	assert.Equal(t, uint64(100_000_000), p.LotSize)
	assert.Equal(t, uint64(1_000_000_000), p.MinSize)

	_, err = ScalePool(decimal.RequireFromString("0.001"), decimal.RequireFromString("0.3"), decimal.RequireFromString("1"), 9, 6)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestQuoteForBid(t *testing.T) {
	// 10 base at 2.5 quote, quote has 6 decimals
	q, err := QuoteForBid(2_500_000, 10_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(25_000_000), q)
}

package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/olyamironova/txbuilder/internal/adapter/in_memory"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usdc = domain.AssetType{Type: "0xdba3::usdc::USDC", Decimals: 6}

func TestResolve_Paginates(t *testing.T) {
	ledger := in_memory.NewLedger()
	ledger.SetPageSize(2)
	for i := 0; i < 5; i++ {
		ledger.AddCoin(domain.Coin{ID: fmt.Sprintf("0xc%d", i), Owner: "0xa", Asset: usdc, Balance: uint64(i + 1)})
	}
	ledger.AddCoin(domain.Coin{ID: "0xother", Owner: "0xb", Asset: usdc, Balance: 100})

	coins, err := NewResolver(ledger, nil).Resolve(context.Background(), "0xa", usdc)
	require.NoError(t, err)
	assert.Len(t, coins, 5)

	total, ok := domain.TotalBalance(coins)
	assert.True(t, ok)
	assert.Equal(t, uint64(15), total)
	assert.Equal(t, uint8(6), coins[0].Asset.Decimals)
}

func TestResolve_EmptyIsSuccess(t *testing.T) {
	coins, err := NewResolver(in_memory.NewLedger(), nil).Resolve(context.Background(), "0xa", usdc)
	require.NoError(t, err)
	assert.NotNil(t, coins)
	assert.Empty(t, coins)
}

func TestResolve_NetworkError(t *testing.T) {
	ledger := in_memory.NewLedger()
	cause := errors.New("connection refused")
	ledger.FailReads(cause)
	r := NewResolver(ledger, nil)

	_, err := r.Resolve(context.Background(), "0xa", usdc)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.ErrorIs(t, err, cause)

	assert.Empty(t, r.ResolveOrEmpty(context.Background(), "0xa", usdc))
}

func TestResolve_Validation(t *testing.T) {
	r := NewResolver(in_memory.NewLedger(), nil)
	_, err := r.Resolve(context.Background(), "", usdc)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = r.Resolve(context.Background(), "0xa", domain.AssetType{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResolveMany(t *testing.T) {
	ledger := in_memory.NewLedger()
	sui := domain.AssetType{Type: domain.FeeAssetType, Decimals: 9}
	ledger.AddCoin(domain.Coin{ID: "0x1", Owner: "0xa", Asset: usdc, Balance: 1})
	ledger.AddCoin(domain.Coin{ID: "0x2", Owner: "0xa", Asset: sui, Balance: 2})

	inv, err := NewResolver(ledger, nil).ResolveMany(context.Background(), "0xa", usdc, sui, usdc)
	require.NoError(t, err)
	assert.Len(t, inv, 2)
	assert.Len(t, inv[usdc.Type], 1)
	assert.Len(t, inv[sui.Type], 1)
}

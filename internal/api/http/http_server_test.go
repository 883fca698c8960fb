package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/txbuilder/internal/adapter/in_memory"
	"github.com/olyamironova/txbuilder/internal/api/dto"
	"github.com/olyamironova/txbuilder/internal/core"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/metrics"
	"github.com/olyamironova/txbuilder/internal/middleware"
	"github.com/olyamironova/txbuilder/internal/txgraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "0xa11ce"

var eth = domain.AssetType{Type: "0xe::eth::ETH", Decimals: 6}

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	ledger *in_memory.Ledger
	cache  *in_memory.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	ledger := in_memory.NewLedger()
	cache := in_memory.NewCache()
	eng := core.NewEngine(core.Config{
		OptionsPackage:  "0xopt",
		DeepbookPackage: "0xdeep",
		Confirm:         core.ConfirmPolicy{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxElapsed: time.Second},
	}, ledger, ledger, in_memory.NewLocker(), metrics.New(reg), nil)
	market := core.NewMarket(nil, cache, nil)
	srv := NewHTTPServer(eng, market, middleware.NewRateLimiter(1000, 1000), reg, nil)
	return &fixture{router: srv.Handler(), ledger: ledger, cache: cache}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ClientIDHeader, "test")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func mintBody(collateral string) map[string]any {
	return map[string]any{
		"owner": owner,
		"position": map[string]any{
			"vault_id":         "0xvault",
			"kind":             "CALL",
			"strike":           "2",
			"collateral_asset": map[string]any{"type": eth.Type, "decimals": 6},
			"payout_asset":     map[string]any{"type": "0xu::usdc::USDC", "decimals": 6},
			"option_asset":     map[string]any{"type": "0xopt::token::OPT", "decimals": 6},
		},
		"collateral": collateral,
		"strategy":   "MERGE_ALL",
	}
}

func TestBuildAction(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddCoin(domain.Coin{ID: "0x01", Owner: owner, Asset: eth, Balance: 6_000_000})
	f.ledger.AddCoin(domain.Coin{ID: "0x02", Owner: owner, Asset: eth, Balance: 5_000_000})

	w := f.do(http.MethodPost, "/v1/actions/mint/build", mintBody("10"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.BuildResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, core.ActionMint, resp.Action)
	assert.Contains(t, resp.Transaction.Invocations(), "0xopt::option::mint")
	assert.Equal(t, 1, resp.Transaction.Count(txgraph.KindMerge))
	assert.Empty(t, f.ledger.Executed(), "build never executes")

	metricsResp := f.do(http.MethodGet, "/metrics", nil)
	assert.Contains(t, metricsResp.Body.String(), `txbuilder_transactions_built_total{action="mint"} 1`)
}

func TestBuildAction_Shortfall(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddCoin(domain.Coin{ID: "0x01", Owner: owner, Asset: eth, Balance: 1_000_000})

	w := f.do(http.MethodPost, "/v1/actions/mint/build", mintBody("10"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_balance", body["kind"])
	assert.Equal(t, eth.Type, body["asset"])
	assert.Equal(t, "9", body["shortfall"])
}

func TestBuildAction_BadRequests(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/actions/liquidate/build", map[string]any{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/v1/actions/mint/build", map[string]any{"position": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "owner is required")

	body := mintBody("10")
	body["position"].(map[string]any)["kind"] = "STRADDLE"
	w = f.do(http.MethodPost, "/v1/actions/mint/build", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "STRADDLE")
}

func TestSubmitAction(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddCoin(domain.Coin{ID: "0x01", Owner: owner, Asset: eth, Balance: 11_000_000})

	w := f.do(http.MethodPost, "/v1/actions/mint/submit", mintBody("10"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Final)
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.Digest)
	require.Len(t, resp.Inventory[eth.Type], 1)
	assert.Equal(t, "1", resp.Inventory[eth.Type][0].Amount.String())
}

func TestSubmitAction_ExecutionFailure(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddCoin(domain.Coin{ID: "0x01", Owner: owner, Asset: eth, Balance: 11_000_000})
	f.ledger.FailExecution(errors.New("user rejected the request"))

	w := f.do(http.MethodPost, "/v1/actions/mint/submit", mintBody("10"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "user rejected the request")
}

func TestGetInventory(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddCoin(domain.Coin{ID: "0x01", Owner: owner, Asset: eth, Balance: 2_500_000})

	w := f.do(http.MethodGet, fmt.Sprintf("/v1/inventory/%s?asset=%s&decimals=6", owner, eth.Type), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.InventoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2.5", resp.Total.String())

	w = f.do(http.MethodGet, "/v1/inventory/"+owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "asset is required")

	w = f.do(http.MethodGet, "/v1/inventory/"+owner+"?asset=x&decimals=300", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketEndpoints(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cache.SetSnapshot(context.Background(), &domain.MarketSnapshot{
		Key: domain.SnapshotPools, Kind: domain.SnapshotPools, Pools: []domain.Pool{{ID: "0xp", Name: "ETH_USDC"}},
	}))

	w := f.do(http.MethodGet, "/v1/pools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ETH_USDC")

	w = f.do(http.MethodGet, "/v1/pools/0xq/trades", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"trades":[]}`, w.Body.String(), "no data degrades to empty")

	w = f.do(http.MethodGet, "/v1/pools/0xq/candles?interval=10s", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/v1/pools/0xq/orderbook?depth=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/v1/managers/0xm/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orders":[]}`, w.Body.String())
}

func TestRateLimitedWithoutClientID(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "health checks skip the limiter")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("owner", "is required"), http.StatusBadRequest},
		{&domain.InsufficientBalanceError{Asset: eth, Required: 2, Available: 1}, http.StatusUnprocessableEntity},
		{&domain.InsufficientGasReserveError{Asset: eth}, http.StatusUnprocessableEntity},
		{&domain.NoSpendableCoinError{Asset: eth}, http.StatusUnprocessableEntity},
		{fmt.Errorf("k: %w", domain.ErrActionInFlight), http.StatusConflict},
		{&domain.ExecutionFailure{Message: "rejected"}, http.StatusBadGateway},
		{&domain.NetworkError{Op: "get coins", Err: errors.New("refused")}, http.StatusServiceUnavailable},
		{&domain.TransactionBuildError{Op: 1, Reason: "moved twice"}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
)

var _ port.LedgerReader = (*Client)(nil)

const coinPageSize = 50

// Client reads coins and transaction status over JSON-RPC and simulates view
// calls through the signer bridge.
type Client struct {
	rpcURL    string
	bridgeURL string
	t         *transport
	id        atomic.Uint64
}

func NewClient(rpcURL, bridgeURL string, o Options) *Client {
	return &Client{rpcURL: rpcURL, bridgeURL: bridgeURL, t: newTransport("ledger-rpc", o)}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	var resp rpcResponse
	req := rpcRequest{JSONRPC: "2.0", ID: c.id.Add(1), Method: method, Params: params}
	if err := c.t.postJSON(ctx, c.rpcURL, method, req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

type coinPage struct {
	Data []struct {
		CoinType     string `json:"coinType"`
		CoinObjectID string `json:"coinObjectId"`
		Balance      string `json:"balance"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

func (c *Client) GetCoins(ctx context.Context, owner, coinType, cursor string) (*port.CoinPage, error) {
	var cur any
	if cursor != "" {
		cur = cursor
	}
	var page coinPage
	if err := c.call(ctx, "suix_getCoins", &page, owner, coinType, cur, coinPageSize); err != nil {
		return nil, err
	}

	res := &port.CoinPage{HasNextPage: page.HasNextPage}
	if page.NextCursor != nil {
		res.NextCursor = *page.NextCursor
	}
	for _, d := range page.Data {
		bal, err := strconv.ParseUint(d.Balance, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("coin %s: balance %q: %w", d.CoinObjectID, d.Balance, err)
		}
		res.Coins = append(res.Coins, domain.Coin{
			ID:      d.CoinObjectID,
			Owner:   owner,
			Asset:   domain.AssetType{Type: d.CoinType},
			Balance: bal,
		})
	}
	return res, nil
}

type txBlock struct {
	Digest     string  `json:"digest"`
	Checkpoint *string `json:"checkpoint"`
	Effects    *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
}

// GetTransactionStatus treats a transaction as final once it is included in
// a checkpoint.
func (c *Client) GetTransactionStatus(ctx context.Context, digest string) (*domain.TxStatus, error) {
	var blk txBlock
	opts := map[string]bool{"showEffects": true}
	if err := c.call(ctx, "sui_getTransactionBlock", &blk, digest, opts); err != nil {
		return nil, err
	}
	st := &domain.TxStatus{Digest: digest, Status: "pending"}
	if blk.Effects != nil {
		st.Status = blk.Effects.Status.Status
		st.Error = blk.Effects.Status.Error
	}
	st.Final = blk.Checkpoint != nil && blk.Effects != nil
	return st, nil
}

type simulateRequest struct {
	Sender string        `json:"sender"`
	Call   port.ViewCall `json:"call"`
}

type simulateResponse struct {
	Results []string `json:"results"`
	Error   string   `json:"error,omitempty"`
}

// SimulateView runs a read-only call; u64 results come back as decimal strings.
func (c *Client) SimulateView(ctx context.Context, sender string, call port.ViewCall) ([]uint64, error) {
	var resp simulateResponse
	if err := c.t.postJSON(ctx, c.bridgeURL+"/v1/simulate", "simulate "+call.Target, simulateRequest{Sender: sender, Call: call}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("simulate %s: %s", call.Target, resp.Error)
	}
	out := make([]uint64, len(resp.Results))
	for i, r := range resp.Results {
		v, err := strconv.ParseUint(r, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("simulate %s: result %d: %w", call.Target, i, err)
		}
		out[i] = v
	}
	return out, nil
}

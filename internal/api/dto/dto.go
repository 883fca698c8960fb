package dto

import (
	"time"

	"github.com/olyamironova/txbuilder/internal/core"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/scale"
	"github.com/olyamironova/txbuilder/internal/txgraph"
	"github.com/shopspring/decimal"
)

type Asset struct {
	Type     string `json:"type" binding:"required"`
	Decimals uint8  `json:"decimals"`
}

func (a Asset) Domain() domain.AssetType {
	return domain.AssetType{Type: a.Type, Decimals: a.Decimals}
}

// Position describes an option series. Strike is a decimal price.
type Position struct {
	VaultID         string          `json:"vault_id" binding:"required"`
	Kind            string          `json:"kind" binding:"required"`
	Strike          decimal.Decimal `json:"strike"`
	Expiration      time.Time       `json:"expiration"`
	CollateralAsset Asset           `json:"collateral_asset"`
	PayoutAsset     Asset           `json:"payout_asset"`
	OptionAsset     Asset           `json:"option_asset"`
}

func (p Position) Domain() (domain.Position, error) {
	kind, err := domain.ParseOptionKind(p.Kind)
	if err != nil {
		return domain.Position{}, err
	}
	strike, err := scale.StrikeToBaseUnits(p.Strike)
	if err != nil {
		return domain.Position{}, err
	}
	return domain.Position{
		VaultID:              p.VaultID,
		Kind:                 kind,
		StrikePriceBaseUnits: strike,
		Expiration:           p.Expiration,
		CollateralAsset:      p.CollateralAsset.Domain(),
		PayoutAsset:          p.PayoutAsset.Domain(),
		OptionAsset:          p.OptionAsset.Domain(),
	}, nil
}

type MintRequest struct {
	Owner      string          `json:"owner" binding:"required"`
	Position   Position        `json:"position"`
	Collateral decimal.Decimal `json:"collateral"`
	Strategy   string          `json:"strategy"`
}

func (r *MintRequest) Action() (core.Action, error) {
	pos, err := r.Position.Domain()
	if err != nil {
		return nil, err
	}
	return &core.MintRequest{
		Owner:      r.Owner,
		Position:   pos,
		Collateral: r.Collateral,
		Strategy:   strategy(r.Strategy),
	}, nil
}

type ExerciseRequest struct {
	Owner           string          `json:"owner" binding:"required"`
	Position        Position        `json:"position"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentStrategy string          `json:"payment_strategy"`
}

func (r *ExerciseRequest) Action() (core.Action, error) {
	pos, err := r.Position.Domain()
	if err != nil {
		return nil, err
	}
	return &core.ExerciseRequest{
		Owner:           r.Owner,
		Position:        pos,
		Amount:          r.Amount,
		PaymentStrategy: strategy(r.PaymentStrategy),
	}, nil
}

type UpdatePriceRequest struct {
	Admin      string          `json:"admin" binding:"required"`
	VaultID    string          `json:"vault_id" binding:"required"`
	AdminCapID string          `json:"admin_cap_id" binding:"required"`
	Price      decimal.Decimal `json:"price"`
}

func (r *UpdatePriceRequest) Action() (core.Action, error) {
	return &core.UpdatePriceRequest{Admin: r.Admin, VaultID: r.VaultID, AdminCapID: r.AdminCapID, Price: r.Price}, nil
}

type DepositRequest struct {
	Owner     string          `json:"owner" binding:"required"`
	ManagerID string          `json:"manager_id,omitempty"` // empty creates a new manager
	Asset     Asset           `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Strategy  string          `json:"strategy"`
}

func (r *DepositRequest) Action() (core.Action, error) {
	return &core.DepositRequest{
		Owner:     r.Owner,
		ManagerID: r.ManagerID,
		Asset:     r.Asset.Domain(),
		Amount:    r.Amount,
		Strategy:  strategy(r.Strategy),
	}, nil
}

type WithdrawRequest struct {
	Owner     string          `json:"owner" binding:"required"`
	ManagerID string          `json:"manager_id" binding:"required"`
	Asset     Asset           `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r *WithdrawRequest) Action() (core.Action, error) {
	return &core.WithdrawRequest{Owner: r.Owner, ManagerID: r.ManagerID, Asset: r.Asset.Domain(), Amount: r.Amount}, nil
}

type PlaceOrderRequest struct {
	Owner      string          `json:"owner" binding:"required"`
	PoolID     string          `json:"pool_id" binding:"required"`
	ManagerID  string          `json:"manager_id" binding:"required"`
	Base       Asset           `json:"base"`
	Quote      Asset           `json:"quote"`
	Side       string          `json:"side" binding:"required"`
	Type       string          `json:"type" binding:"required"`
	Price      decimal.Decimal `json:"price,omitempty"` // for limit orders
	Quantity   decimal.Decimal `json:"quantity"`
	PriceHint  decimal.Decimal `json:"price_hint,omitempty"`
	Expiration uint64          `json:"expiration,omitempty"`
}

func (r *PlaceOrderRequest) Action() (core.Action, error) {
	return &core.PlaceOrderRequest{
		Owner:      r.Owner,
		PoolID:     r.PoolID,
		ManagerID:  r.ManagerID,
		Base:       r.Base.Domain(),
		Quote:      r.Quote.Domain(),
		Side:       domain.Side(r.Side),
		Kind:       domain.OrderType(r.Type),
		Price:      r.Price,
		Quantity:   r.Quantity,
		PriceHint:  r.PriceHint,
		Expiration: r.Expiration,
	}, nil
}

type CancelOrderRequest struct {
	Owner     string `json:"owner" binding:"required"`
	PoolID    string `json:"pool_id" binding:"required"`
	ManagerID string `json:"manager_id" binding:"required"`
	Base      Asset  `json:"base"`
	Quote     Asset  `json:"quote"`
	OrderID   string `json:"order_id" binding:"required"`
}

func (r *CancelOrderRequest) Action() (core.Action, error) {
	return &core.CancelOrderRequest{
		Owner:     r.Owner,
		PoolID:    r.PoolID,
		ManagerID: r.ManagerID,
		Base:      r.Base.Domain(),
		Quote:     r.Quote.Domain(),
		OrderID:   r.OrderID,
	}, nil
}

type CreatePoolRequest struct {
	Owner    string          `json:"owner" binding:"required"`
	Base     Asset           `json:"base"`
	Quote    Asset           `json:"quote"`
	TickSize decimal.Decimal `json:"tick_size"`
	LotSize  decimal.Decimal `json:"lot_size"`
	MinSize  decimal.Decimal `json:"min_size"`
}

func (r *CreatePoolRequest) Action() (core.Action, error) {
	return &core.CreatePoolRequest{
		Owner:    r.Owner,
		Base:     r.Base.Domain(),
		Quote:    r.Quote.Domain(),
		TickSize: r.TickSize,
		LotSize:  r.LotSize,
		MinSize:  r.MinSize,
	}, nil
}

// ActionRequest is any request body that converts into an engine action.
type ActionRequest interface {
	Action() (core.Action, error)
}

// NewActionRequest returns an empty request body for an action name.
func NewActionRequest(action string) (ActionRequest, bool) {
	switch action {
	case core.ActionMint:
		return &MintRequest{}, true
	case core.ActionExercise:
		return &ExerciseRequest{}, true
	case core.ActionUpdatePrice:
		return &UpdatePriceRequest{}, true
	case core.ActionDeposit:
		return &DepositRequest{}, true
	case core.ActionWithdraw:
		return &WithdrawRequest{}, true
	case core.ActionPlaceOrder:
		return &PlaceOrderRequest{}, true
	case core.ActionCancelOrder:
		return &CancelOrderRequest{}, true
	case core.ActionCreatePool:
		return &CreatePoolRequest{}, true
	}
	return nil, false
}

// strategy defaults an omitted funding strategy to MergeAll.
func strategy(s string) domain.Strategy {
	if s == "" {
		return domain.MergeAll
	}
	return domain.Strategy(s)
}

type BuildResponse struct {
	Action      string               `json:"action"`
	Transaction *txgraph.Description `json:"transaction"`
}

type SubmitResponse struct {
	Action    string            `json:"action"`
	Digest    string            `json:"digest"`
	Status    string            `json:"status"`
	Final     bool              `json:"final"`
	Inventory map[string][]Coin `json:"inventory,omitempty"`
	Message   string            `json:"message,omitempty"`
}

func NewSubmitResponse(r *core.Receipt, assets []domain.AssetType) SubmitResponse {
	resp := SubmitResponse{Action: r.Action, Digest: r.Digest, Status: r.Status, Final: r.Final}
	if r.Inventory != nil {
		decimals := make(map[string]uint8, len(assets))
		for _, a := range assets {
			decimals[a.Type] = a.Decimals
		}
		resp.Inventory = make(map[string][]Coin, len(r.Inventory))
		for asset, coins := range r.Inventory {
			resp.Inventory[asset] = ConvertCoins(coins, decimals[asset])
		}
	}
	return resp
}

// Coin is an owned coin with its balance in base units and as a decimal.
type Coin struct {
	ID      string          `json:"id"`
	Asset   string          `json:"asset"`
	Balance uint64          `json:"balance"`
	Amount  decimal.Decimal `json:"amount"`
}

func ConvertCoins(coins []domain.Coin, decimals uint8) []Coin {
	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		out = append(out, Coin{
			ID:      c.ID,
			Asset:   c.Asset.Type,
			Balance: c.Balance,
			Amount:  scale.FromBaseUnits(c.Balance, decimals),
		})
	}
	return out
}

type InventoryResponse struct {
	Owner string          `json:"owner"`
	Asset string          `json:"asset"`
	Total decimal.Decimal `json:"total"`
	Coins []Coin          `json:"coins"`
}

func NewInventoryResponse(owner string, asset domain.AssetType, coins []domain.Coin) InventoryResponse {
	total := decimal.Zero
	converted := ConvertCoins(coins, asset.Decimals)
	for _, c := range converted {
		total = total.Add(c.Amount)
	}
	return InventoryResponse{Owner: owner, Asset: asset.Type, Total: total, Coins: converted}
}

type Order struct {
	ID            string          `json:"id"`
	ClientOrderID string          `json:"client_order_id"`
	ManagerID     string          `json:"manager_id"`
	PoolID        string          `json:"pool_id"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Filled        decimal.Decimal `json:"filled"`
	Remaining     decimal.Decimal `json:"remaining"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func ConvertOrders(orders []domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		out = append(out, Order{
			ID:            o.ID,
			ClientOrderID: o.ClientOrderID,
			ManagerID:     o.ManagerID,
			PoolID:        o.PoolID,
			Side:          string(o.Side),
			Type:          string(o.Type),
			Price:         o.Price,
			Quantity:      o.Quantity,
			Filled:        o.FilledQuantity,
			Remaining:     o.Remaining(),
			Status:        string(o.Status),
			CreatedAt:     o.CreatedAt,
		})
	}
	return out
}

type PoolsResponse struct {
	Pools []domain.Pool `json:"pools"`
}

type TradesResponse struct {
	Trades []domain.Trade `json:"trades"`
}

type OrdersResponse struct {
	Orders []Order `json:"orders"`
}

type CandlesResponse struct {
	Interval string          `json:"interval"`
	Candles  []domain.Candle `json:"candles"`
}

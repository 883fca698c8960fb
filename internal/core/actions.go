package core

import (
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/shopspring/decimal"
)

// Action is a user request the engine can build and submit.
type Action interface {
	Name() string
	// Subject identifies what the action mutates; one submission per subject
	// may be in flight.
	Subject() string
	Sender() string
	// Assets are re-read for the sender after a confirmed submission.
	Assets() []domain.AssetType
}

const (
	ActionMint        = "mint"
	ActionExercise    = "exercise"
	ActionUpdatePrice = "update_price"
	ActionDeposit     = "deposit"
	ActionWithdraw    = "withdraw"
	ActionPlaceOrder  = "place_order"
	ActionCancelOrder = "cancel_order"
	ActionCreatePool  = "create_pool"
)

// MintRequest locks collateral in a vault and mints option tokens.
type MintRequest struct {
	Owner      string
	Position   domain.Position
	Collateral decimal.Decimal
	Strategy   domain.Strategy
}

func (r *MintRequest) Name() string    { return ActionMint }
func (r *MintRequest) Subject() string { return r.Owner + "/" + r.Position.VaultID }
func (r *MintRequest) Sender() string  { return r.Owner }
func (r *MintRequest) Assets() []domain.AssetType {
	return []domain.AssetType{r.Position.CollateralAsset, r.Position.OptionAsset}
}

// ExerciseRequest redeems option tokens against payment.
type ExerciseRequest struct {
	Owner           string
	Position        domain.Position
	Amount          decimal.Decimal
	PaymentStrategy domain.Strategy
}

func (r *ExerciseRequest) Name() string    { return ActionExercise }
func (r *ExerciseRequest) Subject() string { return r.Owner + "/" + r.Position.VaultID }
func (r *ExerciseRequest) Sender() string  { return r.Owner }
func (r *ExerciseRequest) Assets() []domain.AssetType {
	return []domain.AssetType{r.Position.OptionAsset, r.Position.PayoutAsset, r.Position.CollateralAsset}
}

// UpdatePriceRequest sets a vault's reference price; AdminCapID authorizes it.
type UpdatePriceRequest struct {
	Admin      string
	VaultID    string
	AdminCapID string
	Price      decimal.Decimal
}

func (r *UpdatePriceRequest) Name() string               { return ActionUpdatePrice }
func (r *UpdatePriceRequest) Subject() string            { return r.VaultID }
func (r *UpdatePriceRequest) Sender() string             { return r.Admin }
func (r *UpdatePriceRequest) Assets() []domain.AssetType { return nil }

// DepositRequest moves wallet funds into a balance manager. An empty
// ManagerID creates and shares a new manager in the same transaction.
type DepositRequest struct {
	Owner     string
	ManagerID string
	Asset     domain.AssetType
	Amount    decimal.Decimal
	Strategy  domain.Strategy
}

func (r *DepositRequest) Name() string { return ActionDeposit }
func (r *DepositRequest) Subject() string {
	if r.ManagerID == "" {
		return r.Owner + "/new"
	}
	return r.ManagerID
}
func (r *DepositRequest) Sender() string             { return r.Owner }
func (r *DepositRequest) Assets() []domain.AssetType { return []domain.AssetType{r.Asset} }

// WithdrawRequest moves funds from a balance manager back to the owner.
type WithdrawRequest struct {
	Owner     string
	ManagerID string
	Asset     domain.AssetType
	Amount    decimal.Decimal
}

func (r *WithdrawRequest) Name() string               { return ActionWithdraw }
func (r *WithdrawRequest) Subject() string            { return r.ManagerID }
func (r *WithdrawRequest) Sender() string             { return r.Owner }
func (r *WithdrawRequest) Assets() []domain.AssetType { return []domain.AssetType{r.Asset} }

// PlaceOrderRequest places a limit or market order funded by a balance
// manager. PriceHint prices the custodial check of market bids; without it
// that check is skipped.
type PlaceOrderRequest struct {
	Owner     string
	PoolID    string
	ManagerID string
	Base      domain.AssetType
	Quote     domain.AssetType
	Side      domain.Side
	Kind      domain.OrderType
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	PriceHint decimal.Decimal
	// Expiration of a limit order; zero means good till cancelled.
	Expiration uint64
}

func (r *PlaceOrderRequest) Name() string               { return ActionPlaceOrder }
func (r *PlaceOrderRequest) Subject() string            { return r.ManagerID + "/" + r.PoolID }
func (r *PlaceOrderRequest) Sender() string             { return r.Owner }
func (r *PlaceOrderRequest) Assets() []domain.AssetType { return nil }

// CancelOrderRequest cancels one resting order by its protocol order id.
type CancelOrderRequest struct {
	Owner     string
	PoolID    string
	ManagerID string
	Base      domain.AssetType
	Quote     domain.AssetType
	OrderID   string
}

func (r *CancelOrderRequest) Name() string               { return ActionCancelOrder }
func (r *CancelOrderRequest) Subject() string            { return r.ManagerID + "/" + r.PoolID }
func (r *CancelOrderRequest) Sender() string             { return r.Owner }
func (r *CancelOrderRequest) Assets() []domain.AssetType { return nil }

// CreatePoolRequest creates a permissionless pool, paying the creation fee.
type CreatePoolRequest struct {
	Owner    string
	Base     domain.AssetType
	Quote    domain.AssetType
	TickSize decimal.Decimal
	LotSize  decimal.Decimal
	MinSize  decimal.Decimal
}

func (r *CreatePoolRequest) Name() string               { return ActionCreatePool }
func (r *CreatePoolRequest) Subject() string            { return r.Base.Type + "/" + r.Quote.Type }
func (r *CreatePoolRequest) Sender() string             { return r.Owner }
func (r *CreatePoolRequest) Assets() []domain.AssetType { return nil }

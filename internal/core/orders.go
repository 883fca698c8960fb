package core

import (
	"context"
	"math"
	"math/big"

	"github.com/olyamironova/txbuilder/internal/balance"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/scale"
	"github.com/olyamironova/txbuilder/internal/txgraph"
	"github.com/shopspring/decimal"
)

const (
	noRestriction     uint8 = 0
	selfMatchingAllow uint8 = 0
)

var maxOrderID = decimal.NewFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)), 0)

// ScaleOrder encodes an order for a pool without building a transaction.
func (e *Engine) ScaleOrder(in scale.OrderInput, base, quote domain.AssetType) (domain.OrderParameters, error) {
	return e.orders.Scale(in, base.Decimals, quote.Decimals)
}

// BuildPlaceOrderTx scales the order, checks the manager holds enough of the
// asset the order locks (quote for bids, base for asks) and places it with an
// owner trade proof. Market bids without a price hint skip the check.
func (e *Engine) BuildPlaceOrderTx(ctx context.Context, r *PlaceOrderRequest) (*txgraph.Description, error) {
	if err := e.checkVenue(r.Owner, r.PoolID, r.ManagerID, r.Base, r.Quote); err != nil {
		return nil, err
	}
	params, err := e.ScaleOrder(scale.OrderInput{
		Side:     r.Side,
		Kind:     r.Kind,
		Price:    r.Price,
		Quantity: r.Quantity,
	}, r.Base, r.Quote)
	if err != nil {
		return nil, err
	}

	if params.IsBid() {
		price := params.ScaledPrice
		if price == nil && r.PriceHint.IsPositive() {
			p, err := scale.ScalePrice(r.PriceHint, r.Base.Decimals, r.Quote.Decimals)
			if err != nil {
				return nil, err
			}
			price = &p
		}
		if price != nil {
			need, err := scale.QuoteForBid(*price, params.ScaledQuantity)
			if err != nil {
				return nil, err
			}
			if err := e.checkCustodial(ctx, r.Owner, r.ManagerID, "bid", r.Quote, need); err != nil {
				return nil, err
			}
		}
	} else if err := e.checkCustodial(ctx, r.Owner, r.ManagerID, "ask", r.Base, params.ScaledQuantity); err != nil {
		return nil, err
	}

	b := txgraph.NewBuilder(r.Owner, e.cfg.FeeAsset.Type)
	pool := txgraph.SharedObject(r.PoolID)
	manager := txgraph.SharedObject(r.ManagerID)
	proof := b.InvokeDrop(e.deepbookTarget("balance_manager", "generate_proof_as_owner"), nil, 1,
		txgraph.MutRef(manager),
	)[0]
	typeArgs := []string{r.Base.Type, r.Quote.Type}

	if params.Kind == domain.Limit {
		expire := r.Expiration
		if expire == 0 {
			expire = math.MaxUint64
		}
		b.InvokeDrop(e.deepbookTarget("pool", "place_limit_order"), typeArgs, 1,
			txgraph.MutRef(pool),
			txgraph.MutRef(manager),
			txgraph.Ref(proof),
			txgraph.Value(txgraph.Pure(params.ClientOrderID)),
			txgraph.Value(txgraph.Pure(noRestriction)),
			txgraph.Value(txgraph.Pure(selfMatchingAllow)),
			txgraph.Value(txgraph.Pure(*params.ScaledPrice)),
			txgraph.Value(txgraph.Pure(params.ScaledQuantity)),
			txgraph.Value(txgraph.Pure(params.IsBid())),
			txgraph.Value(txgraph.Pure(false)),
			txgraph.Value(txgraph.Pure(expire)),
			txgraph.Ref(txgraph.SharedObject(e.cfg.ClockID)),
		)
	} else {
		b.InvokeDrop(e.deepbookTarget("pool", "place_market_order"), typeArgs, 1,
			txgraph.MutRef(pool),
			txgraph.MutRef(manager),
			txgraph.Ref(proof),
			txgraph.Value(txgraph.Pure(params.ClientOrderID)),
			txgraph.Value(txgraph.Pure(selfMatchingAllow)),
			txgraph.Value(txgraph.Pure(params.ScaledQuantity)),
			txgraph.Value(txgraph.Pure(params.IsBid())),
			txgraph.Value(txgraph.Pure(false)),
			txgraph.Ref(txgraph.SharedObject(e.cfg.ClockID)),
		)
	}
	return b.Build()
}

// BuildCancelOrderTx cancels one order placed through the manager.
func (e *Engine) BuildCancelOrderTx(ctx context.Context, r *CancelOrderRequest) (*txgraph.Description, error) {
	if err := e.checkVenue(r.Owner, r.PoolID, r.ManagerID, r.Base, r.Quote); err != nil {
		return nil, err
	}
	id, err := decimal.NewFromString(r.OrderID)
	if err != nil || !id.IsInteger() || id.IsNegative() || id.GreaterThan(maxOrderID) {
		return nil, domain.NewValidationError("order_id", "must be an unsigned 128-bit integer, got %q", r.OrderID)
	}

	b := txgraph.NewBuilder(r.Owner, e.cfg.FeeAsset.Type)
	manager := txgraph.SharedObject(r.ManagerID)
	proof := b.InvokeDrop(e.deepbookTarget("balance_manager", "generate_proof_as_owner"), nil, 1,
		txgraph.MutRef(manager),
	)[0]
	b.Invoke(e.deepbookTarget("pool", "cancel_order"), []string{r.Base.Type, r.Quote.Type}, 0,
		txgraph.MutRef(txgraph.SharedObject(r.PoolID)),
		txgraph.MutRef(manager),
		txgraph.Ref(proof),
		txgraph.Value(txgraph.Pure(id.String())),
		txgraph.Ref(txgraph.SharedObject(e.cfg.ClockID)),
	)
	return b.Build()
}

// BuildCreatePoolTx encodes the pool's size constraints and pays the
// creation fee, always merged from every owned fee coin.
func (e *Engine) BuildCreatePoolTx(ctx context.Context, r *CreatePoolRequest) (*txgraph.Description, error) {
	if err := required("owner", r.Owner); err != nil {
		return nil, err
	}
	if r.Base.Type == "" || r.Quote.Type == "" || r.Base.Type == r.Quote.Type {
		return nil, domain.NewValidationError("assets", "base and quote must be set and differ")
	}
	if e.cfg.RegistryID == "" || e.cfg.PoolFeeAsset.Type == "" || e.cfg.PoolCreationFee == 0 {
		return nil, domain.NewValidationError("pool_fee", "pool registry and creation fee are not configured")
	}
	params, err := scale.ScalePool(r.TickSize, r.LotSize, r.MinSize, r.Base.Decimals, r.Quote.Decimals)
	if err != nil {
		return nil, err
	}

	plans, err := e.fundWallet(ctx, r.Owner, balance.Leg{
		Name:     "creation_fee",
		Asset:    e.cfg.PoolFeeAsset,
		Required: e.cfg.PoolCreationFee,
		Strategy: e.strategyFor(e.cfg.PoolFeeAsset),
		Source:   balance.Wallet,
	})
	if err != nil {
		return nil, err
	}

	b := txgraph.NewBuilder(r.Owner, e.cfg.FeeAsset.Type)
	fee := b.Fund(plans[0])
	b.InvokeDrop(e.deepbookTarget("pool", "create_permissionless_pool"), []string{r.Base.Type, r.Quote.Type}, 1,
		txgraph.MutRef(txgraph.SharedObject(e.cfg.RegistryID)),
		txgraph.Value(txgraph.Pure(params.TickSize)),
		txgraph.Value(txgraph.Pure(params.LotSize)),
		txgraph.Value(txgraph.Pure(params.MinSize)),
		txgraph.Value(fee),
	)
	return b.Build()
}

func (e *Engine) checkVenue(owner, poolID, managerID string, base, quote domain.AssetType) error {
	for _, f := range []struct{ name, v string }{
		{"owner", owner}, {"pool_id", poolID}, {"manager_id", managerID},
		{"base", base.Type}, {"quote", quote.Type},
	} {
		if err := required(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

package core

import (
	"context"

	"github.com/olyamironova/txbuilder/internal/balance"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/scale"
	"github.com/olyamironova/txbuilder/internal/txgraph"
)

// BuildDepositTx funds the deposit from the owner's wallet. Without a
// ManagerID it creates a balance manager, deposits into it and publishes it
// as the last operation.
func (e *Engine) BuildDepositTx(ctx context.Context, r *DepositRequest) (*txgraph.Description, error) {
	if err := required("owner", r.Owner); err != nil {
		return nil, err
	}
	if err := required("asset", r.Asset.Type); err != nil {
		return nil, err
	}
	if err := e.checkStrategy("strategy", r.Strategy, r.Asset); err != nil {
		return nil, err
	}
	amount, err := scale.ToBaseUnits(r.Amount, r.Asset.Decimals)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, domain.NewValidationError("amount", "must be > 0")
	}

	plans, err := e.fundWallet(ctx, r.Owner, balance.Leg{
		Name:     "deposit",
		Asset:    r.Asset,
		Required: amount,
		Strategy: r.Strategy,
		Source:   balance.Wallet,
	})
	if err != nil {
		return nil, err
	}

	b := txgraph.NewBuilder(r.Owner, e.cfg.FeeAsset.Type)
	coin := b.Fund(plans[0])

	var manager txgraph.Arg
	created := r.ManagerID == ""
	if created {
		manager = b.Invoke(e.deepbookTarget("balance_manager", "new"), nil, 1)[0]
	} else {
		manager = txgraph.SharedObject(r.ManagerID)
	}
	b.Invoke(e.deepbookTarget("balance_manager", "deposit"), []string{r.Asset.Type}, 0,
		txgraph.MutRef(manager),
		txgraph.Value(coin),
	)
	if created {
		b.Publish(manager)
	}
	return b.Build()
}

// BuildWithdrawTx checks the manager's custodial balance, withdraws the
// amount and transfers the coin to the owner.
func (e *Engine) BuildWithdrawTx(ctx context.Context, r *WithdrawRequest) (*txgraph.Description, error) {
	if err := required("owner", r.Owner); err != nil {
		return nil, err
	}
	if err := required("manager_id", r.ManagerID); err != nil {
		return nil, err
	}
	if err := required("asset", r.Asset.Type); err != nil {
		return nil, err
	}
	amount, err := scale.ToBaseUnits(r.Amount, r.Asset.Decimals)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, domain.NewValidationError("amount", "must be > 0")
	}
	if err := e.checkCustodial(ctx, r.Owner, r.ManagerID, "withdraw", r.Asset, amount); err != nil {
		return nil, err
	}

	b := txgraph.NewBuilder(r.Owner, e.cfg.FeeAsset.Type)
	out := b.Invoke(e.deepbookTarget("balance_manager", "withdraw"), []string{r.Asset.Type}, 1,
		txgraph.MutRef(txgraph.SharedObject(r.ManagerID)),
		txgraph.Value(txgraph.Pure(amount)),
	)
	b.Transfer(r.Owner, out...)
	return b.Build()
}

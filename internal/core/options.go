package core

import (
	"context"

	"github.com/olyamironova/txbuilder/internal/balance"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/scale"
	"github.com/olyamironova/txbuilder/internal/txgraph"
)

// BuildMintTx funds the collateral with the caller's strategy, mints
// options against it and transfers them to the owner.
func (e *Engine) BuildMintTx(ctx context.Context, r *MintRequest) (*txgraph.Description, error) {
	if err := required("owner", r.Owner); err != nil {
		return nil, err
	}
	if err := e.checkPosition(r.Position); err != nil {
		return nil, err
	}
	if err := e.checkStrategy("strategy", r.Strategy, r.Position.CollateralAsset); err != nil {
		return nil, err
	}

	collateral, err := scale.ToBaseUnits(r.Collateral, r.Position.CollateralAsset.Decimals)
	if err != nil {
		return nil, err
	}
	if collateral == 0 {
		return nil, domain.NewValidationError("collateral", "must be > 0")
	}
	minted, err := scale.MintAmountForCollateral(r.Position.Kind, collateral, r.Position.StrikePriceBaseUnits)
	if err != nil {
		return nil, err
	}
	if minted == 0 {
		return nil, domain.NewValidationError("collateral", "too small to mint one base unit of %s", r.Position.OptionAsset.Type)
	}

	leg := balance.Leg{
		Name:     "collateral",
		Asset:    r.Position.CollateralAsset,
		Required: collateral,
		Strategy: r.Strategy,
		Source:   balance.Wallet,
	}
	plans, err := e.fundWallet(ctx, r.Owner, leg)
	if err != nil {
		return nil, err
	}

	b := txgraph.NewBuilder(r.Owner, e.cfg.FeeAsset.Type)
	coin := b.Fund(plans[0])
	options := b.Invoke(e.optionsTarget("mint"),
		[]string{r.Position.CollateralAsset.Type, r.Position.OptionAsset.Type}, 1,
		txgraph.MutRef(txgraph.SharedObject(r.Position.VaultID)),
		txgraph.Value(coin),
		txgraph.Value(txgraph.Pure(minted)),
		txgraph.Ref(txgraph.SharedObject(e.cfg.ClockID)),
	)
	b.Transfer(r.Owner, options...)
	return b.Build()
}

// BuildExerciseTx merges the owner's option tokens, funds the exercise
// payment and transfers the released collateral to the owner.
func (e *Engine) BuildExerciseTx(ctx context.Context, r *ExerciseRequest) (*txgraph.Description, error) {
	if err := required("owner", r.Owner); err != nil {
		return nil, err
	}
	if err := e.checkPosition(r.Position); err != nil {
		return nil, err
	}
	if r.Position.PayoutAsset.Type == "" || r.Position.PayoutAsset.Type == r.Position.OptionAsset.Type {
		return nil, domain.NewValidationError("payout_asset", "must be set and differ from the option asset")
	}
	if err := e.checkStrategy("payment_strategy", r.PaymentStrategy, r.Position.PayoutAsset); err != nil {
		return nil, err
	}

	amount, err := scale.ToBaseUnits(r.Amount, r.Position.OptionAsset.Decimals)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, domain.NewValidationError("amount", "must be > 0")
	}
	payment, err := scale.RequiredPaymentForExercise(r.Position.Kind, amount, r.Position.StrikePriceBaseUnits)
	if err != nil {
		return nil, err
	}
	if payment == 0 {
		return nil, domain.NewValidationError("amount", "too small to require any %s payment", r.Position.PayoutAsset.Type)
	}

	plans, err := e.fundWallet(ctx, r.Owner,
		balance.Leg{
			Name:     "options",
			Asset:    r.Position.OptionAsset,
			Required: amount,
			Strategy: e.strategyFor(r.Position.OptionAsset),
			Source:   balance.Wallet,
		},
		balance.Leg{
			Name:     "payment",
			Asset:    r.Position.PayoutAsset,
			Required: payment,
			Strategy: r.PaymentStrategy,
			Source:   balance.Wallet,
		},
	)
	if err != nil {
		return nil, err
	}

	b := txgraph.NewBuilder(r.Owner, e.cfg.FeeAsset.Type)
	options := b.Fund(plans[0])
	pay := b.Fund(plans[1])
	released := b.Invoke(e.optionsTarget("exercise"),
		[]string{r.Position.CollateralAsset.Type, r.Position.PayoutAsset.Type, r.Position.OptionAsset.Type}, 1,
		txgraph.MutRef(txgraph.SharedObject(r.Position.VaultID)),
		txgraph.Value(options),
		txgraph.Value(pay),
		txgraph.Ref(txgraph.SharedObject(e.cfg.ClockID)),
	)
	b.Transfer(r.Owner, released...)
	return b.Build()
}

// BuildUpdatePriceTx sets a vault's reference price in PriceDecimals units.
func (e *Engine) BuildUpdatePriceTx(ctx context.Context, r *UpdatePriceRequest) (*txgraph.Description, error) {
	if err := required("admin", r.Admin); err != nil {
		return nil, err
	}
	if err := required("vault_id", r.VaultID); err != nil {
		return nil, err
	}
	if err := required("admin_cap_id", r.AdminCapID); err != nil {
		return nil, err
	}
	price, err := scale.StrikeToBaseUnits(r.Price)
	if err != nil {
		return nil, err
	}
	if price == 0 {
		return nil, domain.NewValidationError("price", "must be > 0")
	}

	b := txgraph.NewBuilder(r.Admin, e.cfg.FeeAsset.Type)
	b.InvokeDrop(e.optionsTarget("update_price"), nil, 0,
		txgraph.MutRef(txgraph.SharedObject(r.VaultID)),
		txgraph.Ref(txgraph.Object(r.AdminCapID)),
		txgraph.Value(txgraph.Pure(price)),
		txgraph.Ref(txgraph.SharedObject(e.cfg.ClockID)),
	)
	return b.Build()
}

func (e *Engine) checkPosition(p domain.Position) error {
	if err := required("vault_id", p.VaultID); err != nil {
		return err
	}
	if p.Kind == nil {
		return domain.NewValidationError("kind", "is required")
	}
	if p.StrikePriceBaseUnits == 0 {
		return domain.NewValidationError("strike", "must be > 0")
	}
	if p.CollateralAsset.Type == "" || p.OptionAsset.Type == "" {
		return domain.NewValidationError("position", "collateral and option assets are required")
	}
	if err := checkOneToOne(p); err != nil {
		return err
	}
	if p.Expired(e.now()) {
		return domain.NewValidationError("expiration", "series expired at %s", p.Expiration.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// checkOneToOne rejects positions whose 1:1 legs would mis-scale: a call
// mints one option base unit per collateral base unit, and a put is exercised
// by delivering one payout base unit per option base unit.
func checkOneToOne(p domain.Position) error {
	switch p.Kind.(type) {
	case domain.Call:
		if p.OptionAsset.Decimals != p.CollateralAsset.Decimals {
			return domain.NewValidationError("option_asset", "call options need the collateral's decimals (%d), got %d",
				p.CollateralAsset.Decimals, p.OptionAsset.Decimals)
		}
	case domain.Put:
		if p.PayoutAsset.Type != "" && p.OptionAsset.Decimals != p.PayoutAsset.Decimals {
			return domain.NewValidationError("option_asset", "put options need the payout asset's decimals (%d), got %d",
				p.PayoutAsset.Decimals, p.OptionAsset.Decimals)
		}
	}
	return nil
}

func (e *Engine) optionsTarget(fn string) string {
	return e.cfg.OptionsPackage + "::option::" + fn
}

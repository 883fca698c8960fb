package core

import (
	"context"
	"errors"

	"github.com/olyamironova/txbuilder/internal/balance"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
	"github.com/olyamironova/txbuilder/internal/txgraph"
)

// fundWallet resolves the owner's inventory for every leg, runs the balance
// check and only then plans each leg. Plans come back in leg order.
func (e *Engine) fundWallet(ctx context.Context, owner string, legs ...balance.Leg) ([]*domain.SpendPlan, error) {
	assets := make([]domain.AssetType, len(legs))
	for i, l := range legs {
		assets[i] = l.Asset
	}
	inv, err := e.resolver.ResolveMany(ctx, owner, assets...)
	if err != nil {
		return nil, err
	}
	for _, l := range legs {
		if len(inv[l.Asset.Type]) == 0 {
			return nil, &domain.NoSpendableCoinError{Asset: l.Asset}
		}
	}
	if err := e.validator.Check(legs, inv); err != nil {
		return nil, err
	}

	plans := make([]*domain.SpendPlan, len(legs))
	for i, l := range legs {
		p, err := e.planner.PlanSpend(owner, l.Asset, inv[l.Asset.Type], l.Required, l.Strategy)
		if err != nil {
			return nil, renameLeg(err, l.Name)
		}
		plans[i] = p
	}
	return plans, nil
}

// custodialBalance reads a balance manager's holding of asset by simulating
// the manager's balance view.
func (e *Engine) custodialBalance(ctx context.Context, owner, managerID string, asset domain.AssetType) (uint64, error) {
	call := port.ViewCall{
		Target:   e.deepbookTarget("balance_manager", "balance"),
		TypeArgs: []string{asset.Type},
		Args:     []txgraph.Arg{txgraph.SharedObject(managerID)},
	}
	res, err := e.reader.SimulateView(ctx, owner, call)
	if err != nil {
		var ne *domain.NetworkError
		if errors.As(err, &ne) {
			return 0, err
		}
		return 0, &domain.NetworkError{Op: "simulate " + call.Target, Err: err}
	}
	if len(res) == 0 {
		return 0, &domain.NetworkError{Op: "simulate " + call.Target, Err: errors.New("empty view result")}
	}
	return res[0], nil
}

func (e *Engine) checkCustodial(ctx context.Context, owner, managerID, leg string, asset domain.AssetType, need uint64) error {
	available, err := e.custodialBalance(ctx, owner, managerID, asset)
	if err != nil {
		return err
	}
	return e.validator.Check([]balance.Leg{{
		Name:      leg,
		Asset:     asset,
		Required:  need,
		Source:    balance.Custodial,
		Available: available,
	}}, nil)
}

func (e *Engine) deepbookTarget(module, fn string) string {
	return e.cfg.DeepbookPackage + "::" + module + "::" + fn
}

func renameLeg(err error, leg string) error {
	var ib *domain.InsufficientBalanceError
	if errors.As(err, &ib) {
		cp := *ib
		cp.Leg = leg
		return &cp
	}
	var ig *domain.InsufficientGasReserveError
	if errors.As(err, &ig) {
		cp := *ig
		cp.Leg = leg
		return &cp
	}
	return err
}

// checkStrategy rejects unknown strategies before any ledger read is made.
// The fee asset is only ever funded by GasSplit so the gas reserve applies,
// and GasSplit funds nothing else.
func (e *Engine) checkStrategy(field string, s domain.Strategy, asset domain.AssetType) error {
	if !s.Valid() {
		return domain.NewValidationError(field, "unknown funding strategy %q", s)
	}
	fee := asset.Type == e.cfg.FeeAsset.Type
	if s == domain.GasSplit && !fee {
		return domain.NewValidationError(field, "gas split only funds %s, not %s", e.cfg.FeeAsset.Type, asset.Type)
	}
	if s == domain.MergeAll && fee {
		return domain.NewValidationError(field, "%s must be funded with %s to keep the gas reserve", asset.Type, domain.GasSplit)
	}
	return nil
}

// strategyFor picks the funding strategy for legs the caller does not choose.
func (e *Engine) strategyFor(asset domain.AssetType) domain.Strategy {
	if asset.Type == e.cfg.FeeAsset.Type {
		return domain.GasSplit
	}
	return domain.MergeAll
}

func required(field, v string) error {
	if v == "" {
		return domain.NewValidationError(field, "is required")
	}
	return nil
}

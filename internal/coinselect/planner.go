// Package coinselect decides which coins fund an operation.
package coinselect

import (
	"math"
	"sort"

	"github.com/olyamironova/txbuilder/internal/domain"
)

// DefaultGasReserve is kept on top of GasSplit amounts for fees, in base
// units of the fee asset (0.05 at 9 decimals).
const DefaultGasReserve uint64 = 50_000_000

type Planner struct {
	feeAsset   string
	gasReserve uint64
}

func NewPlanner(feeAsset string, gasReserve uint64) *Planner {
	return &Planner{feeAsset: feeAsset, gasReserve: gasReserve}
}

func (p *Planner) FeeAsset() string { return p.feeAsset }

// PlanSpend builds a plan taking required base units of asset from coins
// using the caller's strategy.
func (p *Planner) PlanSpend(owner string, asset domain.AssetType, coins []domain.Coin, required uint64, strategy domain.Strategy) (*domain.SpendPlan, error) {
	if owner == "" {
		return nil, domain.NewValidationError("owner", "is required")
	}
	if required == 0 {
		return nil, domain.NewValidationError("amount", "must be > 0")
	}

	usable := make([]domain.Coin, 0, len(coins))
	for _, c := range coins {
		if c.Asset.Type == asset.Type {
			usable = append(usable, c)
		}
	}

	switch strategy {
	case domain.GasSplit:
		if asset.Type != p.feeAsset {
			return nil, domain.NewValidationError("strategy", "gas split only funds %s, not %s", p.feeAsset, asset.Type)
		}
	case domain.MergeAll:
		if asset.Type == p.feeAsset {
			return nil, domain.NewValidationError("strategy", "%s is funded by %s so the gas reserve is kept", asset.Type, domain.GasSplit)
		}
	default:
		return nil, domain.NewValidationError("strategy", "unknown strategy %q", strategy)
	}

	if len(usable) == 0 {
		return nil, &domain.NoSpendableCoinError{Asset: asset}
	}
	total, ok := domain.TotalBalance(usable)
	if !ok {
		total = math.MaxUint64
	}
	if total < required {
		return nil, &domain.InsufficientBalanceError{Leg: "funding", Asset: asset, Required: required, Available: total}
	}

	// largest first so the primary coin is stable across calls
	sort.SliceStable(usable, func(i, j int) bool {
		if usable[i].Balance != usable[j].Balance {
			return usable[i].Balance > usable[j].Balance
		}
		return usable[i].ID < usable[j].ID
	})
	ids := make([]string, len(usable))
	for i, c := range usable {
		ids[i] = c.ID
	}

	plan := &domain.SpendPlan{
		Strategy:    strategy,
		Asset:       asset,
		Owner:       owner,
		SourceIDs:   ids,
		SplitAmount: required,
		Total:       total,
	}
	if strategy == domain.GasSplit {
		if required > math.MaxUint64-p.gasReserve || total < required+p.gasReserve {
			return nil, &domain.InsufficientGasReserveError{
				Leg: "funding", Asset: asset, Required: required, Reserve: p.gasReserve, Available: total,
			}
		}
		plan.Remainder = domain.ReturnWithGas
		return plan, nil
	}
	plan.PrimaryID = ids[0]
	plan.Remainder = domain.TransferToOwner
	return plan, nil
}

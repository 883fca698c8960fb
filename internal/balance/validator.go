// Package balance runs preflight sufficiency checks before any plan is built.
package balance

import (
	"math"

	"github.com/olyamironova/txbuilder/internal/domain"
)

type Source string

const (
	// Wallet legs are funded from owned coins.
	Wallet Source = "WALLET"
	// Custodial legs are funded from a balance manager; Available is supplied.
	Custodial Source = "CUSTODIAL"
)

// Leg is one asset requirement of an action.
type Leg struct {
	Name      string
	Asset     domain.AssetType
	Required  uint64
	Strategy  domain.Strategy
	Source    Source
	Available uint64
}

type Validator struct {
	gasReserve uint64
}

func NewValidator(gasReserve uint64) *Validator {
	return &Validator{gasReserve: gasReserve}
}

// GasReserve returns the amount kept aside for fees on GasSplit legs.
func (v *Validator) GasReserve() uint64 { return v.gasReserve }

// Check verifies every leg against the resolved inventories (keyed by asset
// type). Wallet legs on the same asset are checked cumulatively.
func (v *Validator) Check(legs []Leg, inventories map[string][]domain.Coin) error {
	claimed := make(map[string]uint64)
	reserved := make(map[string]bool)

	for _, leg := range legs {
		if leg.Source == Custodial {
			if leg.Available < leg.Required {
				return &domain.InsufficientBalanceError{
					Leg: leg.Name, Asset: leg.Asset, Required: leg.Required, Available: leg.Available,
				}
			}
			continue
		}
		if !leg.Strategy.Valid() {
			return domain.NewValidationError(leg.Name, "unknown funding strategy %q", leg.Strategy)
		}

		owned, ok := domain.TotalBalance(inventories[leg.Asset.Type])
		if !ok {
			owned = math.MaxUint64
		}
		need := addSat(claimed[leg.Asset.Type], leg.Required)
		claimed[leg.Asset.Type] = need

		if owned < need {
			return &domain.InsufficientBalanceError{
				Leg: leg.Name, Asset: leg.Asset, Required: need, Available: owned,
			}
		}
		if leg.Strategy == domain.GasSplit {
			reserved[leg.Asset.Type] = true
		}
		if reserved[leg.Asset.Type] && owned < addSat(need, v.gasReserve) {
			return &domain.InsufficientGasReserveError{
				Leg: leg.Name, Asset: leg.Asset, Required: need, Reserve: v.gasReserve, Available: owned,
			}
		}
	}
	return nil
}

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

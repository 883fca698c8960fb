// Package scale converts user-entered decimal amounts into ledger base units and
// derives option mint and exercise quantities. Collateral math always floors.
package scale

import (
	"math"
	"math/big"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// PriceDecimals is the fixed-point scalar for strike prices.
	PriceDecimals uint64 = 1_000_000
	// FloatScalar is the fixed-point scalar for order-book prices.
	FloatScalar uint64 = 1_000_000_000
	// MaxDecimals bounds asset precision; 10^20 already exceeds uint64.
	MaxDecimals uint8 = 19
)

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

// ToBaseUnits returns floor(d * 10^decimals).
func ToBaseUnits(d decimal.Decimal, decimals uint8) (uint64, error) {
	if d.IsNegative() {
		return 0, domain.NewValidationError("amount", "must not be negative, got %s", d.String())
	}
	if decimals > MaxDecimals {
		return 0, domain.NewValidationError("decimals", "%d exceeds %d", decimals, MaxDecimals)
	}
	return toUint64("amount", d.Shift(int32(decimals)).Floor())
}

// FromBaseUnits is the inverse of ToBaseUnits, exact.
func FromBaseUnits(v uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -int32(decimals))
}

// StrikeToBaseUnits returns floor(strike * PriceDecimals). Strike must be positive.
func StrikeToBaseUnits(strike decimal.Decimal) (uint64, error) {
	if !strike.IsPositive() {
		return 0, domain.NewValidationError("strike_price", "must be > 0")
	}
	v, err := toUint64("strike_price", strike.Mul(decimal.NewFromBigInt(new(big.Int).SetUint64(PriceDecimals), 0)).Floor())
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, domain.NewValidationError("strike_price", "%s is below price precision", strike.String())
	}
	return v, nil
}

// MintAmountForCollateral returns how many option base units the collateral backs.
func MintAmountForCollateral(kind domain.OptionKind, collateral, strike uint64) (uint64, error) {
	switch kind.(type) {
	case domain.Call:
		return collateral, nil
	case domain.Put:
		if strike == 0 {
			return 0, domain.NewValidationError("strike_price", "must be > 0")
		}
		return mulDiv("mint_amount", collateral, PriceDecimals, strike)
	default:
		return 0, domain.NewValidationError("kind", "unsupported option kind %v", kind)
	}
}

// RequiredPaymentForExercise returns what the holder pays to exercise amount options.
// Calls pay strike * amount in quote; puts deliver the underlying 1:1.
func RequiredPaymentForExercise(kind domain.OptionKind, amount, strike uint64) (uint64, error) {
	switch kind.(type) {
	case domain.Call:
		return mulDiv("payment", strike, amount, PriceDecimals)
	case domain.Put:
		return amount, nil
	default:
		return 0, domain.NewValidationError("kind", "unsupported option kind %v", kind)
	}
}

// mulDiv computes floor(a*b/c) without intermediate overflow.
func mulDiv(field string, a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, domain.NewValidationError(field, "division by zero")
	}
	n := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	n.Quo(n, new(big.Int).SetUint64(c))
	if n.Cmp(maxUint64) > 0 {
		return 0, domain.NewValidationError(field, "result overflows u64")
	}
	return n.Uint64(), nil
}

func toUint64(field string, d decimal.Decimal) (uint64, error) {
	n := d.BigInt()
	if n.Sign() < 0 {
		return 0, domain.NewValidationError(field, "must not be negative")
	}
	if n.Cmp(maxUint64) > 0 {
		return 0, domain.NewValidationError(field, "%s overflows u64", d.String())
	}
	return n.Uint64(), nil
}

package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientGasReserve = errors.New("insufficient gas reserve")
	ErrNoSpendableCoin        = errors.New("no spendable coin")
	ErrTransactionBuild       = errors.New("transaction build error")
	ErrExecution              = errors.New("execution failure")
	ErrNetwork                = errors.New("network error")
	ErrActionInFlight         = errors.New("action already in flight for subject")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientBalanceError names the leg, the asset and the shortfall.
type InsufficientBalanceError struct {
	Leg       string
	Asset     AssetType
	Required  uint64
	Available uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: %s requires %s, available %s",
		e.Leg, e.Asset.Type,
		FormatBaseUnits(e.Required, e.Asset.Decimals),
		FormatBaseUnits(e.Available, e.Asset.Decimals))
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// Shortfall is the missing amount in base units.
func (e *InsufficientBalanceError) Shortfall() uint64 {
	if e.Available >= e.Required {
		return 0
	}
	return e.Required - e.Available
}

// InsufficientGasReserveError is returned when a GasSplit leg would leave less
// than the reserve for fees.
type InsufficientGasReserveError struct {
	Leg       string
	Asset     AssetType
	Required  uint64
	Reserve   uint64
	Available uint64
}

func (e *InsufficientGasReserveError) Error() string {
	return fmt.Sprintf("insufficient gas reserve for %s: %s requires %s plus reserve %s, available %s",
		e.Leg, e.Asset.Type,
		FormatBaseUnits(e.Required, e.Asset.Decimals),
		FormatBaseUnits(e.Reserve, e.Asset.Decimals),
		FormatBaseUnits(e.Available, e.Asset.Decimals))
}

func (e *InsufficientGasReserveError) Is(target error) bool {
	return target == ErrInsufficientGasReserve
}

type NoSpendableCoinError struct {
	Asset AssetType
}

func (e *NoSpendableCoinError) Error() string {
	return "no spendable coin of " + e.Asset.Type
}

func (e *NoSpendableCoinError) Is(target error) bool { return target == ErrNoSpendableCoin }

// TransactionBuildError is an ordering or dependency violation in an
// assembled description. Reaching it means a builder bug.
type TransactionBuildError struct {
	Op     int
	Reason string
}

func (e *TransactionBuildError) Error() string {
	if e.Op < 0 {
		return "transaction build error: " + e.Reason
	}
	return fmt.Sprintf("transaction build error at op %d: %s", e.Op, e.Reason)
}

func (e *TransactionBuildError) Is(target error) bool { return target == ErrTransactionBuild }

// ExecutionFailure carries the signer's or ledger's failure verbatim.
type ExecutionFailure struct {
	Digest  string
	Message string
	Err     error
}

func (e *ExecutionFailure) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }

func (e *ExecutionFailure) Is(target error) bool { return target == ErrExecution }

// NetworkError means the read channel itself could not be reached.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// FormatBaseUnits renders base units as a decimal string at the given precision.
func FormatBaseUnits(v uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -int32(decimals)).String()
}

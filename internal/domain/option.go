package domain

import "time"

// OptionKind is a closed set: Call or Put.
type OptionKind interface {
	optionKind()
	String() string
}

// Call is backed 1:1 by base-asset collateral and exercised by paying quote.
type Call struct{}

// Put is backed by quote-asset collateral at the strike price.
type Put struct{}

func (Call) optionKind() {}
func (Put) optionKind()  {}

func (Call) String() string { return "CALL" }
func (Put) String() string  { return "PUT" }

// ParseOptionKind maps the wire names CALL / PUT onto the tagged kind.
func ParseOptionKind(s string) (OptionKind, error) {
	switch s {
	case "CALL", "call":
		return Call{}, nil
	case "PUT", "put":
		return Put{}, nil
	}
	return nil, NewValidationError("kind", "unknown option kind %q", s)
}

// Position is the read-only configuration of a collateralized option series.
// CollateralAsset is locked at mint and released on exercise; PayoutAsset is
// what the holder pays into the vault to exercise (quote for CALL, base for PUT).
type Position struct {
	VaultID              string
	Kind                 OptionKind
	StrikePriceBaseUnits uint64
	Expiration           time.Time
	CollateralAsset      AssetType
	PayoutAsset          AssetType
	OptionAsset          AssetType
}

// Expired reports whether the series can no longer be minted or exercised at now.
func (p Position) Expired(now time.Time) bool {
	return !p.Expiration.IsZero() && !now.Before(p.Expiration)
}

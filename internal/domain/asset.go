package domain

// FeeAssetType is the coin type the network charges transaction fees in.
const FeeAssetType = "0x2::sui::SUI"

// AssetType identifies a coin type together with its declared precision.
type AssetType struct {
	Type     string `json:"type" yaml:"type"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}

func (a AssetType) String() string { return a.Type }

// Coin is an owned value object of a single asset type.
// A coin is consumed exactly once when used by value in a transaction.
type Coin struct {
	ID      string    `json:"id"`
	Owner   string    `json:"owner"`
	Asset   AssetType `json:"asset"`
	Balance uint64    `json:"balance"`
}

// TotalBalance sums coin balances. The second result is false on uint64 overflow.
func TotalBalance(coins []Coin) (uint64, bool) {
	var total uint64
	for _, c := range coins {
		next := total + c.Balance
		if next < total {
			return 0, false
		}
		total = next
	}
	return total, true
}

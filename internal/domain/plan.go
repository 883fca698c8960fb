package domain

// Strategy selects how an operation is funded.
type Strategy string

const (
	// MergeAll merges every owned coin, splits the amount, transfers the remainder back.
	MergeAll Strategy = "MERGE_ALL"
	// GasSplit splits the amount out of the fee-paying object.
	GasSplit Strategy = "GAS_SPLIT"
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool { return s == MergeAll || s == GasSplit }

// RemainderDisposition says what happens to the primary coin after the split.
type RemainderDisposition string

const (
	TransferToOwner RemainderDisposition = "TRANSFER_TO_OWNER"
	ReturnWithGas   RemainderDisposition = "RETURN_WITH_GAS"
)

// SpendPlan describes which coins fund one leg of a transaction.
type SpendPlan struct {
	Strategy    Strategy             `json:"strategy"`
	Asset       AssetType            `json:"asset"`
	Owner       string               `json:"owner"`
	SourceIDs   []string             `json:"source_ids"`
	PrimaryID   string               `json:"primary_id"`
	SplitAmount uint64               `json:"split_amount"`
	Total       uint64               `json:"total"`
	Remainder   RemainderDisposition `json:"remainder"`
}

// Merged returns the source ids merged into the primary coin.
func (p *SpendPlan) Merged() []string {
	out := make([]string, 0, len(p.SourceIDs))
	for _, id := range p.SourceIDs {
		if id != p.PrimaryID {
			out = append(out, id)
		}
	}
	return out
}

package port

import (
	"context"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/txgraph"
)

// CoinPage is one page of owned coins.
type CoinPage struct {
	Coins       []domain.Coin
	NextCursor  string
	HasNextPage bool
}

// ViewCall is a read-only call simulated against current ledger state.
type ViewCall struct {
	Target   string        `json:"target"`
	TypeArgs []string      `json:"type_args,omitempty"`
	Args     []txgraph.Arg `json:"args"`
}

// LedgerReader reads and simulates against the ledger. It never mutates state.
type LedgerReader interface {
	GetCoins(ctx context.Context, owner, coinType, cursor string) (*CoinPage, error)
	SimulateView(ctx context.Context, sender string, call ViewCall) ([]uint64, error)
	GetTransactionStatus(ctx context.Context, digest string) (*domain.TxStatus, error)
}

// Executor signs and executes a description on behalf of sender.
type Executor interface {
	Execute(ctx context.Context, sender string, tx *txgraph.Description) (*domain.ExecutionResult, error)
}

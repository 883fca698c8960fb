package ledger

import (
	"context"
	"fmt"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
	"github.com/olyamironova/txbuilder/internal/txgraph"
)

var _ port.Executor = (*Signer)(nil)

// Signer hands descriptions to the signer bridge, which serializes, signs and
// executes them. It does not retry.
type Signer struct {
	url string
	t   *transport
}

func NewSigner(bridgeURL string, o Options) *Signer {
	return &Signer{url: bridgeURL, t: newTransport("signer", o)}
}

type executeRequest struct {
	Sender      string               `json:"sender"`
	Transaction *txgraph.Description `json:"transaction"`
}

func (s *Signer) Execute(ctx context.Context, sender string, tx *txgraph.Description) (*domain.ExecutionResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("execute: nil transaction")
	}
	var res domain.ExecutionResult
	err := s.t.postJSON(ctx, s.url+"/v1/execute", "execute", executeRequest{Sender: sender, Transaction: tx}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

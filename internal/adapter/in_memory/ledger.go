package in_memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
	"github.com/olyamironova/txbuilder/internal/txgraph"
)

var (
	_ port.LedgerReader = (*Ledger)(nil)
	_ port.Executor     = (*Ledger)(nil)
)

// Ledger is an in-process stand-in for the ledger and the signer. It serves
// coin pages and view results, and records executed descriptions.
type Ledger struct {
	mu        sync.Mutex
	coins     map[string]domain.Coin
	views     map[string][]uint64
	statuses  map[string]*domain.TxStatus
	executed  []*txgraph.Description
	pageSize  int
	readErr   error
	execErr   error
	pendingN  int
	pendingOf map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{
		coins:     make(map[string]domain.Coin),
		views:     make(map[string][]uint64),
		statuses:  make(map[string]*domain.TxStatus),
		pageSize:  50,
		pendingOf: make(map[string]int),
	}
}

// AddCoin registers an owned coin.
func (l *Ledger) AddCoin(c domain.Coin) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.coins[c.ID] = c
}

// SetView fixes the result of a view call target for every sender.
func (l *Ledger) SetView(target string, results ...uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.views[target] = results
}

func (l *Ledger) SetPageSize(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pageSize = n
}

// FailReads makes every read return err until called with nil.
func (l *Ledger) FailReads(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readErr = err
}

// FailExecution makes Execute return err until called with nil.
func (l *Ledger) FailExecution(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.execErr = err
}

// DelayFinality reports new transactions as pending for n status reads.
func (l *Ledger) DelayFinality(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingN = n
}

// Executed returns the descriptions accepted so far.
func (l *Ledger) Executed() []*txgraph.Description {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*txgraph.Description(nil), l.executed...)
}

func (l *Ledger) GetCoins(ctx context.Context, owner, coinType, cursor string) (*port.CoinPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}

	var matched []domain.Coin
	for _, c := range l.coins {
		if c.Owner == owner && c.Asset.Type == coinType {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q", cursor)
		}
		start = n
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := start + l.pageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := &port.CoinPage{Coins: matched[start:end]}
	if end < len(matched) {
		page.HasNextPage = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (l *Ledger) SimulateView(ctx context.Context, sender string, call port.ViewCall) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}
	res, ok := l.views[call.Target]
	if !ok {
		return nil, fmt.Errorf("view %s not registered", call.Target)
	}
	return append([]uint64(nil), res...), nil
}

func (l *Ledger) GetTransactionStatus(ctx context.Context, digest string) (*domain.TxStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}
	st, ok := l.statuses[digest]
	if !ok {
		return nil, errors.New("unknown digest " + digest)
	}
	if l.pendingOf[digest] > 0 {
		l.pendingOf[digest]--
		return &domain.TxStatus{Digest: digest, Final: false, Status: "pending"}, nil
	}
	cp := *st
	return &cp, nil
}

// Execute validates tx and applies the coin-level effects of the
// operations that reference owned coins.
func (l *Ledger) Execute(ctx context.Context, sender string, tx *txgraph.Description) (*domain.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := txgraph.Validate(tx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.execErr != nil {
		return nil, l.execErr
	}

	digest := uuid.NewString()
	status := &domain.TxStatus{Digest: digest, Final: true, Status: "success"}
	if err := l.apply(sender, tx); err != nil {
		status.Status = "failure"
		status.Error = err.Error()
	} else {
		l.executed = append(l.executed, tx)
	}
	l.statuses[digest] = status
	l.pendingOf[digest] = l.pendingN
	return &domain.ExecutionResult{Digest: digest, Status: "success"}, nil
}

// apply replays the coin-level effects of tx atomically: merges, splits from
// owned coins, transfers and coins moved into calls. Split outputs and call
// results are not materialised.
func (l *Ledger) apply(sender string, tx *txgraph.Description) error {
	coins := make(map[string]domain.Coin, len(l.coins))
	for id, c := range l.coins {
		coins[id] = c
	}
	for _, op := range tx.Operations {
		for _, u := range op.Uses {
			if u.Arg.Kind != txgraph.ArgInput || u.Arg.Shared {
				continue
			}
			c, ok := coins[u.Arg.ObjectID]
			if !ok {
				if u.Arg.Asset != "" {
					return fmt.Errorf("object %s not found", u.Arg.ObjectID)
				}
				continue
			}
			if c.Owner != sender {
				return fmt.Errorf("object %s not owned by %s", c.ID, sender)
			}
		}
		switch op.Kind {
		case txgraph.KindMerge:
			target := op.Uses[0].Arg.ObjectID
			t := coins[target]
			for _, u := range op.Uses[1:] {
				t.Balance += coins[u.Arg.ObjectID].Balance
				delete(coins, u.Arg.ObjectID)
			}
			coins[target] = t
		case txgraph.KindSplit:
			src := op.Uses[0].Arg
			if src.Kind != txgraph.ArgInput {
				continue
			}
			c := coins[src.ObjectID]
			for _, a := range op.Amounts {
				if c.Balance < a {
					return fmt.Errorf("split %d from %s holding %d", a, c.ID, c.Balance)
				}
				c.Balance -= a
			}
			coins[src.ObjectID] = c
		case txgraph.KindTransfer:
			for _, u := range op.Uses {
				if c, ok := coins[u.Arg.ObjectID]; ok && u.Arg.Kind == txgraph.ArgInput {
					c.Owner = op.Recipient
					coins[c.ID] = c
				}
			}
		case txgraph.KindInvoke:
			for _, u := range op.Uses {
				if u.Mode == txgraph.ByValue && u.Arg.Kind == txgraph.ArgInput {
					delete(coins, u.Arg.ObjectID)
				}
			}
		}
	}
	l.coins = coins
	return nil
}

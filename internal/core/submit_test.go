package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/txgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecutor struct {
	res   *domain.ExecutionResult
	err   error
	calls int
}

func (s *stubExecutor) Execute(ctx context.Context, sender string, tx *txgraph.Description) (*domain.ExecutionResult, error) {
	s.calls++
	return s.res, s.err
}

func mintRequest() *MintRequest {
	return &MintRequest{Owner: alice, Position: callPosition(), Collateral: dec("10"), Strategy: domain.MergeAll}
}

func TestSubmit_ConfirmsAndRefreshes(t *testing.T) {
	e, ledger, _ := newTestEngine(t)
	ledger.AddCoin(coin("0x01", eth, 6_000_000))
	ledger.AddCoin(coin("0x02", eth, 5_000_000))
	ledger.DelayFinality(3)

	rcpt, err := e.Submit(context.Background(), mintRequest())
	require.NoError(t, err)
	assert.True(t, rcpt.Final)
	assert.Equal(t, "success", rcpt.Status)
	assert.NotEmpty(t, rcpt.Digest)
	require.Len(t, ledger.Executed(), 1)

	left := rcpt.Inventory[eth.Type]
	require.Len(t, left, 1)
	assert.Equal(t, uint64(1_000_000), left[0].Balance)
}

func TestSubmit_RejectsConcurrentSubject(t *testing.T) {
	e, ledger, locker := newTestEngine(t)
	ledger.AddCoin(coin("0x01", eth, 20_000_000))
	ctx := context.Background()

	req := mintRequest()
	unlock, err := locker.TryLock(ctx, lockKey(req))
	require.NoError(t, err)

	_, err = e.Submit(ctx, req)
	assert.ErrorIs(t, err, domain.ErrActionInFlight)
	assert.Empty(t, ledger.Executed())

	require.NoError(t, unlock(ctx))
	_, err = e.Submit(ctx, req)
	assert.NoError(t, err)
}

func TestSubmit_ReleasesLockAfterFailure(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Submit(ctx, mintRequest())
	assert.ErrorIs(t, err, domain.ErrNoSpendableCoin)
	_, err = e.Submit(ctx, mintRequest())
	assert.ErrorIs(t, err, domain.ErrNoSpendableCoin, "lock must not leak")
}

func TestSubmit_ExecutionErrorIsVerbatim(t *testing.T) {
	e, ledger, _ := newTestEngine(t)
	ledger.AddCoin(coin("0x01", eth, 20_000_000))
	ledger.FailExecution(errors.New("user rejected the request"))

	_, err := e.Submit(context.Background(), mintRequest())
	var ef *domain.ExecutionFailure
	require.ErrorAs(t, err, &ef)
	assert.Equal(t, "user rejected the request", ef.Message)
	assert.ErrorIs(t, err, domain.ErrExecution)
}

func TestSubmit_FailedResult(t *testing.T) {
	e, ledger, _ := newTestEngine(t)
	ledger.AddCoin(coin("0x01", eth, 20_000_000))
	exec := &stubExecutor{res: &domain.ExecutionResult{Digest: "D1", Status: "failure", Error: "MoveAbort(option, 3)"}}
	e.executor = exec

	_, err := e.Submit(context.Background(), mintRequest())
	var ef *domain.ExecutionFailure
	require.ErrorAs(t, err, &ef)
	assert.Equal(t, "D1", ef.Digest)
	assert.Equal(t, "MoveAbort(option, 3)", ef.Message)
	assert.Equal(t, 1, exec.calls)
}

func TestSubmit_NotExecutedWhenBuildFails(t *testing.T) {
	e, _, _ := newTestEngine(t)
	exec := &stubExecutor{}
	e.executor = exec

	_, err := e.Submit(context.Background(), &MintRequest{Owner: alice, Position: callPosition(), Strategy: domain.MergeAll})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, exec.calls)
}

func TestSubmit_FinalityTimeout(t *testing.T) {
	e, ledger, _ := newTestEngine(t)
	e.cfg.Confirm.MaxElapsed = 20 * time.Millisecond
	ledger.AddCoin(coin("0x01", eth, 20_000_000))
	ledger.DelayFinality(1 << 20)

	rcpt, err := e.Submit(context.Background(), mintRequest())
	assert.ErrorIs(t, err, domain.ErrNetwork)
	require.NotNil(t, rcpt)
	assert.False(t, rcpt.Final)
	assert.Equal(t, "unconfirmed", rcpt.Status)
}

func TestInventory(t *testing.T) {
	e, ledger, _ := newTestEngine(t)
	ledger.AddCoin(coin("0x01", eth, 1))

	coins, err := e.Inventory(context.Background(), alice, eth)
	require.NoError(t, err)
	assert.Len(t, coins, 1)

	_, err = e.Inventory(context.Background(), "", eth)
	assert.ErrorIs(t, err, domain.ErrValidation)

	ledger.FailReads(errors.New("dial tcp: refused"))
	_, err = e.Inventory(context.Background(), alice, eth)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

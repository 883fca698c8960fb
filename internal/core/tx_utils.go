package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/port"
)

func withSubjectLock(ctx context.Context, locker port.Locker, key string, fn func() error) error {
	if locker == nil {
		return fn()
	}
	unlock, err := locker.TryLock(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrActionInFlight) {
			return fmt.Errorf("%s: %w", key, err)
		}
		return &domain.NetworkError{Op: "lock " + key, Err: err}
	}
	defer func() {
		_ = unlock(context.WithoutCancel(ctx))
	}()
	return fn()
}

var errPending = errors.New("transaction not final")

// awaitFinality polls the ledger for digest with exponential backoff until it
// reports a final status or the policy's elapsed budget runs out.
func (e *Engine) awaitFinality(ctx context.Context, digest string) (*domain.TxStatus, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.Confirm.InitialInterval
	b.MaxInterval = e.cfg.Confirm.MaxInterval
	b.MaxElapsedTime = e.cfg.Confirm.MaxElapsed
	b.Reset()

	return backoff.RetryWithData(func() (*domain.TxStatus, error) {
		st, err := e.reader.GetTransactionStatus(ctx, digest)
		if err != nil {
			return nil, err
		}
		if !st.Final {
			return nil, errPending
		}
		return st, nil
	}, backoff.WithContext(b, ctx))
}

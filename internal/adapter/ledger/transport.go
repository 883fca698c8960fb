// Package ledger talks to the ledger's JSON-RPC endpoint and to the signer
// bridge that simulates and executes transaction descriptions.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Options tune the HTTP transport shared by Client and Signer.
type Options struct {
	Timeout time.Duration
	// ConsecutiveFailures opens the breaker; Cooldown is how long it stays open.
	ConsecutiveFailures uint32
	Cooldown            time.Duration
	HTTPClient          *http.Client
	Logger              *zap.Logger
}

type transport struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func newTransport(name string, o Options) *transport {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.ConsecutiveFailures == 0 {
		o.ConsecutiveFailures = 5
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 30 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	logger := o.Logger.With(zap.String("upstream", name))
	return &transport{
		name: name,
		http: o.HTTPClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: o.Cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= o.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
			},
		}),
		logger: logger,
	}
}

// statusError is a non-2xx answer. Client errors do not trip the breaker.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.body)
}

// postJSON sends in as JSON and decodes the answer into out. Transport
// failures and open-breaker rejections come back as *domain.NetworkError.
func (t *transport) postJSON(ctx context.Context, url, op string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	var clientErr *statusError
	_, err = t.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &statusError{code: resp.StatusCode, body: string(raw)}
		}
		if resp.StatusCode >= 300 {
			clientErr = &statusError{code: resp.StatusCode, body: string(raw)}
			return nil, nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			t.logger.Warn("request rejected by open breaker", zap.String("op", op))
		}
		return &domain.NetworkError{Op: op, Err: err}
	}
	if clientErr != nil {
		return clientErr
	}
	return nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/olyamironova/txbuilder/internal/balance"
	"github.com/olyamironova/txbuilder/internal/coinselect"
	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/inventory"
	"github.com/olyamironova/txbuilder/internal/metrics"
	"github.com/olyamironova/txbuilder/internal/port"
	"github.com/olyamironova/txbuilder/internal/scale"
	"github.com/olyamironova/txbuilder/internal/txgraph"
	"go.uber.org/zap"
)

// Config names the on-ledger packages and objects the engine targets.
type Config struct {
	OptionsPackage  string
	DeepbookPackage string
	RegistryID      string
	ClockID         string
	FeeAsset        domain.AssetType
	PoolFeeAsset    domain.AssetType
	PoolCreationFee uint64
	GasReserve      uint64
	Confirm         ConfirmPolicy
}

// ConfirmPolicy bounds the exponential backoff used to wait for finality.
type ConfirmPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// Engine validates, plans, scales and assembles transactions for user actions,
// and drives their execution through the configured executor.
type Engine struct {
	cfg      Config
	reader   port.LedgerReader
	executor port.Executor
	locker   port.Locker

	resolver  *inventory.Resolver
	validator *balance.Validator
	planner   *coinselect.Planner
	orders    *scale.OrderScaler

	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(cfg Config, reader port.LedgerReader, executor port.Executor, locker port.Locker, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeeAsset.Type == "" {
		cfg.FeeAsset = domain.AssetType{Type: domain.FeeAssetType, Decimals: 9}
	}
	if cfg.GasReserve == 0 {
		cfg.GasReserve = coinselect.DefaultGasReserve
	}
	if cfg.ClockID == "" {
		cfg.ClockID = "0x6"
	}
	if cfg.Confirm.InitialInterval <= 0 {
		cfg.Confirm.InitialInterval = 250 * time.Millisecond
	}
	if cfg.Confirm.MaxInterval <= 0 {
		cfg.Confirm.MaxInterval = 4 * time.Second
	}
	if cfg.Confirm.MaxElapsed <= 0 {
		cfg.Confirm.MaxElapsed = time.Minute
	}
	return &Engine{
		cfg:       cfg,
		reader:    reader,
		executor:  executor,
		locker:    locker,
		resolver:  inventory.NewResolver(reader, logger),
		validator: balance.NewValidator(cfg.GasReserve),
		planner:   coinselect.NewPlanner(cfg.FeeAsset.Type, cfg.GasReserve),
		orders:    scale.NewOrderScaler(),
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// FeeAsset is the asset GasSplit legs are funded from.
func (e *Engine) FeeAsset() domain.AssetType { return e.cfg.FeeAsset }

// Inventory returns the owner's coins of asset. Used for display and refresh.
func (e *Engine) Inventory(ctx context.Context, owner string, asset domain.AssetType) ([]domain.Coin, error) {
	if owner == "" {
		return nil, domain.NewValidationError("owner", "is required")
	}
	if asset.Type == "" {
		return nil, domain.NewValidationError("asset", "is required")
	}
	return e.resolver.Resolve(ctx, owner, asset)
}

// Build assembles the description for a without executing it.
func (e *Engine) Build(ctx context.Context, a Action) (*txgraph.Description, error) {
	var (
		tx  *txgraph.Description
		err error
	)
	switch r := a.(type) {
	case *MintRequest:
		tx, err = e.BuildMintTx(ctx, r)
	case *ExerciseRequest:
		tx, err = e.BuildExerciseTx(ctx, r)
	case *UpdatePriceRequest:
		tx, err = e.BuildUpdatePriceTx(ctx, r)
	case *DepositRequest:
		tx, err = e.BuildDepositTx(ctx, r)
	case *WithdrawRequest:
		tx, err = e.BuildWithdrawTx(ctx, r)
	case *PlaceOrderRequest:
		tx, err = e.BuildPlaceOrderTx(ctx, r)
	case *CancelOrderRequest:
		tx, err = e.BuildCancelOrderTx(ctx, r)
	case *CreatePoolRequest:
		tx, err = e.BuildCreatePoolTx(ctx, r)
	case nil:
		err = domain.NewValidationError("action", "is required")
	default:
		err = domain.NewValidationError("action", "unsupported action %T", a)
	}
	if err != nil {
		name := "unknown"
		if a != nil {
			name = a.Name()
		}
		e.metrics.Rejected(name, err)
		return nil, err
	}
	e.metrics.Built(a.Name())
	return tx, nil
}

// Receipt is the outcome of a submitted action.
type Receipt struct {
	Action    string                   `json:"action"`
	Digest    string                   `json:"digest"`
	Status    string                   `json:"status"`
	Final     bool                     `json:"final"`
	Inventory map[string][]domain.Coin `json:"inventory,omitempty"`
}

// Submit runs one action end to end: it holds the action's subject lock,
// builds, executes, waits for finality and re-reads the sender's inventory.
// A second Submit on the same subject while one is in flight fails with
// domain.ErrActionInFlight. Nothing is retried.
func (e *Engine) Submit(ctx context.Context, a Action) (*Receipt, error) {
	if a == nil {
		return nil, domain.NewValidationError("action", "is required")
	}
	if e.executor == nil {
		return nil, errors.New("core: no executor configured")
	}
	var rcpt *Receipt
	err := withSubjectLock(ctx, e.locker, lockKey(a), func() error {
		tx, err := e.Build(ctx, a)
		if err != nil {
			return err
		}
		rcpt, err = e.execute(ctx, a, tx)
		return err
	})
	if errors.Is(err, domain.ErrActionInFlight) {
		e.metrics.Rejected(a.Name(), err)
	}
	return rcpt, err
}

func (e *Engine) execute(ctx context.Context, a Action, tx *txgraph.Description) (*Receipt, error) {
	log := e.logger.With(zap.String("action", a.Name()), zap.String("subject", a.Subject()))
	started := e.now()

	res, err := e.executor.Execute(ctx, a.Sender(), tx)
	if err != nil {
		e.metrics.Submitted(a.Name(), "failed")
		log.Warn("execution rejected", zap.Error(err))
		var ef *domain.ExecutionFailure
		if errors.As(err, &ef) {
			return nil, ef
		}
		return nil, &domain.ExecutionFailure{Message: err.Error(), Err: err}
	}
	if !res.Succeeded() {
		e.metrics.Submitted(a.Name(), "failed")
		log.Warn("execution failed", zap.String("digest", res.Digest), zap.String("error", res.Error))
		return nil, &domain.ExecutionFailure{Digest: res.Digest, Message: res.Error}
	}

	rcpt := &Receipt{Action: a.Name(), Digest: res.Digest, Status: res.Status}
	st, err := e.awaitFinality(ctx, res.Digest)
	if err != nil {
		e.metrics.Submitted(a.Name(), "unconfirmed")
		log.Warn("finality not observed", zap.String("digest", res.Digest), zap.Error(err))
		rcpt.Status = "unconfirmed"
		return rcpt, &domain.NetworkError{Op: "confirm " + res.Digest, Err: err}
	}
	e.metrics.Confirmed(e.now().Sub(started).Seconds())
	rcpt.Final = true
	rcpt.Status = st.Status
	if st.Status != "success" {
		e.metrics.Submitted(a.Name(), "failed")
		log.Warn("transaction failed on ledger", zap.String("digest", res.Digest), zap.String("error", st.Error))
		return rcpt, &domain.ExecutionFailure{Digest: res.Digest, Message: st.Error}
	}

	e.metrics.Submitted(a.Name(), "success")
	rcpt.Inventory = make(map[string][]domain.Coin)
	for _, asset := range a.Assets() {
		rcpt.Inventory[asset.Type] = e.resolver.ResolveOrEmpty(ctx, a.Sender(), asset)
	}
	log.Info("action confirmed", zap.String("digest", res.Digest))
	return rcpt, nil
}

func lockKey(a Action) string {
	return fmt.Sprintf("%s:%s", a.Name(), a.Subject())
}

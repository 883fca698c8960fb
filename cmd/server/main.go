package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/olyamironova/txbuilder/internal/adapter/cache"
	"github.com/olyamironova/txbuilder/internal/adapter/in_memory"
	"github.com/olyamironova/txbuilder/internal/adapter/ledger"
	"github.com/olyamironova/txbuilder/internal/adapter/pg"
	grpcapi "github.com/olyamironova/txbuilder/internal/api/grpc"
	httpapi "github.com/olyamironova/txbuilder/internal/api/http"
	"github.com/olyamironova/txbuilder/internal/config"
	"github.com/olyamironova/txbuilder/internal/core"
	"github.com/olyamironova/txbuilder/internal/metrics"
	"github.com/olyamironova/txbuilder/internal/middleware"
	"github.com/olyamironova/txbuilder/internal/poller"
	"github.com/olyamironova/txbuilder/internal/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", os.Getenv("TXB_CONFIG"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("shut down")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Log.Level, err)
	}
	zc.Level = level
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zc.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var (
		snapshots port.Cache  = in_memory.NewCache()
		locker    port.Locker = in_memory.NewLocker()
		reader    port.LedgerReader
		executor  port.Executor
		data      port.MarketData
	)

	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		defer rc.Close()
		snapshots = rc
		locker = cache.NewRedisLocker(rc.Client(), cfg.Redis.LockTTL)
		logger.Info("using redis for snapshots and subject locks", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("redis not configured; subject locks are local to this instance")
	}

	if cfg.Postgres.URL != "" {
		idx, err := pg.NewIndexer(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("indexer: %w", err)
		}
		defer idx.Close()
		data = idx
	} else {
		logger.Warn("indexer not configured; market reads serve cached snapshots only")
	}

	if cfg.Ledger.RPCURL != "" && cfg.Ledger.SignerURL != "" {
		opts := ledger.Options{Timeout: cfg.Ledger.Timeout, Logger: logger}
		reader = ledger.NewClient(cfg.Ledger.RPCURL, cfg.Ledger.SignerURL, opts)
		executor = ledger.NewSigner(cfg.Ledger.SignerURL, opts)
	} else {
		logger.Warn("ledger endpoints not configured; using an empty in-memory ledger")
		mem := in_memory.NewLedger()
		reader, executor = mem, mem
	}

	p := cfg.Protocol
	eng := core.NewEngine(core.Config{
		OptionsPackage:  p.OptionsPackage,
		DeepbookPackage: p.DeepbookPackage,
		RegistryID:      p.RegistryID,
		ClockID:         p.ClockID,
		FeeAsset:        p.FeeAsset,
		PoolFeeAsset:    p.PoolFeeAsset,
		PoolCreationFee: p.PoolCreationFee,
		GasReserve:      p.GasReserve,
		Confirm: core.ConfirmPolicy{
			InitialInterval: cfg.Confirm.InitialInterval,
			MaxInterval:     cfg.Confirm.MaxInterval,
			MaxElapsed:      cfg.Confirm.MaxElapsed,
		},
	}, reader, executor, locker, m, logger)
	market := core.NewMarket(data, snapshots, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if data != nil {
		pl := poller.New(snapshots, m, logger.Named("poller"))
		pl.Add(poller.MarketTasks(data, poller.Settings{
			Pools:          cfg.Poller.Pools,
			Orderbook:      cfg.Poller.Orderbook,
			Trades:         cfg.Poller.Trades,
			Candles:        cfg.Poller.Candles,
			CandleInterval: cfg.Poller.CandleInterval,
			PoolIDs:        cfg.Poller.PoolIDs,
			Depth:          cfg.Poller.Depth,
			Limit:          cfg.Poller.Limit,
		})...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			pl.Run(ctx)
		}()
	}

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
	httpSrv := httpapi.NewHTTPServer(eng, market, limiter, reg, logger.Named("http"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpSrv.Run(ctx, cfg.HTTP.Addr); err != nil {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	if cfg.GRPC.Addr != "" {
		grpcSrv := grpcapi.NewGRPCServer(eng, market, logger.Named("grpc"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := grpcSrv.Run(ctx, cfg.GRPC.Addr); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	cancel()
	wg.Wait()
	return runErr
}

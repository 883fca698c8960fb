// Package config loads service settings from YAML, then applies environment
// overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr      string  `yaml:"addr"`
		RateLimit float64 `yaml:"rate_limit"`
		RateBurst int     `yaml:"rate_burst"`
	} `yaml:"http"`

	GRPC struct {
		Addr string `yaml:"addr"`
	} `yaml:"grpc"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`

	Ledger struct {
		RPCURL    string        `yaml:"rpc_url"`
		SignerURL string        `yaml:"signer_url"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"ledger"`

	Protocol Protocol `yaml:"protocol"`

	Confirm struct {
		InitialInterval time.Duration `yaml:"initial_interval"`
		MaxInterval     time.Duration `yaml:"max_interval"`
		MaxElapsed      time.Duration `yaml:"max_elapsed"`
	} `yaml:"confirm"`

	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
		LockTTL  time.Duration `yaml:"lock_ttl"`
	} `yaml:"redis"`

	Poller struct {
		Pools          time.Duration `yaml:"pools"`
		Orderbook      time.Duration `yaml:"orderbook"`
		Trades         time.Duration `yaml:"trades"`
		Candles        time.Duration `yaml:"candles"`
		CandleInterval time.Duration `yaml:"candle_interval"` // bucket width of polled candles
		PoolIDs        []string      `yaml:"pool_ids"`
		Depth          int           `yaml:"depth"`
		Limit          int           `yaml:"limit"`
	} `yaml:"poller"`
}

// Protocol names the on-ledger packages and shared objects the engine calls.
type Protocol struct {
	OptionsPackage  string           `yaml:"options_package"`
	DeepbookPackage string           `yaml:"deepbook_package"`
	RegistryID      string           `yaml:"registry_id"`
	ClockID         string           `yaml:"clock_id"`
	FeeAsset        domain.AssetType `yaml:"fee_asset"`
	PoolFeeAsset    domain.AssetType `yaml:"pool_fee_asset"`
	PoolCreationFee uint64           `yaml:"pool_creation_fee"`
	GasReserve      uint64           `yaml:"gas_reserve"`
}

// Default returns a config usable for local development.
func Default() *Config {
	c := &Config{}
	c.HTTP.Addr = ":8080"
	c.HTTP.RateLimit = 10
	c.HTTP.RateBurst = 20
	c.GRPC.Addr = ":9090"
	c.Log.Level = "info"
	c.Ledger.Timeout = 10 * time.Second
	c.Protocol.ClockID = "0x6"
	c.Protocol.FeeAsset = domain.AssetType{Type: domain.FeeAssetType, Decimals: 9}
	c.Protocol.GasReserve = 50_000_000
	c.Confirm.InitialInterval = 250 * time.Millisecond
	c.Confirm.MaxInterval = 4 * time.Second
	c.Confirm.MaxElapsed = 60 * time.Second
	c.Redis.TTL = 5 * time.Minute
	c.Redis.LockTTL = 2 * time.Minute
	c.Poller.Pools = time.Minute
	c.Poller.Orderbook = 2 * time.Second
	c.Poller.Trades = 5 * time.Second
	c.Poller.Candles = 30 * time.Second
	c.Poller.CandleInterval = time.Minute
	c.Poller.Depth = 50
	c.Poller.Limit = 100
	return c
}

// Load reads path over the defaults and applies environment overrides.
// An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("TXB_HTTP_ADDR", &c.HTTP.Addr)
	setString("TXB_GRPC_ADDR", &c.GRPC.Addr)
	setString("TXB_LOG_LEVEL", &c.Log.Level)
	setString("TXB_PG_URL", &c.Postgres.URL)
	setString("TXB_REDIS_ADDR", &c.Redis.Addr)
	setString("TXB_REDIS_PASSWORD", &c.Redis.Password)
	setString("TXB_LEDGER_RPC_URL", &c.Ledger.RPCURL)
	setString("TXB_SIGNER_URL", &c.Ledger.SignerURL)
	setString("TXB_OPTIONS_PACKAGE", &c.Protocol.OptionsPackage)
	setString("TXB_DEEPBOOK_PACKAGE", &c.Protocol.DeepbookPackage)

	if v, ok := os.LookupEnv("TXB_GAS_RESERVE"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: TXB_GAS_RESERVE: %w", err)
		}
		c.Protocol.GasReserve = n
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Protocol.FeeAsset.Type == "" {
		return fmt.Errorf("config: protocol.fee_asset.type is required")
	}
	if c.Protocol.ClockID == "" {
		return fmt.Errorf("config: protocol.clock_id is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("config: http.addr is required")
	}
	if c.Confirm.InitialInterval <= 0 || c.Confirm.MaxElapsed <= 0 {
		return fmt.Errorf("config: confirm intervals must be positive")
	}
	return nil
}

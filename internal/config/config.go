// Package config loads service configuration from YAML with environment
// overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full lotteryd configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Chain     ChainConfig     `yaml:"chain"`
	Lottery   LotteryConfig   `yaml:"lottery"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ChainConfig configures the RPC node connection and the deployed contracts.
type ChainConfig struct {
	RPCURL              string        `yaml:"rpc_url"`
	NetworkID           uint32        `yaml:"network_id"`
	Timeout             time.Duration `yaml:"timeout"`
	CollectibleContract string        `yaml:"collectible_contract"`
	TokenContract       string        `yaml:"token_contract"`
	// SignerURL points at the relay that signs and broadcasts contract
	// writes. Required when the on-chain contracts are configured.
	SignerURL string `yaml:"signer_url"`
}

// LotteryConfig configures round behavior.
type LotteryConfig struct {
	Operator      string `yaml:"operator"`
	Escrow        string `yaml:"escrow"`
	TicketPrice   int64  `yaml:"ticket_price"`
	RoundDuration uint64 `yaml:"round_duration"`
	// KParam offsets the entropy reference block past the round end.
	KParam uint64 `yaml:"k_param"`
	// DrawSchedule is a cron expression for the automatic draw poller;
	// empty disables automation.
	DrawSchedule string `yaml:"draw_schedule"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RateLimitConfig configures the per-client HTTP rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns a configuration suitable for local development against a
// private chain.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Chain: ChainConfig{
			RPCURL:  "http://localhost:20332",
			Timeout: 15 * time.Second,
		},
		Lottery: LotteryConfig{
			TicketPrice:   10_000_000,
			RoundDuration: 5760,
			KParam:        0,
			DrawSchedule:  "@every 1m",
		},
		Storage: StorageConfig{Driver: "memory"},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		LogLevel: "info",
	}
}

// LoadFromPath reads a YAML config file, fills unset fields from defaults,
// and applies environment overrides.
func LoadFromPath(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the given path when set, otherwise returns defaults
// with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadFromPath(path)
	}
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "LOTTERY_SERVER_ADDR")
	setString(&c.Chain.RPCURL, "LOTTERY_RPC_URL")
	setString(&c.Chain.CollectibleContract, "LOTTERY_COLLECTIBLE_CONTRACT")
	setString(&c.Chain.TokenContract, "LOTTERY_TOKEN_CONTRACT")
	setString(&c.Chain.SignerURL, "LOTTERY_SIGNER_URL")
	setString(&c.Lottery.Operator, "LOTTERY_OPERATOR")
	setString(&c.Lottery.Escrow, "LOTTERY_ESCROW")
	setInt64(&c.Lottery.TicketPrice, "LOTTERY_TICKET_PRICE")
	setUint64(&c.Lottery.RoundDuration, "LOTTERY_ROUND_DURATION")
	setUint64(&c.Lottery.KParam, "LOTTERY_K_PARAM")
	setString(&c.Lottery.DrawSchedule, "LOTTERY_DRAW_SCHEDULE")
	setString(&c.Storage.Driver, "LOTTERY_STORAGE_DRIVER")
	setString(&c.Storage.DSN, "LOTTERY_STORAGE_DSN")
	setString(&c.LogLevel, "LOG_LEVEL")
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if (c.Chain.CollectibleContract != "" || c.Chain.TokenContract != "") && c.Chain.SignerURL == "" {
		return fmt.Errorf("chain.signer_url is required when contracts are configured")
	}
	if c.Lottery.TicketPrice <= 0 {
		return fmt.Errorf("lottery.ticket_price must be positive")
	}
	if c.Lottery.RoundDuration == 0 {
		return fmt.Errorf("lottery.round_duration must be positive")
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

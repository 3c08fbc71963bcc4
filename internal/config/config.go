// Package config provides centralized configuration for the sniper
// execution core. ALL process-wide parameters (feature flags, fee
// schedule, timeouts, venue endpoints) MUST be defined here; no
// hardcoded values should exist elsewhere in the codebase.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Chain identifies the blockchain this core executes against. The spec's
// non-goals exclude alternate blockchains, so this is always "solana",
// but the field is kept (rather than hardcoded at every call site) so the
// rest of the codebase never special-cases a string literal.
const Chain = "solana"

// FeatureFlags gate background loops at startup, per spec.md §6:
// TPSLEngineEnabled gates the position monitor, GraduationMonitorEnabled
// the lifecycle monitor, and OnchainDiscoveryEnabled the on-chain
// listener. AutoExecuteEnabled is loaded but no loop consults it.
type FeatureFlags struct {
	AutoExecuteEnabled       bool `mapstructure:"auto_execute_enabled"`
	TPSLEngineEnabled        bool `mapstructure:"tp_sl_engine_enabled"`
	GraduationMonitorEnabled bool `mapstructure:"graduation_monitor_enabled"`
	OnchainDiscoveryEnabled  bool `mapstructure:"onchain_discovery_enabled"`
}

// FeeConfig is the maker-side fee split applied to every confirmed buy/sell.
type FeeConfig struct {
	FeeBPS            int `mapstructure:"fee_bps"`
	ProtocolShareBPS  int `mapstructure:"protocol_share_bps"`
	ReferrerShareBPS  int `mapstructure:"referrer_share_bps"`
}

// DefaultFeeConfig returns the fee schedule used when no override is set.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{FeeBPS: 100, ProtocolShareBPS: 80, ReferrerShareBPS: 20}
}

// Timeouts bounds every outbound call the core makes, per spec.md §5.
type Timeouts struct {
	QuoteTimeout        time.Duration `mapstructure:"quote_timeout"`
	ChainConfirmTimeout time.Duration `mapstructure:"chain_confirm_timeout"`
	AMMConfirmTimeout   time.Duration `mapstructure:"amm_confirm_timeout"`
	LeaseTTL            time.Duration `mapstructure:"lease_ttl"`
}

// DefaultTimeouts mirrors the defaults named in spec.md §5.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		QuoteTimeout:        5 * time.Second,
		ChainConfirmTimeout: 30 * time.Second,
		AMMConfirmTimeout:   60 * time.Second,
		LeaseTTL:            60 * time.Second,
	}
}

// Intervals controls the poll cadence of the core's background loops.
type Intervals struct {
	PositionPollInterval   time.Duration `mapstructure:"position_poll_interval"`
	MaintenanceInterval    time.Duration `mapstructure:"maintenance_interval"`
	LifecyclePollInterval  time.Duration `mapstructure:"lifecycle_poll_interval"`
	QueuePollInterval      time.Duration `mapstructure:"queue_poll_interval"`
	TelegramDedupeWindow   time.Duration `mapstructure:"telegram_dedupe_window"`
	OnchainHeartbeat       time.Duration `mapstructure:"onchain_heartbeat"`
	PostBuyCooldown        time.Duration `mapstructure:"post_buy_cooldown"`
	OpportunityPollInterval time.Duration `mapstructure:"opportunity_poll_interval"`
}

// DefaultIntervals mirrors the cadences named throughout spec.md §4–§5.
func DefaultIntervals() Intervals {
	return Intervals{
		PositionPollInterval:  3 * time.Second,
		MaintenanceInterval:   60 * time.Second,
		LifecyclePollInterval: 10 * time.Second,
		QueuePollInterval:     2 * time.Second,
		TelegramDedupeWindow:    5 * time.Minute,
		OnchainHeartbeat:        30 * time.Second,
		PostBuyCooldown:         300 * time.Second,
		OpportunityPollInterval: 2 * time.Second,
	}
}

// Config holds all process configuration. Credentials and URLs come from
// the process environment (spec.md §6); static tuning parameters may be
// overridden via an optional YAML file.
type Config struct {
	DatabaseURL       string `mapstructure:"database_url"`
	RedisURL          string `mapstructure:"redis_url"`
	TelegramBotToken  string `mapstructure:"telegram_bot_token"`
	TelegramChannelID int64  `mapstructure:"telegram_channel_id"`
	LaunchpadProgramID string `mapstructure:"launchpad_program_id"`
	SolanaRPCURL      string `mapstructure:"solana_rpc_url"`
	SolanaWSURL       string `mapstructure:"solana_ws_url"`
	JupiterAPIBaseURL string `mapstructure:"jupiter_api_base_url"`
	SignerBaseURL     string `mapstructure:"signer_base_url"`
	DexScreenerBaseURL string `mapstructure:"dexscreener_base_url"`
	AdminListenAddr   string `mapstructure:"admin_listen_addr"`
	LogLevel          string `mapstructure:"log_level"`

	Features  FeatureFlags `mapstructure:"features"`
	Fees      FeeConfig    `mapstructure:"fees"`
	Timeouts  Timeouts     `mapstructure:"timeouts"`
	Intervals Intervals    `mapstructure:"intervals"`
}

// defaults sets every value that is safe to ship without an operator
// override, mirroring the teacher's DefaultConfig() pattern.
func defaults() *Config {
	return &Config{
		AdminListenAddr:    "0.0.0.0:8090",
		LogLevel:           "info",
		DexScreenerBaseURL: "https://api.dexscreener.com",
		Features: FeatureFlags{
			AutoExecuteEnabled:       false,
			TPSLEngineEnabled:        true,
			GraduationMonitorEnabled: true,
			OnchainDiscoveryEnabled:  true,
		},
		Fees:      DefaultFeeConfig(),
		Timeouts:  DefaultTimeouts(),
		Intervals: DefaultIntervals(),
	}
}

// Load reads configuration from an optional YAML file at configPath
// layered under defaults, then applies environment variable overrides
// (prefixed SNIPERD_, e.g. SNIPERD_DATABASE_URL). Environment variables
// always win, per spec.md §6 ("credentials/URLs ... come from the
// process environment").
func Load(configPath string) (*Config, error) {
	v := viper.New()

	d := defaults()
	v.SetDefault("admin_listen_addr", d.AdminListenAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("dexscreener_base_url", d.DexScreenerBaseURL)
	v.SetDefault("features.auto_execute_enabled", d.Features.AutoExecuteEnabled)
	v.SetDefault("features.tp_sl_engine_enabled", d.Features.TPSLEngineEnabled)
	v.SetDefault("features.graduation_monitor_enabled", d.Features.GraduationMonitorEnabled)
	v.SetDefault("features.onchain_discovery_enabled", d.Features.OnchainDiscoveryEnabled)
	v.SetDefault("fees.fee_bps", d.Fees.FeeBPS)
	v.SetDefault("fees.protocol_share_bps", d.Fees.ProtocolShareBPS)
	v.SetDefault("fees.referrer_share_bps", d.Fees.ReferrerShareBPS)
	v.SetDefault("timeouts.quote_timeout", d.Timeouts.QuoteTimeout)
	v.SetDefault("timeouts.chain_confirm_timeout", d.Timeouts.ChainConfirmTimeout)
	v.SetDefault("timeouts.amm_confirm_timeout", d.Timeouts.AMMConfirmTimeout)
	v.SetDefault("timeouts.lease_ttl", d.Timeouts.LeaseTTL)
	v.SetDefault("intervals.position_poll_interval", d.Intervals.PositionPollInterval)
	v.SetDefault("intervals.maintenance_interval", d.Intervals.MaintenanceInterval)
	v.SetDefault("intervals.lifecycle_poll_interval", d.Intervals.LifecyclePollInterval)
	v.SetDefault("intervals.queue_poll_interval", d.Intervals.QueuePollInterval)
	v.SetDefault("intervals.telegram_dedupe_window", d.Intervals.TelegramDedupeWindow)
	v.SetDefault("intervals.onchain_heartbeat", d.Intervals.OnchainHeartbeat)
	v.SetDefault("intervals.post_buy_cooldown", d.Intervals.PostBuyCooldown)
	v.SetDefault("intervals.opportunity_poll_interval", d.Intervals.OpportunityPollInterval)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix("SNIPERD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"database_url", "redis_url", "telegram_bot_token", "telegram_channel_id",
		"launchpad_program_id", "solana_rpc_url", "solana_ws_url",
		"jupiter_api_base_url", "signer_base_url", "dexscreener_base_url",
		"admin_listen_addr", "log_level",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required (set SNIPERD_DATABASE_URL)")
	}
	return cfg, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"swing-signal-bot/internal/storage"
)

// Config is the full bot configuration. Values load from config.json with
// environment variables taking precedence.
type Config struct {
	Scanner      ScannerConfig          `json:"scanner"`
	Analysis     AnalysisConfig         `json:"analysis"`
	Scoring      ScoringConfig          `json:"scoring"`
	Dedup        DedupConfig            `json:"dedup"`
	Risk         RiskConfig             `json:"risk"`
	Memory       MemoryConfig           `json:"memory"`
	Notification NotificationConfig     `json:"notification"`
	Postgres     storage.PostgresConfig `json:"postgres"`
	Redis        storage.RedisConfig    `json:"redis"`
	Logging      LoggingConfig          `json:"logging"`
}

// ScannerConfig drives the orchestrator. A universe size above the fixed
// symbol count enables volume-based rotation of the extra slots.
type ScannerConfig struct {
	Symbols             []string `json:"symbols"`
	SlowTimeframe       string   `json:"slow_timeframe"`
	AnchorTimeframe     string   `json:"anchor_timeframe"`
	FastTimeframe       string   `json:"fast_timeframe"`
	Workers             int      `json:"workers"`
	WarmupCandles       int      `json:"warmup_candles"`
	StoreCapacity       int      `json:"store_capacity"`
	UniverseSize        int      `json:"universe_size"`
	UniverseRefreshMins int      `json:"universe_refresh_mins"`
	RotationMins        int      `json:"rotation_mins"`
}

// UniverseRefresh returns the volume pool refresh interval as a duration.
func (s ScannerConfig) UniverseRefresh() time.Duration {
	return time.Duration(s.UniverseRefreshMins) * time.Minute
}

// RotationInterval returns the symbol rotation interval as a duration.
func (s ScannerConfig) RotationInterval() time.Duration {
	return time.Duration(s.RotationMins) * time.Minute
}

// AnalysisConfig holds the structural analysis thresholds.
type AnalysisConfig struct {
	SwingLookback     int     `json:"swing_lookback"`
	ATRPeriod         int     `json:"atr_period"`
	SweepTolerancePct float64 `json:"sweep_tolerance_pct"`
	MinGapPct         float64 `json:"min_gap_pct"`
	RangeLookback     int     `json:"range_lookback"`
	LevelClusterPct   float64 `json:"level_cluster_pct"`
}

// ScoringConfig holds per-setup weights and minimum scores. Weight maps
// must sum to exactly 100.
type ScoringConfig struct {
	ContinuationWeights map[string]int `json:"continuation_weights"`
	ReversalWeights     map[string]int `json:"reversal_weights"`
	ContinuationMin     int            `json:"continuation_min"`
	ReversalMin         int            `json:"reversal_min"`
}

// DedupConfig holds signal throttling settings in seconds.
type DedupConfig struct {
	GlobalCooldownSec int `json:"global_cooldown_sec"`
	SetupCooldownSec  int `json:"setup_cooldown_sec"`
	MaxActive         int `json:"max_active"`
	RetentionSec      int `json:"retention_sec"`
}

// RiskConfig holds position sizing and target settings.
type RiskConfig struct {
	AccountBalance   float64 `json:"account_balance"`
	RiskPerTrade     float64 `json:"risk_per_trade"`
	MinRiskReward    float64 `json:"min_risk_reward"`
	MaxSignalsPerDay int     `json:"max_signals_per_day"`
}

// MemoryConfig toggles the adaptive memory.
type MemoryConfig struct {
	Enabled bool `json:"enabled"`
}

// NotificationConfig groups alert channels.
type NotificationConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig mirrors notify.TelegramConfig for loading.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// Load reads config.json when present and applies environment overrides,
// then validates. Configuration errors are fatal by contract: a bot
// running with malformed weights must not start.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = "config.json"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Scanner: ScannerConfig{
			Symbols:             []string{"BTCUSDT", "ETHUSDT"},
			SlowTimeframe:       "4h",
			AnchorTimeframe:     "1h",
			FastTimeframe:       "30m",
			Workers:             5,
			WarmupCandles:       200,
			StoreCapacity:       500,
			UniverseRefreshMins: 360,
			RotationMins:        60,
		},
		Analysis: AnalysisConfig{
			SwingLookback:     5,
			ATRPeriod:         14,
			SweepTolerancePct: 0.002,
			MinGapPct:         0.001,
			RangeLookback:     50,
			LevelClusterPct:   0.01,
		},
		Scoring: ScoringConfig{
			ContinuationWeights: map[string]int{
				"structure":        25,
				"pullback":         20,
				"premium_discount": 15,
				"liquidity":        15,
				"ob_fvg":           10,
				"displacement":     10,
				"volatility":       5,
			},
			ReversalWeights: map[string]int{
				"external_sweep":   25,
				"choch":            25,
				"displacement":     15,
				"sr_strength":      15,
				"pattern":          10,
				"volatility":       5,
				"premium_discount": 5,
			},
			ContinuationMin: 80,
			ReversalMin:     85,
		},
		Dedup: DedupConfig{
			GlobalCooldownSec: 60,
			SetupCooldownSec:  1800,
			MaxActive:         3,
			RetentionSec:      7200,
		},
		Risk: RiskConfig{
			AccountBalance:   10000,
			RiskPerTrade:     0.01,
			MinRiskReward:    2.5,
			MaxSignalsPerDay: 3,
		},
		Memory: MemoryConfig{Enabled: true},
		Postgres: storage.PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "swingbot",
			SSLMode:  "disable",
		},
		Redis: storage.RedisConfig{
			Addr: "localhost:6379",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Pretty = getEnvBoolOrDefault("LOG_PRETTY", cfg.Logging.Pretty)

	cfg.Scanner.Workers = getEnvIntOrDefault("SCANNER_WORKERS", cfg.Scanner.Workers)
	cfg.Scanner.UniverseSize = getEnvIntOrDefault("SCANNER_UNIVERSE_SIZE", cfg.Scanner.UniverseSize)

	cfg.Risk.AccountBalance = getEnvFloatOrDefault("RISK_ACCOUNT_BALANCE", cfg.Risk.AccountBalance)
	cfg.Risk.RiskPerTrade = getEnvFloatOrDefault("RISK_PER_TRADE", cfg.Risk.RiskPerTrade)
	cfg.Risk.MaxSignalsPerDay = getEnvIntOrDefault("RISK_MAX_SIGNALS_PER_DAY", cfg.Risk.MaxSignalsPerDay)

	cfg.Postgres.Host = getEnvOrDefault("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getEnvIntOrDefault("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = getEnvOrDefault("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnvOrDefault("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Database = getEnvOrDefault("POSTGRES_DB", cfg.Postgres.Database)
	cfg.Postgres.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)

	cfg.Redis.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Notification.Telegram.Enabled = getEnvBoolOrDefault("TELEGRAM_ENABLED", cfg.Notification.Telegram.Enabled)
	cfg.Notification.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.Notification.Telegram.BotToken)
	cfg.Notification.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.Notification.Telegram.ChatID)
}

// Validate rejects configurations the bot must not run with.
func (c *Config) Validate() error {
	if len(c.Scanner.Symbols) == 0 {
		return fmt.Errorf("config: no symbols configured")
	}
	if c.Scanner.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Scanner.Workers)
	}
	if c.Scanner.UniverseSize < 0 {
		return fmt.Errorf("config: universe_size must not be negative, got %d", c.Scanner.UniverseSize)
	}

	for name, weights := range map[string]map[string]int{
		"continuation": c.Scoring.ContinuationWeights,
		"reversal":     c.Scoring.ReversalWeights,
	} {
		sum := 0
		for comp, w := range weights {
			if w < 0 {
				return fmt.Errorf("config: %s weight %q is negative", name, comp)
			}
			sum += w
		}
		if sum != 100 {
			return fmt.Errorf("config: %s weights sum to %d, want 100", name, sum)
		}
	}

	if c.Scoring.ContinuationMin < 0 || c.Scoring.ContinuationMin > 100 {
		return fmt.Errorf("config: continuation_min out of range: %d", c.Scoring.ContinuationMin)
	}
	if c.Scoring.ReversalMin < 0 || c.Scoring.ReversalMin > 100 {
		return fmt.Errorf("config: reversal_min out of range: %d", c.Scoring.ReversalMin)
	}

	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade >= 1 {
		return fmt.Errorf("config: risk_per_trade must be in (0, 1), got %g", c.Risk.RiskPerTrade)
	}
	if c.Risk.MinRiskReward <= 0 {
		return fmt.Errorf("config: min_risk_reward must be positive, got %g", c.Risk.MinRiskReward)
	}

	if c.Dedup.GlobalCooldownSec < 0 || c.Dedup.SetupCooldownSec < 0 || c.Dedup.RetentionSec < 0 {
		return fmt.Errorf("config: dedup cooldowns must not be negative")
	}
	return nil
}

// GlobalCooldown returns the dedup global cooldown as a duration.
func (d DedupConfig) GlobalCooldown() time.Duration {
	return time.Duration(d.GlobalCooldownSec) * time.Second
}

// SetupCooldown returns the dedup setup cooldown as a duration.
func (d DedupConfig) SetupCooldown() time.Duration {
	return time.Duration(d.SetupCooldownSec) * time.Second
}

// Retention returns the dedup record retention as a duration.
func (d DedupConfig) Retention() time.Duration {
	return time.Duration(d.RetentionSec) * time.Second
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is built once at startup
// and treated as immutable afterwards; changing limits requires a restart.
type Config struct {
	Trading struct {
		Mode             string  `yaml:"mode"`              // "paper" or "live"
		AnalysisInterval int     `yaml:"analysis_interval"` // seconds between iterations
		SimulationCount  int     `yaml:"simulation_count"`  // Monte Carlo paths per asset
		TopAssets        int     `yaml:"top_assets"`        // candidates kept after ranking
		CashReserve      float64 `yaml:"cash_reserve"`      // fraction of capital never allocated
		MinTradeSize     float64 `yaml:"min_trade_size"`    // USD
		InitialCapital   float64 `yaml:"initial_capital"`   // USD, paper mode starting cash
	} `yaml:"trading"`
	Risk struct {
		MaxPositionSize        float64 `yaml:"max_position_size"` // USD per order
		MaxDailyVolume         float64 `yaml:"max_daily_volume"`  // USD per UTC day
		MaxDailyLoss           float64 `yaml:"max_daily_loss"`    // USD per UTC day
		StopLossPercentage     float64 `yaml:"stop_loss_percentage"`
		MaxPositions           int     `yaml:"max_positions"`
		CircuitBreakerDrawdown float64 `yaml:"circuit_breaker_drawdown"` // percent from high-water mark
	} `yaml:"risk"`
	Exchange struct {
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"exchange"`
	Universe struct {
		File string `yaml:"file"` // YAML asset universe (symbols + seed parameters)
	} `yaml:"universe"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the /metrics server
	} `yaml:"metrics"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides, then fills defaults. A missing file is not an error; env vars
// alone are a complete configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = strings.ToLower(v)
	}
	for _, err := range []error{
		envInt("ANALYSIS_INTERVAL", &cfg.Trading.AnalysisInterval),
		envInt("SIMULATION_COUNT", &cfg.Trading.SimulationCount),
		envInt("TOP_ASSETS", &cfg.Trading.TopAssets),
		envFloat("CASH_RESERVE", &cfg.Trading.CashReserve),
		envFloat("MIN_TRADE_SIZE", &cfg.Trading.MinTradeSize),
		envFloat("INITIAL_CAPITAL", &cfg.Trading.InitialCapital),
		envFloat("MAX_POSITION_SIZE", &cfg.Risk.MaxPositionSize),
		envFloat("MAX_DAILY_VOLUME", &cfg.Risk.MaxDailyVolume),
		envFloat("MAX_DAILY_LOSS", &cfg.Risk.MaxDailyLoss),
		envFloat("STOP_LOSS_PERCENTAGE", &cfg.Risk.StopLossPercentage),
		envInt("MAX_POSITIONS", &cfg.Risk.MaxPositions),
		envFloat("CIRCUIT_BREAKER_THRESHOLD", &cfg.Risk.CircuitBreakerDrawdown),
	} {
		if err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("EXCHANGE_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("EXCHANGE_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("UNIVERSE_PATH"); v != "" {
		cfg.Universe.File = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}

	// Defaults
	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "paper"
	}
	if cfg.Trading.AnalysisInterval == 0 {
		cfg.Trading.AnalysisInterval = 3600
	}
	if cfg.Trading.SimulationCount == 0 {
		cfg.Trading.SimulationCount = 2000
	}
	if cfg.Trading.TopAssets == 0 {
		cfg.Trading.TopAssets = 10
	}
	if cfg.Trading.MinTradeSize == 0 {
		cfg.Trading.MinTradeSize = 10
	}
	if cfg.Trading.InitialCapital == 0 {
		cfg.Trading.InitialCapital = 10000
	}
	if cfg.Risk.MaxPositionSize == 0 {
		cfg.Risk.MaxPositionSize = 100
	}
	if cfg.Risk.MaxDailyVolume == 0 {
		cfg.Risk.MaxDailyVolume = 500
	}
	if cfg.Risk.MaxDailyLoss == 0 {
		cfg.Risk.MaxDailyLoss = 200
	}
	if cfg.Risk.StopLossPercentage == 0 {
		cfg.Risk.StopLossPercentage = 15
	}
	if cfg.Risk.MaxPositions == 0 {
		cfg.Risk.MaxPositions = 10
	}
	if cfg.Risk.CircuitBreakerDrawdown == 0 {
		cfg.Risk.CircuitBreakerDrawdown = 25
	}
	if cfg.Universe.File == "" {
		cfg.Universe.File = "configs/universe.yaml"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/cryptopilot.db"
	}

	return cfg, nil
}

// Validate checks all settings; any error is fatal at startup.
func (c *Config) Validate() error {
	if c.Trading.Mode != "paper" && c.Trading.Mode != "live" {
		return fmt.Errorf("trading.mode must be 'paper' or 'live', got %q", c.Trading.Mode)
	}
	if c.Trading.Mode == "live" {
		if c.Exchange.APIKey == "" {
			return fmt.Errorf("EXCHANGE_API_KEY is required for live trading")
		}
		if c.Exchange.APISecret == "" {
			return fmt.Errorf("EXCHANGE_API_SECRET is required for live trading")
		}
	}
	if c.Trading.AnalysisInterval <= 0 {
		return fmt.Errorf("trading.analysis_interval must be positive")
	}
	if c.Trading.SimulationCount < 100 {
		return fmt.Errorf("trading.simulation_count must be >= 100, got %d", c.Trading.SimulationCount)
	}
	if c.Trading.TopAssets <= 0 {
		return fmt.Errorf("trading.top_assets must be positive")
	}
	if c.Trading.CashReserve < 0 || c.Trading.CashReserve >= 1 {
		return fmt.Errorf("trading.cash_reserve must be in [0,1), got %g", c.Trading.CashReserve)
	}
	if c.Trading.MinTradeSize < 0 {
		return fmt.Errorf("trading.min_trade_size must not be negative")
	}
	if c.Trading.InitialCapital <= 0 {
		return fmt.Errorf("trading.initial_capital must be positive")
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be positive")
	}
	if c.Risk.MaxDailyVolume <= 0 {
		return fmt.Errorf("risk.max_daily_volume must be positive")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be positive")
	}
	if c.Risk.StopLossPercentage <= 0 || c.Risk.StopLossPercentage >= 100 {
		return fmt.Errorf("risk.stop_loss_percentage must be between 0 and 100 exclusive")
	}
	if c.Risk.MaxPositions <= 0 {
		return fmt.Errorf("risk.max_positions must be positive")
	}
	if c.Risk.CircuitBreakerDrawdown <= 0 || c.Risk.CircuitBreakerDrawdown >= 100 {
		return fmt.Errorf("risk.circuit_breaker_drawdown must be between 0 and 100 exclusive")
	}
	return nil
}

// IsPaper reports whether the bot simulates fills instead of hitting the
// exchange's trading endpoints.
func (c *Config) IsPaper() bool { return c.Trading.Mode == "paper" }

// Interval returns the analysis interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Trading.AnalysisInterval) * time.Second
}

// envFloat overrides dst from the environment. An unparseable value is a
// configuration error, not a fallback to the default.
func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("env %s: invalid number %q", key, v)
	}
	*dst = f
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("env %s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

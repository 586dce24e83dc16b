package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramBotToken  string
	DatabaseURL       string
	RedisURL          string
	CoinGeckoPollSecs int

	// Ensemble engine tuning.
	StrategyTimeoutSecs int
	ClosenessThreshold  float64
	MinWeight           float64
	MaxWeight           float64
	EnsembleSymbols     []string
	EnsemblePollSecs    int

	// Periodic performance-based reweighting.
	RebalanceEnabled    bool
	RebalanceWindowDays int
	RebalanceHourUTC    int

	// Optional trained conflict-fusion model.
	FusionModelPath string

	// APIKey guards the mutating API routes when set.
	APIKey string

	// SSH dashboard server.
	SSHPort        int
	SSHHostKeyPath string
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		FusionModelPath:  strings.TrimSpace(os.Getenv("FUSION_MODEL_PATH")),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.CoinGeckoPollSecs = 60
	if v := os.Getenv("COINGECKO_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CoinGeckoPollSecs = n
		}
	}

	cfg.StrategyTimeoutSecs = 5
	if v := strings.TrimSpace(os.Getenv("STRATEGY_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StrategyTimeoutSecs = n
		}
	}

	cfg.ClosenessThreshold = 0.15
	if v := strings.TrimSpace(os.Getenv("CLOSENESS_THRESHOLD")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n < 1 {
			cfg.ClosenessThreshold = n
		}
	}

	cfg.MinWeight = 0.05
	if v := strings.TrimSpace(os.Getenv("MIN_WEIGHT")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n < 1 {
			cfg.MinWeight = n
		}
	}

	cfg.MaxWeight = 0.7
	if v := strings.TrimSpace(os.Getenv("MAX_WEIGHT")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > cfg.MinWeight && n <= 1 {
			cfg.MaxWeight = n
		}
	}

	cfg.EnsembleSymbols = []string{"BTC", "ETH"}
	if v := strings.TrimSpace(os.Getenv("ENSEMBLE_SYMBOLS")); v != "" {
		symbols := []string{}
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		if len(symbols) > 0 {
			cfg.EnsembleSymbols = symbols
		}
	}

	cfg.EnsemblePollSecs = 300
	if v := strings.TrimSpace(os.Getenv("ENSEMBLE_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EnsemblePollSecs = n
		}
	}

	cfg.RebalanceEnabled = !strings.EqualFold(strings.TrimSpace(os.Getenv("REBALANCE_ENABLED")), "false")

	cfg.RebalanceWindowDays = 30
	if v := strings.TrimSpace(os.Getenv("REBALANCE_WINDOW_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RebalanceWindowDays = n
		}
	}

	cfg.RebalanceHourUTC = 0
	if v := strings.TrimSpace(os.Getenv("REBALANCE_HOUR_UTC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.RebalanceHourUTC = n
		}
	}

	cfg.SSHPort = 2222
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			cfg.SSHPort = n
		}
	}

	cfg.SSHHostKeyPath = ".ssh/signal_quorum_host_key"
	if v := strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH")); v != "" {
		cfg.SSHHostKeyPath = v
	}

	return cfg
}

// StrategyTimeout is the engine-shaped view of the configured timeout.
func (c *Config) StrategyTimeout() time.Duration {
	return time.Duration(c.StrategyTimeoutSecs) * time.Second
}

// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// ServerConfig holds HTTP service settings.
type ServerConfig struct {
	HTTPPort int
}

// ClickHouseConfig locates the bar store.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Table    string
	Username string
	Password string
}

// BacktestConfig holds run defaults.
type BacktestConfig struct {
	InitialCash  float64
	LotSize      float64
	RiskFreeRate float64
}

type Config struct {
	Environment string
	Server      ServerConfig
	ClickHouse  ClickHouseConfig
	Backtest    BacktestConfig
}

// Load reads the environment, falling back to development defaults.
func Load() *Config {
	return &Config{
		Environment: env("QT_ENV", "dev"),
		Server: ServerConfig{
			HTTPPort: envInt("QT_HTTP_PORT", 8080),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     env("CH_ADDR", "localhost:9000"),
			Database: env("CH_DATABASE", "backtest"),
			Table:    env("CH_TABLE", "bars"),
			Username: env("CH_USER", "backtest"),
			Password: env("CH_PASSWORD", "backtest123"),
		},
		Backtest: BacktestConfig{
			InitialCash:  envFloat("QT_INITIAL_CASH", 1_000_000),
			LotSize:      envFloat("QT_LOT_SIZE", 100),
			RiskFreeRate: envFloat("QT_RISK_FREE_RATE", 0),
		},
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

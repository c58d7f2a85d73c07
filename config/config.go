package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"alphaTransformer/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API (optional: market-data endpoints are public)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Market Data
	Symbols    []string // e.g. ["BTCUSDT", "ETHUSDT"]
	Timeframes []string // e.g. ["3m", "1h", "4h"]
	CacheSize  int      // max klines retained per (symbol, timeframe)

	// Streaming Connection
	WSBaseURL            string        // combined-stream endpoint
	ConnectTimeout       time.Duration // handshake timeout
	PingInterval         time.Duration // keep-alive ping interval
	ReconnectDelay       time.Duration // fixed delay between reconnect attempts
	MaxReconnectAttempts int           // attempts before the stream fails terminally
	SubscribeDelay       time.Duration // pause between per-symbol subscribe requests

	// Database
	DBPath string

	// Observability
	MetricsAddr string // listen address for /metrics and /health, empty disables

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Market Data
	cfg.Symbols = getEnvAsList("SYMBOLS", []string{"BTCUSDT", "ETHUSDT"})
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}
	cfg.Timeframes = getEnvAsList("TIMEFRAMES", []string{"3m", "1h", "4h"})
	if len(cfg.Timeframes) == 0 {
		errs = append(errs, "TIMEFRAMES must list at least one timeframe")
	}

	cfg.CacheSize = getEnvAsInt("CACHE_SIZE", 100)
	if cfg.CacheSize <= 0 {
		errs = append(errs, "CACHE_SIZE must be positive")
	}

	// Streaming Connection
	cfg.WSBaseURL = getEnv("WS_BASE_URL", "wss://fstream.binance.com/stream")
	if !strings.HasPrefix(cfg.WSBaseURL, "ws://") && !strings.HasPrefix(cfg.WSBaseURL, "wss://") {
		errs = append(errs, "WS_BASE_URL must be a ws:// or wss:// URL")
	}

	connectTimeoutSeconds := getEnvAsInt("CONNECT_TIMEOUT_SECONDS", 10)
	if connectTimeoutSeconds <= 0 {
		errs = append(errs, "CONNECT_TIMEOUT_SECONDS must be positive")
	}
	cfg.ConnectTimeout = time.Duration(connectTimeoutSeconds) * time.Second

	pingIntervalSeconds := getEnvAsInt("PING_INTERVAL_SECONDS", 20)
	if pingIntervalSeconds <= 0 {
		errs = append(errs, "PING_INTERVAL_SECONDS must be positive")
	}
	cfg.PingInterval = time.Duration(pingIntervalSeconds) * time.Second

	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 3)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	subscribeDelayMs := getEnvAsInt("SUBSCRIBE_DELAY_MS", 100)
	if subscribeDelayMs < 0 {
		errs = append(errs, "SUBSCRIBE_DELAY_MS cannot be negative")
	}
	cfg.SubscribeDelay = time.Duration(subscribeDelayMs) * time.Millisecond

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/market_agent.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Observability
	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9090")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList parses a comma-separated env var, trimming whitespace and
// dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

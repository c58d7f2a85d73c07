package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log" // Use standard log only for the final fatal exit in main
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alphaTransformer/config"
	"alphaTransformer/internal/adapters/binanceclient"
	"alphaTransformer/internal/adapters/binancews"
	"alphaTransformer/internal/adapters/logger"
	"alphaTransformer/internal/adapters/sqlite"
	"alphaTransformer/internal/app"
	"alphaTransformer/internal/market"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// run wires the application together and blocks until the service stops.
// Returning an error instead of exiting keeps the deferred cleanups running
// on every failure path.
func run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Exchange Client (Binance REST Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Binance client: %w", err)
	}

	// 5. Initialize Candle Cache and Stream Ingestor
	cache := market.NewKlineCache(cfg.CacheSize)
	ingestor, err := binancews.NewStreamIngestor(binancews.Config{
		BaseURL:              cfg.WSBaseURL,
		ConnectTimeout:       cfg.ConnectTimeout,
		PingInterval:         cfg.PingInterval,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		SubscribeDelay:       cfg.SubscribeDelay,
		Logger:               appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize stream ingestor: %w", err)
	}

	// 6. Initialize Application Service
	service, err := app.NewMarketDataService(cfg, appLogger, binanceClient, ingestor, cache, repo)
	if err != nil {
		return fmt.Errorf("failed to initialize market data service: %w", err)
	}
	appLogger.Info(context.Background(), "Market data service initialized")

	// 7. Expose metrics and health endpoints
	if cfg.MetricsAddr != "" {
		go serveObservability(cfg.MetricsAddr, appLogger, service)
	}

	// 8. Start the Service
	if err := service.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Market data service exited with error")
		return fmt.Errorf("market data service exited with error: %w", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
	return nil
}

func serveObservability(addr string, appLogger *logger.StdLogger, service *app.MarketDataService) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		diag := service.Diagnostics()
		w.Header().Set("Content-Type", "application/json")
		if !diag.Connection.Connected() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(diag); err != nil {
			appLogger.Error(r.Context(), err, "Failed to encode health response")
		}
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	appLogger.Info(context.Background(), "Observability endpoints listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		appLogger.Error(context.Background(), err, "Observability server failed")
	}
}

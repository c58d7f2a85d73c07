package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alphaTransformer/config"
	"alphaTransformer/internal/analysis"
	"alphaTransformer/internal/domain"
	"alphaTransformer/internal/market"
	"alphaTransformer/internal/metrics"
	"alphaTransformer/internal/ports"
)

// MarketDataService orchestrates the market data pipeline: historical
// bootstrap, live stream ingestion into the candle cache, and on-demand
// multi-timeframe analysis for downstream consumers.
type MarketDataService struct {
	cfg        *config.Config
	logger     ports.Logger
	historical ports.HistoricalDataProvider
	streamer   ports.KlineStreamer
	cache      *market.KlineCache
	engine     *analysis.Engine
	aggregator *analysis.Aggregator
	repo       ports.AnalysisRepository // optional; nil disables persistence
}

// NewMarketDataService creates a new application service instance.
func NewMarketDataService(
	cfg *config.Config,
	logger ports.Logger,
	historical ports.HistoricalDataProvider,
	streamer ports.KlineStreamer,
	cache *market.KlineCache,
	repo ports.AnalysisRepository,
) (*MarketDataService, error) {
	if cfg == nil || logger == nil || historical == nil || streamer == nil || cache == nil {
		return nil, fmt.Errorf("missing required dependencies for MarketDataService")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("configuration Symbols must not be empty")
	}
	if len(cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("configuration Timeframes must not be empty")
	}

	return &MarketDataService{
		cfg:        cfg,
		logger:     logger,
		historical: historical,
		streamer:   streamer,
		cache:      cache,
		engine:     analysis.NewEngine(logger),
		aggregator: analysis.NewAggregator(),
		repo:       repo,
	}, nil
}

// Bootstrap pre-populates the candle cache from the historical REST API.
// A failed symbol/timeframe pair is logged and skipped; the stream fills the
// gap as live candles arrive.
func (s *MarketDataService) Bootstrap(ctx context.Context) error {
	if err := s.historical.Ping(ctx); err != nil {
		return fmt.Errorf("exchange is unreachable: %w", err)
	}

	for _, symbol := range s.cfg.Symbols {
		for _, tf := range s.cfg.Timeframes {
			klines, err := s.historical.GetKlines(ctx, symbol, tf, s.cfg.CacheSize)
			if err != nil {
				s.logger.Warn(ctx, "Historical bootstrap failed for series, continuing", map[string]interface{}{
					"symbol":    symbol,
					"timeframe": tf,
					"error":     err.Error(),
				})
				continue
			}
			for _, k := range klines {
				s.cache.Upsert(k)
			}
			s.logger.Info(ctx, "Series bootstrapped", map[string]interface{}{
				"symbol":    symbol,
				"timeframe": tf,
				"klines":    len(klines),
			})
		}
	}
	return nil
}

// Start runs the full pipeline until the context is canceled, a shutdown
// signal arrives, or the stream fails terminally.
func (s *MarketDataService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Market Data Service...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.Bootstrap(ctx); err != nil {
		s.logger.Error(ctx, err, "Historical bootstrap failed")
		return err
	}

	s.streamer.AddListener(ports.KlineListenerFunc(func(k *domain.Kline) {
		s.cache.Upsert(k)
	}))

	// An initial connection failure is fatal: better to crash at startup
	// than to run with no data source.
	if err := s.streamer.Connect(ctx); err != nil {
		s.logger.Error(ctx, err, "Initial stream connection failed")
		return fmt.Errorf("failed to connect to the stream: %w", err)
	}
	if err := s.streamer.SubscribeAll(ctx, s.cfg.Symbols, s.cfg.Timeframes); err != nil {
		s.streamer.Disconnect()
		s.logger.Error(ctx, err, "Stream subscription failed")
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- s.streamer.Run(ctx) }()

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Shutting down Market Data Service")
		s.streamer.Disconnect()
		<-runErr
		return nil
	case err := <-runErr:
		if err != nil {
			s.logger.Error(ctx, err, "Stream terminated")
			return err
		}
		return nil
	}
}

// GetMultiTimeframeAnalysis computes the indicator snapshot for every
// configured timeframe of a symbol plus the cross-timeframe consensus.
// Timeframes with no cached candles are omitted rather than reported as
// errors.
func (s *MarketDataService) GetMultiTimeframeAnalysis(ctx context.Context, symbol string) (*domain.MultiTimeframeAnalysis, error) {
	result := &domain.MultiTimeframeAnalysis{
		Symbol:     symbol,
		Timeframes: make(map[string]*domain.TimeframeSnapshot, len(s.cfg.Timeframes)),
		AnalyzedAt: time.Now().UTC(),
	}

	for _, tf := range s.cfg.Timeframes {
		klines := s.cache.GetKlines(symbol, tf, 0)
		snapshot := s.engine.ComputeSnapshot(ctx, klines)
		if snapshot == nil {
			s.logger.Debug(ctx, "No cached candles for timeframe, skipping", map[string]interface{}{
				"symbol":    symbol,
				"timeframe": tf,
			})
			continue
		}
		result.Timeframes[tf] = snapshot
	}

	if len(result.Timeframes) == 0 {
		return nil, fmt.Errorf("no data for symbol %s: %w", symbol, ports.ErrNotFound)
	}

	result.OverallSignals = s.aggregator.Aggregate(result.Timeframes)
	metrics.AnalysesComputed.WithLabelValues(symbol).Inc()

	s.persist(ctx, result)
	return result, nil
}

// persist stores the analysis when a repository is wired in. Persistence
// failures never fail the analysis itself.
func (s *MarketDataService) persist(ctx context.Context, result *domain.MultiTimeframeAnalysis) {
	if s.repo == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to encode analysis for persistence", map[string]interface{}{"symbol": result.Symbol})
		return
	}

	rec := &domain.AnalysisRecord{
		Symbol:     result.Symbol,
		Payload:    string(payload),
		AnalyzedAt: result.AnalyzedAt,
	}
	if result.OverallSignals != nil {
		rec.TrendDirection = result.OverallSignals.TrendDirection
		if result.OverallSignals.TrendConsistency != nil {
			rec.TrendConsistency = *result.OverallSignals.TrendConsistency
		}
	}

	if _, err := s.repo.SaveAnalysis(ctx, rec); err != nil {
		s.logger.Error(ctx, err, "Failed to persist analysis", map[string]interface{}{"symbol": result.Symbol})
	}
}

// Diagnostics reports cache and connection health.
type Diagnostics struct {
	Cache      market.CacheInfo        `json:"cache"`
	Connection domain.ConnectionStatus `json:"connection"`
}

// Diagnostics returns per-series counts and the stream connection status.
func (s *MarketDataService) Diagnostics() Diagnostics {
	return Diagnostics{
		Cache:      s.cache.Info(),
		Connection: s.streamer.Status(),
	}
}

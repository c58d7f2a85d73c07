package ports

import (
	"context"

	"alphaTransformer/internal/domain"
)

// HistoricalDataProvider fetches historical klines from an exchange REST API.
// The core consumes it once at startup to pre-populate the candle cache.
type HistoricalDataProvider interface {
	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetKlines retrieves up to limit historical klines for the given symbol
	// and interval, ordered by open time ascending. All returned klines are
	// final.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)
}

// KlineListener receives every normalized kline parsed from the stream,
// live and final alike. Listeners are invoked synchronously in registration
// order; a panicking listener is isolated and must not break ingestion.
type KlineListener interface {
	OnKline(kline *domain.Kline)
}

// KlineListenerFunc adapts a plain function to the KlineListener interface.
type KlineListenerFunc func(kline *domain.Kline)

func (f KlineListenerFunc) OnKline(kline *domain.Kline) { f(kline) }

// KlineStreamer manages a persistent streaming connection delivering kline
// updates into the candle cache and to registered listeners.
type KlineStreamer interface {
	// Connect opens the streaming connection. Failure here is fatal to
	// initial startup; the caller decides whether to abort.
	Connect(ctx context.Context) error

	// SubscribeAll issues one batched kline subscription per symbol covering
	// all timeframes. Per-symbol failures are logged and skipped.
	SubscribeAll(ctx context.Context, symbols, timeframes []string) error

	// Run blocks receiving frames until the connection is closed by
	// Disconnect, the context is canceled, or reconnection attempts are
	// exhausted (ErrStreamTerminated).
	Run(ctx context.Context) error

	// Disconnect closes the underlying connection. Safe to call concurrently
	// with an active Run loop; the blocked receive unblocks immediately.
	Disconnect()

	// Status returns a copy of the current connection status.
	Status() domain.ConnectionStatus

	// AddListener registers a downstream kline listener.
	AddListener(listener KlineListener)
}

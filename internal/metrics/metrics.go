// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline. Metrics register on the default registry; main serves them via
// promhttp next to the health endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"alphaTransformer/internal/domain"
)

var (
	// KlinesReceived counts normalized kline updates taken off the stream.
	KlinesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_klines_received_total",
		Help: "Kline updates received from the stream, by symbol and interval",
	}, []string{"symbol", "interval"})

	// FinalKlines counts exchange-confirmed closed candles.
	FinalKlines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_final_klines_total",
		Help: "Finalized klines received from the stream, by symbol and interval",
	}, []string{"symbol", "interval"})

	// MalformedFrames counts frames that failed envelope or field parsing.
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketdata_malformed_frames_total",
		Help: "Stream frames dropped due to parse failures",
	})

	// StaleDrops counts cache updates rejected as out of order or as late
	// duplicates of a finalized candle.
	StaleDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_stale_drops_total",
		Help: "Kline updates dropped by the cache as stale, by symbol and interval",
	}, []string{"symbol", "interval"})

	// CachedCandles reports the current length of each cached series.
	CachedCandles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "marketdata_cached_candles",
		Help: "Klines currently held per symbol and interval",
	}, []string{"symbol", "interval"})

	// Reconnects counts reconnection attempts of the stream ingestor.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketdata_ws_reconnects_total",
		Help: "WebSocket reconnection attempts",
	})

	// ConnState reports the ingestor state machine position.
	ConnState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketdata_ws_connection_state",
		Help: "Connection state (0=disconnected 1=connecting 2=connected 3=reconnecting 4=terminally_failed)",
	})

	// AnalysesComputed counts completed multi-timeframe analyses.
	AnalysesComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_analyses_total",
		Help: "Multi-timeframe analyses computed, by symbol",
	}, []string{"symbol"})
)

// SetConnState records the state machine position as a gauge value.
func SetConnState(state domain.ConnectionState) {
	var v float64
	switch state {
	case domain.StateDisconnected:
		v = 0
	case domain.StateConnecting:
		v = 1
	case domain.StateConnected:
		v = 2
	case domain.StateReconnecting:
		v = 3
	case domain.StateTerminallyFailed:
		v = 4
	}
	ConnState.Set(v)
}

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphaTransformer/internal/domain"
)

func fp(v float64) *float64 { return &v }

func trendSnapshot(ema20, ema50 float64) *domain.TimeframeSnapshot {
	return &domain.TimeframeSnapshot{EMA20: fp(ema20), EMA50: fp(ema50)}
}

func TestAggregator_TrendConsensus(t *testing.T) {
	agg := NewAggregator()

	t.Run("all timeframes bullish", func(t *testing.T) {
		signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{
			"3m": trendSnapshot(101, 100),
			"1h": trendSnapshot(205, 200),
			"4h": trendSnapshot(310, 300),
		})
		require.NotNil(t, signal)
		require.NotNil(t, signal.TrendConsistency)
		assert.Equal(t, 1.0, *signal.TrendConsistency)
		assert.Equal(t, domain.TrendUp, signal.TrendDirection)
	})

	t.Run("one of three bullish", func(t *testing.T) {
		signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{
			"3m": trendSnapshot(101, 100),
			"1h": trendSnapshot(195, 200),
			"4h": trendSnapshot(290, 300),
		})
		require.NotNil(t, signal)
		require.NotNil(t, signal.TrendConsistency)
		assert.InDelta(t, 1.0/3.0, *signal.TrendConsistency, 1e-9)
		assert.Equal(t, domain.TrendDown, signal.TrendDirection)
	})

	t.Run("boundaries read choppy", func(t *testing.T) {
		// 3 of 5 bullish: consistency exactly 0.6.
		signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{
			"a": trendSnapshot(2, 1),
			"b": trendSnapshot(2, 1),
			"c": trendSnapshot(2, 1),
			"d": trendSnapshot(1, 2),
			"e": trendSnapshot(1, 2),
		})
		require.NotNil(t, signal)
		assert.Equal(t, 0.6, *signal.TrendConsistency)
		assert.Equal(t, domain.TrendChoppy, signal.TrendDirection)

		// 2 of 5 bullish: consistency exactly 0.4.
		signal = agg.Aggregate(map[string]*domain.TimeframeSnapshot{
			"a": trendSnapshot(2, 1),
			"b": trendSnapshot(2, 1),
			"c": trendSnapshot(1, 2),
			"d": trendSnapshot(1, 2),
			"e": trendSnapshot(1, 2),
		})
		require.NotNil(t, signal)
		assert.Equal(t, 0.4, *signal.TrendConsistency)
		assert.Equal(t, domain.TrendChoppy, signal.TrendDirection)
	})

	t.Run("timeframes missing an EMA are excluded", func(t *testing.T) {
		signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{
			"3m": trendSnapshot(101, 100),
			"1h": {EMA20: fp(100)}, // no slow EMA yet
		})
		require.NotNil(t, signal)
		require.NotNil(t, signal.TrendConsistency)
		assert.Equal(t, 1.0, *signal.TrendConsistency)
	})
}

func TestAggregator_RSIAndRegime(t *testing.T) {
	agg := NewAggregator()
	signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{
		"3m": {RSI7: fp(75), RSI14: fp(20), ADX: fp(30)},
		"1h": {RSI7: fp(80), RSI14: fp(28), ADX: fp(40)},
	})
	require.NotNil(t, signal)

	require.NotNil(t, signal.AvgRSI7)
	assert.Equal(t, 77.5, *signal.AvgRSI7)
	assert.Equal(t, domain.SignalOverbought, signal.RSI7Signal)

	require.NotNil(t, signal.AvgRSI14)
	assert.Equal(t, 24.0, *signal.AvgRSI14)
	assert.Equal(t, domain.SignalOversold, signal.RSI14Signal)

	require.NotNil(t, signal.AvgADX)
	assert.Equal(t, 35.0, *signal.AvgADX)
	assert.Equal(t, domain.RegimeStrongTrend, signal.MarketRegime)
}

func TestAggregator_RegimeBoundaries(t *testing.T) {
	agg := NewAggregator()

	signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{"1h": {ADX: fp(22)}})
	require.NotNil(t, signal)
	assert.Equal(t, domain.RegimeModerateTrend, signal.MarketRegime)

	signal = agg.Aggregate(map[string]*domain.TimeframeSnapshot{"1h": {ADX: fp(15)}})
	require.NotNil(t, signal)
	assert.Equal(t, domain.RegimeRanging, signal.MarketRegime)
}

func TestAggregator_MACDConsensus(t *testing.T) {
	agg := NewAggregator()

	signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{
		"3m": {MACDHistogram: fp(1.5)},
		"1h": {MACDHistogram: fp(-0.5)},
	})
	require.NotNil(t, signal)
	assert.Equal(t, domain.SignalBullish, signal.MACDConsensus)

	signal = agg.Aggregate(map[string]*domain.TimeframeSnapshot{
		"3m": {MACDHistogram: fp(-1)},
		"1h": {MACDHistogram: fp(1)},
	})
	require.NotNil(t, signal)
	assert.Equal(t, domain.SignalBearish, signal.MACDConsensus, "a zero mean does not read bullish")
}

func TestAggregator_BollingerConsensus(t *testing.T) {
	agg := NewAggregator()
	signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{
		"3m": {BBPosition: fp(0.9)},
		"1h": {BBPosition: fp(0.85)},
	})
	require.NotNil(t, signal)
	require.NotNil(t, signal.AvgBBPosition)
	assert.InDelta(t, 0.875, *signal.AvgBBPosition, 1e-9)
	assert.Equal(t, domain.SignalOverbought, signal.BBSignal)
}

func TestAggregator_OBVConsensus(t *testing.T) {
	agg := NewAggregator()

	signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{
		"3m": {OBVTrend: domain.SignalBullish},
		"1h": {OBVTrend: domain.SignalBullish},
		"4h": {OBVTrend: domain.SignalBearish},
	})
	require.NotNil(t, signal)
	assert.Equal(t, domain.SignalBullish, signal.OBVConsensus)

	signal = agg.Aggregate(map[string]*domain.TimeframeSnapshot{
		"3m": {OBVTrend: domain.SignalBullish},
		"1h": {OBVTrend: domain.SignalBearish},
	})
	require.NotNil(t, signal)
	assert.Equal(t, domain.SignalNeutral, signal.OBVConsensus, "ties read neutral")
}

func TestAggregator_AbsentMetricsStayAbsent(t *testing.T) {
	agg := NewAggregator()

	assert.Nil(t, agg.Aggregate(nil))
	assert.Nil(t, agg.Aggregate(map[string]*domain.TimeframeSnapshot{"3m": nil}))

	// A snapshot with no indicator values contributes to nothing.
	signal := agg.Aggregate(map[string]*domain.TimeframeSnapshot{"3m": {CurrentPrice: 100}})
	require.NotNil(t, signal)
	assert.Nil(t, signal.TrendConsistency)
	assert.Empty(t, signal.TrendDirection)
	assert.Nil(t, signal.AvgRSI7)
	assert.Empty(t, signal.MACDConsensus)
	assert.Nil(t, signal.AvgADX)
	assert.Nil(t, signal.AvgBBPosition)
	assert.Empty(t, signal.OBVConsensus)
}

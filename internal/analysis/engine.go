package analysis

import (
	"context"

	"alphaTransformer/internal/analysis/indicators"
	"alphaTransformer/internal/domain"
	"alphaTransformer/internal/ports"
)

// Engine computes the full indicator set for one timeframe's candle series.
// It is stateless apart from its configured indicator instances and safe for
// concurrent use: every call works on the snapshot it is handed.
//
// Indicators that cannot form yet because the series is too short are left
// nil on the snapshot. That is the normal warm-up condition, not a failure.
type Engine struct {
	logger ports.Logger

	ema20  *indicators.MovingAverage
	ema50  *indicators.MovingAverage
	macd   *indicators.MACD
	rsi7   *indicators.RSI
	rsi14  *indicators.RSI
	natr   *indicators.NATR
	bands  *indicators.Bollinger
	adx    *indicators.ADX
	obv    *indicators.OBV
	vwap   *indicators.VWAP
	levels *indicators.SupportResistance
}

// NewEngine creates an indicator engine with the standard parameter set:
// EMA 20/50, MACD 12/26/9, RSI 7/14, NATR 14, Bollinger 20/2, ADX 14,
// OBV with a 5-point trend, VWAP over up to 50 candles and 20-candle
// support/resistance levels.
func NewEngine(logger ports.Logger) *Engine {
	ema := func(period int) *indicators.MovingAverage {
		return indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: period},
			Type:            indicators.ExponentialMovingAverage,
		})
	}
	rsi := func(period int) *indicators.RSI {
		return indicators.NewRSI(indicators.RSIConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: period},
			Overbought:      70,
			Oversold:        30,
		})
	}

	return &Engine{
		logger: logger,
		ema20:  ema(20),
		ema50:  ema(50),
		macd:   indicators.NewMACD(indicators.MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}),
		rsi7:   rsi(7),
		rsi14:  rsi(14),
		natr:   indicators.NewNATR(indicators.NATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: 14}}),
		bands:  indicators.NewBollinger(indicators.BollingerConfig{IndicatorConfig: indicators.IndicatorConfig{Period: 20}, StdDevMultiplier: 2}),
		adx:    indicators.NewADX(indicators.ADXConfig{IndicatorConfig: indicators.IndicatorConfig{Period: 14}}),
		obv:    indicators.NewOBV(indicators.OBVConfig{TrendLookback: 5}),
		vwap:   indicators.NewVWAP(indicators.VWAPConfig{MaxLookback: 50}),
		levels: indicators.NewSupportResistance(indicators.SupportResistanceConfig{IndicatorConfig: indicators.IndicatorConfig{Period: 20}}),
	}
}

// ComputeSnapshot derives the indicator snapshot for one timeframe. A nil
// result means the series held no candles at all.
func (e *Engine) ComputeSnapshot(ctx context.Context, klines []*domain.Kline) *domain.TimeframeSnapshot {
	if len(klines) == 0 {
		return nil
	}

	first := klines[0]
	last := klines[len(klines)-1]
	snapshot := &domain.TimeframeSnapshot{
		CurrentPrice:   last.Close,
		PriceChange:    last.Close - first.Close,
		DataPoints:     len(klines),
		LatestOpenTime: last.OpenTime,
	}
	if first.Close != 0 {
		snapshot.PriceChangePercent = (last.Close - first.Close) / first.Close * 100
	}

	snapshot.EMA20 = e.value(ctx, klines, e.ema20.Calculate)
	snapshot.EMA50 = e.value(ctx, klines, e.ema50.Calculate)
	snapshot.RSI7 = e.value(ctx, klines, e.rsi7.Calculate)
	snapshot.RSI14 = e.value(ctx, klines, e.rsi14.Calculate)
	snapshot.NATR = e.value(ctx, klines, e.natr.Calculate)
	snapshot.OBV = e.value(ctx, klines, e.obv.Calculate)
	snapshot.VWAP = e.value(ctx, klines, e.vwap.Calculate)

	e.computeMACD(ctx, klines, snapshot)
	e.computeBands(ctx, klines, snapshot)
	e.computeLevels(ctx, klines, snapshot)

	if snapshot.ADX = e.value(ctx, klines, e.adx.Calculate); snapshot.ADX != nil {
		snapshot.TrendStrength = trendStrengthLabel(*snapshot.ADX)
	}
	if trend, err := e.obv.Trend(ctx, klines); err == nil {
		snapshot.OBVTrend = trend
	}
	if snapshot.VWAP != nil && *snapshot.VWAP != 0 {
		ratio := (snapshot.CurrentPrice - *snapshot.VWAP) / *snapshot.VWAP * 100
		snapshot.VWAPRatio = &ratio
	}

	return snapshot
}

// value runs one indicator and maps a too-short series onto a nil field.
func (e *Engine) value(ctx context.Context, klines []*domain.Kline, calc func(context.Context, []*domain.Kline) (float64, error)) *float64 {
	v, err := calc(ctx, klines)
	if err != nil {
		return nil
	}
	return &v
}

func (e *Engine) computeMACD(ctx context.Context, klines []*domain.Kline, snapshot *domain.TimeframeSnapshot) {
	// The line forms before the signal EMA has enough history; report what
	// is available.
	line, err := e.macd.Line(ctx, klines)
	if err != nil {
		return
	}
	snapshot.MACDLine = &line

	_, signal, histogram, err := e.macd.Values(ctx, klines)
	if err != nil {
		return
	}
	snapshot.MACDSignal = &signal
	snapshot.MACDHistogram = &histogram
}

func (e *Engine) computeBands(ctx context.Context, klines []*domain.Kline, snapshot *domain.TimeframeSnapshot) {
	upper, middle, lower, err := e.bands.Values(ctx, klines)
	if err != nil {
		return
	}
	snapshot.BBUpper = &upper
	snapshot.BBMiddle = &middle
	snapshot.BBLower = &lower

	position := e.bands.Position(snapshot.CurrentPrice, upper, lower)
	snapshot.BBPosition = &position
	snapshot.BBSignal = BandPositionLabel(position)
}

func (e *Engine) computeLevels(ctx context.Context, klines []*domain.Kline, snapshot *domain.TimeframeSnapshot) {
	support, resistance, err := e.levels.Levels(ctx, klines)
	if err != nil {
		return
	}
	snapshot.SupportLevel = &support
	snapshot.ResistanceLevel = &resistance

	priceRange := resistance - support
	if priceRange == 0 {
		return
	}
	toSupport := (snapshot.CurrentPrice - support) / priceRange * 100
	toResistance := (resistance - snapshot.CurrentPrice) / priceRange * 100
	snapshot.DistanceToSupportPct = &toSupport
	snapshot.DistanceToResistancePct = &toResistance
}

// BandPositionLabel classifies a Bollinger band position.
func BandPositionLabel(position float64) string {
	switch {
	case position > 0.8:
		return domain.SignalOverbought
	case position < 0.2:
		return domain.SignalOversold
	default:
		return domain.SignalNormal
	}
}

func trendStrengthLabel(adx float64) string {
	switch {
	case adx > 25:
		return domain.TrendStrengthStrong
	case adx < 20:
		return domain.TrendStrengthWeak
	default:
		return domain.TrendStrengthModerate
	}
}

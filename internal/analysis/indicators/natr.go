package indicators

import (
	"context"
	"fmt"
	"math"

	"alphaTransformer/internal/domain"
)

// NATRConfig holds configuration for the Normalized Average True Range indicator
type NATRConfig struct {
	IndicatorConfig
}

// NATR implements the Normalized Average True Range: the ATR expressed as a
// percentage of the latest close, comparable across symbols and price levels.
type NATR struct {
	config NATRConfig
}

// NewNATR creates a new Normalized ATR indicator instance
func NewNATR(config NATRConfig) *NATR {
	return &NATR{config: config}
}

// Name returns the name of the indicator
func (n *NATR) Name() string {
	return "NATR"
}

// RequiredDataPoints returns the minimum number of klines needed. The first
// true range uses the previous close, so one extra candle is required.
func (n *NATR) RequiredDataPoints() int {
	return n.config.Period + 1
}

// Calculate computes the NATR value for the given klines
func (n *NATR) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	period := n.config.Period
	if len(klines) < period+1 {
		return 0, fmt.Errorf("not enough data points for NATR calculation: need %d, got %d", period+1, len(klines))
	}

	lastClose := klines[len(klines)-1].Close
	if lastClose == 0 {
		return 0, fmt.Errorf("cannot normalize ATR against a zero close price")
	}

	trueRanges := make([]float64, len(klines))
	trueRanges[0] = klines[0].High - klines[0].Low

	for i := 1; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)

		trueRanges[i] = math.Max(tr1, math.Max(tr2, tr3))
	}

	// Wilder's smoothing: simple average over the first period, then smoothed.
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(klines); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return atr / lastClose * 100, nil
}

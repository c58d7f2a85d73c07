package indicators

import (
	"context"
	"fmt"

	"alphaTransformer/internal/domain"
)

// OBVConfig holds configuration for the On-Balance Volume indicator
type OBVConfig struct {
	// TrendLookback is how many recent OBV points feed the trend slope.
	TrendLookback int
}

// OBV implements On-Balance Volume: a running volume total that adds the
// candle volume on up closes and subtracts it on down closes.
type OBV struct {
	config OBVConfig
}

// NewOBV creates a new On-Balance Volume indicator instance. A zero lookback
// falls back to 5 points.
func NewOBV(config OBVConfig) *OBV {
	if config.TrendLookback <= 0 {
		config.TrendLookback = 5
	}
	return &OBV{config: config}
}

// Name returns the name of the indicator
func (o *OBV) Name() string {
	return "OBV"
}

// RequiredDataPoints returns the minimum number of klines needed
func (o *OBV) RequiredDataPoints() int {
	return 2
}

// Calculate computes the latest OBV value for the given klines
func (o *OBV) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	series, err := o.series(klines)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// Trend classifies the recent OBV slope using a least-squares fit over the
// last TrendLookback points: bullish when volume flows in, bearish when it
// flows out, neutral on a flat slope.
func (o *OBV) Trend(ctx context.Context, klines []*domain.Kline) (string, error) {
	series, err := o.series(klines)
	if err != nil {
		return "", err
	}
	if len(series) < o.config.TrendLookback {
		return "", fmt.Errorf("not enough OBV points (%d) for trend lookback %d", len(series), o.config.TrendLookback)
	}

	window := series[len(series)-o.config.TrendLookback:]
	slope := linearSlope(window)
	switch {
	case slope > 0:
		return domain.SignalBullish, nil
	case slope < 0:
		return domain.SignalBearish, nil
	default:
		return domain.SignalNeutral, nil
	}
}

func (o *OBV) series(klines []*domain.Kline) ([]float64, error) {
	if len(klines) < 2 {
		return nil, fmt.Errorf("not enough data (%d) to calculate OBV", len(klines))
	}

	out := make([]float64, len(klines))
	for i := 1; i < len(klines); i++ {
		switch {
		case klines[i].Close > klines[i-1].Close:
			out[i] = out[i-1] + klines[i].Volume
		case klines[i].Close < klines[i-1].Close:
			out[i] = out[i-1] - klines[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out, nil
}

// linearSlope fits y = a + b*x over evenly spaced points and returns b.
func linearSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

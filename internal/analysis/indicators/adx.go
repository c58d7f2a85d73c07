package indicators

import (
	"context"
	"fmt"
	"math"

	"alphaTransformer/internal/domain"
)

// ADXConfig holds configuration for the Average Directional Index indicator
type ADXConfig struct {
	IndicatorConfig
}

// ADX implements the Average Directional Index, a measure of trend strength
// regardless of direction, using Wilder's smoothing throughout.
type ADX struct {
	config ADXConfig
}

// NewADX creates a new ADX indicator instance
func NewADX(config ADXConfig) *ADX {
	return &ADX{config: config}
}

// Name returns the name of the indicator
func (a *ADX) Name() string {
	return "ADX"
}

// RequiredDataPoints returns the minimum number of klines needed. One extra
// candle forms the first directional move; the reading keeps stabilizing as
// more history accumulates.
func (a *ADX) RequiredDataPoints() int {
	return a.config.Period + 1
}

// Calculate computes the ADX value for the given klines
func (a *ADX) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	period := a.config.Period
	if len(klines) < period+1 {
		return 0, fmt.Errorf("not enough data points for ADX calculation: need %d, got %d", period+1, len(klines))
	}

	n := len(klines)
	trs := make([]float64, n-1)
	plusDMs := make([]float64, n-1)
	minusDMs := make([]float64, n-1)

	for i := 1; i < n; i++ {
		high := klines[i].High
		low := klines[i].Low
		prevHigh := klines[i-1].High
		prevLow := klines[i-1].Low
		prevClose := klines[i-1].Close

		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)
		trs[i-1] = math.Max(tr1, math.Max(tr2, tr3))

		upMove := high - prevHigh
		downMove := prevLow - low
		if upMove > downMove && upMove > 0 {
			plusDMs[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDMs[i-1] = downMove
		}
	}

	// Initial Wilder sums over the first period.
	var trSum, plusSum, minusSum float64
	for i := 0; i < period; i++ {
		trSum += trs[i]
		plusSum += plusDMs[i]
		minusSum += minusDMs[i]
	}

	dx := func() float64 {
		if trSum == 0 {
			return 0
		}
		plusDI := 100 * plusSum / trSum
		minusDI := 100 * minusSum / trSum
		sum := plusDI + minusDI
		if sum == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / sum
	}

	dxValues := make([]float64, 0, len(trs)-period+1)
	dxValues = append(dxValues, dx())

	for i := period; i < len(trs); i++ {
		trSum = trSum - trSum/float64(period) + trs[i]
		plusSum = plusSum - plusSum/float64(period) + plusDMs[i]
		minusSum = minusSum - minusSum/float64(period) + minusDMs[i]
		dxValues = append(dxValues, dx())
	}

	// First ADX averages the available DX values, up to a full period, then
	// Wilder-smooths over the rest.
	seed := period
	if len(dxValues) < seed {
		seed = len(dxValues)
	}
	adx := 0.0
	for i := 0; i < seed; i++ {
		adx += dxValues[i]
	}
	adx /= float64(seed)

	for i := seed; i < len(dxValues); i++ {
		adx = (adx*float64(period-1) + dxValues[i]) / float64(period)
	}

	return adx, nil
}

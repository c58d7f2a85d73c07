package indicators

import (
	"context"
	"fmt"
	"math"

	"alphaTransformer/internal/domain"
)

// BollingerConfig holds configuration for the Bollinger Bands indicator
type BollingerConfig struct {
	IndicatorConfig
	StdDevMultiplier float64
}

// Bollinger implements Bollinger Bands: an SMA middle band with upper and
// lower bands offset by a multiple of the population standard deviation.
type Bollinger struct {
	BaseIndicator
	config BollingerConfig
}

// NewBollinger creates a new Bollinger Bands indicator instance. A zero
// multiplier falls back to the conventional 2.0.
func NewBollinger(config BollingerConfig) *Bollinger {
	if config.StdDevMultiplier <= 0 {
		config.StdDevMultiplier = 2.0
	}
	return &Bollinger{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (b *Bollinger) Name() string {
	return "BollingerBands"
}

// Calculate returns the middle band, satisfying the Indicator interface.
func (b *Bollinger) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	_, middle, _, err := b.Values(ctx, klines)
	return middle, err
}

// Values computes the upper, middle and lower bands over the most recent
// period closes.
func (b *Bollinger) Values(ctx context.Context, klines []*domain.Kline) (upper, middle, lower float64, err error) {
	period := b.Config.Period
	if len(klines) < period {
		return 0, 0, 0, fmt.Errorf("not enough data (%d) to calculate Bollinger Bands for period %d", len(klines), period)
	}

	window := klines[len(klines)-period:]
	sum := 0.0
	for _, k := range window {
		sum += k.Close
	}
	middle = sum / float64(period)

	variance := 0.0
	for _, k := range window {
		d := k.Close - middle
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(period))

	upper = middle + b.config.StdDevMultiplier*stdDev
	lower = middle - b.config.StdDevMultiplier*stdDev
	return upper, middle, lower, nil
}

// Position reports where price sits within the bands on a 0..1 scale.
// Values outside the bands fall outside that range. A degenerate band with
// zero width reports 0.5.
func (b *Bollinger) Position(price, upper, lower float64) float64 {
	width := upper - lower
	if width == 0 {
		return 0.5
	}
	return (price - lower) / width
}

package indicators

import (
	"context"
	"fmt"

	"alphaTransformer/internal/domain"
)

// SupportResistanceConfig holds configuration for the support/resistance scan
type SupportResistanceConfig struct {
	IndicatorConfig
}

// SupportResistance finds the nearest support and resistance levels as the
// extreme low and high over the lookback window.
type SupportResistance struct {
	BaseIndicator
}

// NewSupportResistance creates a new support/resistance indicator instance
func NewSupportResistance(config SupportResistanceConfig) *SupportResistance {
	return &SupportResistance{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
	}
}

// Name returns the name of the indicator
func (s *SupportResistance) Name() string {
	return "SupportResistance"
}

// Calculate returns the support level, satisfying the Indicator interface.
func (s *SupportResistance) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	support, _, err := s.Levels(ctx, klines)
	return support, err
}

// Levels computes the support (lowest low) and resistance (highest high)
// over the most recent period candles.
func (s *SupportResistance) Levels(ctx context.Context, klines []*domain.Kline) (support, resistance float64, err error) {
	period := s.Config.Period
	if len(klines) < period {
		return 0, 0, fmt.Errorf("not enough data (%d) to find levels for period %d", len(klines), period)
	}

	window := klines[len(klines)-period:]
	support = window[0].Low
	resistance = window[0].High
	for _, k := range window[1:] {
		if k.Low < support {
			support = k.Low
		}
		if k.High > resistance {
			resistance = k.High
		}
	}
	return support, resistance, nil
}

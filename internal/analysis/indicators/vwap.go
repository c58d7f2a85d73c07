package indicators

import (
	"context"
	"fmt"

	"alphaTransformer/internal/domain"
)

// VWAPConfig holds configuration for the Volume Weighted Average Price indicator
type VWAPConfig struct {
	// MaxLookback caps how many recent candles contribute. When fewer are
	// available the whole series is used.
	MaxLookback int
}

// VWAP implements a rolling Volume Weighted Average Price over recent candles
// using the typical price (high+low+close)/3.
type VWAP struct {
	config VWAPConfig
}

// NewVWAP creates a new VWAP indicator instance. A zero lookback falls back
// to 50 candles.
func NewVWAP(config VWAPConfig) *VWAP {
	if config.MaxLookback <= 0 {
		config.MaxLookback = 50
	}
	return &VWAP{config: config}
}

// Name returns the name of the indicator
func (v *VWAP) Name() string {
	return "VWAP"
}

// RequiredDataPoints returns the minimum number of klines needed
func (v *VWAP) RequiredDataPoints() int {
	return 1
}

// Calculate computes the VWAP over the most recent candles
func (v *VWAP) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	if len(klines) == 0 {
		return 0, fmt.Errorf("not enough data (0) to calculate VWAP")
	}

	window := klines
	if len(window) > v.config.MaxLookback {
		window = window[len(window)-v.config.MaxLookback:]
	}

	var weighted, totalVolume float64
	for _, k := range window {
		typical := (k.High + k.Low + k.Close) / 3
		weighted += typical * k.Volume
		totalVolume += k.Volume
	}

	if totalVolume == 0 {
		return 0, fmt.Errorf("cannot calculate VWAP with zero total volume")
	}
	return weighted / totalVolume, nil
}

package indicators

import (
	"context"
	"fmt"

	"alphaTransformer/internal/domain"
)

// MACDConfig holds configuration for the MACD indicator
type MACDConfig struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// MACD implements the Moving Average Convergence Divergence indicator.
// The MACD line is available once the slow EMA can form; the signal line and
// histogram additionally need SignalPeriod MACD values to seed their EMA.
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance. Zero config values fall back
// to the conventional 12/26/9 setup.
func NewMACD(config MACDConfig) *MACD {
	if config.FastPeriod <= 0 {
		config.FastPeriod = 12
	}
	if config.SlowPeriod <= 0 {
		config.SlowPeriod = 26
	}
	if config.SignalPeriod <= 0 {
		config.SignalPeriod = 9
	}
	return &MACD{config: config}
}

// Name returns the name of the indicator
func (m *MACD) Name() string {
	return "MACD"
}

// RequiredDataPoints returns the minimum number of klines needed for the full
// line/signal/histogram triple.
func (m *MACD) RequiredDataPoints() int {
	return m.config.SlowPeriod + m.config.SignalPeriod - 1
}

// Calculate returns the histogram value, satisfying the Indicator interface.
func (m *MACD) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	_, _, hist, err := m.Values(ctx, klines)
	return hist, err
}

// Line computes only the MACD line, which needs fewer candles than the
// signal line.
func (m *MACD) Line(ctx context.Context, klines []*domain.Kline) (float64, error) {
	if len(klines) < m.config.SlowPeriod {
		return 0, fmt.Errorf("not enough data (%d) to calculate MACD line for slow period %d", len(klines), m.config.SlowPeriod)
	}
	macd := m.macdSeries(klines)
	return macd[len(macd)-1], nil
}

// Values computes the MACD line, signal line and histogram.
func (m *MACD) Values(ctx context.Context, klines []*domain.Kline) (line, signal, histogram float64, err error) {
	required := m.RequiredDataPoints()
	if len(klines) < required {
		return 0, 0, 0, fmt.Errorf("not enough data (%d) to calculate MACD signal: need %d", len(klines), required)
	}

	macd := m.macdSeries(klines)
	signalSeries := emaSeries(macd, m.config.SignalPeriod)

	line = macd[len(macd)-1]
	signal = signalSeries[len(signalSeries)-1]
	histogram = line - signal
	return line, signal, histogram, nil
}

// macdSeries returns fast EMA minus slow EMA for every index where the slow
// EMA is formed. The series starts at kline index SlowPeriod-1.
func (m *MACD) macdSeries(klines []*domain.Kline) []float64 {
	prices := closes(klines)
	fast := emaSeries(prices, m.config.FastPeriod)
	slow := emaSeries(prices, m.config.SlowPeriod)

	out := make([]float64, 0, len(prices)-m.config.SlowPeriod+1)
	for i := m.config.SlowPeriod - 1; i < len(prices); i++ {
		out = append(out, fast[i]-slow[i])
	}
	return out
}

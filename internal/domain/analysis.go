package domain

import "time"

// Label values reported by the analysis layer. Kept as plain strings so the
// result serializes cleanly for downstream consumers.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendChoppy = "choppy"

	SignalOverbought = "overbought"
	SignalOversold   = "oversold"
	SignalNeutral    = "neutral"
	SignalNormal     = "normal"

	SignalBullish = "bullish"
	SignalBearish = "bearish"

	TrendStrengthStrong   = "strong"
	TrendStrengthModerate = "moderate"
	TrendStrengthWeak     = "weak"

	RegimeStrongTrend   = "strong_trend"
	RegimeModerateTrend = "moderate_trend"
	RegimeRanging       = "ranging"
)

// TimeframeSnapshot holds the indicator set computed for one symbol on one
// timeframe. Pointer fields are nil when the cached history is too short for
// the indicator; that is expected during warm-up and is never an error.
type TimeframeSnapshot struct {
	CurrentPrice       float64   `json:"current_price"`
	PriceChange        float64   `json:"price_change"`
	PriceChangePercent float64   `json:"price_change_percent"`
	DataPoints         int       `json:"data_points"`
	LatestOpenTime     time.Time `json:"latest_open_time"`

	EMA20 *float64 `json:"ema20,omitempty"`
	EMA50 *float64 `json:"ema50,omitempty"`

	MACDLine      *float64 `json:"macd_line,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`

	RSI7  *float64 `json:"rsi7,omitempty"`
	RSI14 *float64 `json:"rsi14,omitempty"`

	NATR *float64 `json:"natr,omitempty"`

	BBUpper    *float64 `json:"bb_upper,omitempty"`
	BBMiddle   *float64 `json:"bb_middle,omitempty"`
	BBLower    *float64 `json:"bb_lower,omitempty"`
	BBPosition *float64 `json:"bb_position,omitempty"`
	BBSignal   string   `json:"bb_signal,omitempty"`

	ADX           *float64 `json:"adx,omitempty"`
	TrendStrength string   `json:"trend_strength,omitempty"`

	OBV      *float64 `json:"obv,omitempty"`
	OBVTrend string   `json:"obv_trend,omitempty"`

	VWAP      *float64 `json:"vwap,omitempty"`
	VWAPRatio *float64 `json:"vwap_ratio,omitempty"`

	SupportLevel            *float64 `json:"support_level,omitempty"`
	ResistanceLevel         *float64 `json:"resistance_level,omitempty"`
	DistanceToSupportPct    *float64 `json:"distance_to_support_pct,omitempty"`
	DistanceToResistancePct *float64 `json:"distance_to_resistance_pct,omitempty"`
}

// ConsensusSignal combines per-timeframe snapshots into one cross-timeframe
// judgment. All aggregates are optional: a field stays nil/empty when no
// timeframe contributed a value for it.
type ConsensusSignal struct {
	TrendDirection   string   `json:"trend_direction,omitempty"`
	TrendConsistency *float64 `json:"trend_consistency,omitempty"`

	AvgRSI7     *float64 `json:"avg_rsi7,omitempty"`
	RSI7Signal  string   `json:"rsi7_signal,omitempty"`
	AvgRSI14    *float64 `json:"avg_rsi14,omitempty"`
	RSI14Signal string   `json:"rsi14_signal,omitempty"`

	MACDConsensus string `json:"macd_consensus,omitempty"`

	AvgADX       *float64 `json:"avg_adx,omitempty"`
	MarketRegime string   `json:"market_regime,omitempty"`

	AvgBBPosition *float64 `json:"avg_bb_position,omitempty"`
	BBSignal      string   `json:"bb_signal,omitempty"`

	OBVConsensus string `json:"obv_consensus,omitempty"`
}

// MultiTimeframeAnalysis is the full result returned to the decision
// collaborator: one snapshot per timeframe plus the consensus across them.
type MultiTimeframeAnalysis struct {
	Symbol         string                        `json:"symbol"`
	Timeframes     map[string]*TimeframeSnapshot `json:"timeframes"`
	OverallSignals *ConsensusSignal              `json:"overall_signals,omitempty"`
	AnalyzedAt     time.Time                     `json:"analyzed_at"`
}

// AnalysisRecord is the persisted form of a completed analysis.
type AnalysisRecord struct {
	ID               int64
	Symbol           string
	TrendDirection   string
	TrendConsistency float64
	Payload          string // full MultiTimeframeAnalysis as JSON
	AnalyzedAt       time.Time
}

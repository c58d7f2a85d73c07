package analysis

import (
	"alphaTransformer/internal/domain"
)

// Aggregator folds per-timeframe snapshots into a single cross-timeframe
// consensus. It is pure: the result is derived entirely from the snapshots
// passed in, computed fresh on every call.
type Aggregator struct{}

// NewAggregator creates a signal aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate builds the consensus signal for one symbol. Timeframes with a
// nil snapshot are skipped. Each aggregate stays absent when no timeframe
// contributed a value for it; a nil result means no snapshot had any data.
func (a *Aggregator) Aggregate(snapshots map[string]*domain.TimeframeSnapshot) *domain.ConsensusSignal {
	var present []*domain.TimeframeSnapshot
	for _, s := range snapshots {
		if s != nil {
			present = append(present, s)
		}
	}
	if len(present) == 0 {
		return nil
	}

	signal := &domain.ConsensusSignal{}
	a.aggregateTrend(present, signal)
	a.aggregateRSI(present, signal)
	a.aggregateMACD(present, signal)
	a.aggregateADX(present, signal)
	a.aggregateBands(present, signal)
	a.aggregateOBV(present, signal)
	return signal
}

// aggregateTrend counts timeframes whose fast EMA sits above the slow EMA.
// Strictly above 0.6 reads up, strictly below 0.4 reads down, anything in
// between (the boundaries included) reads choppy.
func (a *Aggregator) aggregateTrend(snapshots []*domain.TimeframeSnapshot, signal *domain.ConsensusSignal) {
	var withBoth, bullish int
	for _, s := range snapshots {
		if s.EMA20 == nil || s.EMA50 == nil {
			continue
		}
		withBoth++
		if *s.EMA20 > *s.EMA50 {
			bullish++
		}
	}
	if withBoth == 0 {
		return
	}

	consistency := float64(bullish) / float64(withBoth)
	signal.TrendConsistency = &consistency
	switch {
	case consistency > 0.6:
		signal.TrendDirection = domain.TrendUp
	case consistency < 0.4:
		signal.TrendDirection = domain.TrendDown
	default:
		signal.TrendDirection = domain.TrendChoppy
	}
}

func (a *Aggregator) aggregateRSI(snapshots []*domain.TimeframeSnapshot, signal *domain.ConsensusSignal) {
	if avg := mean(snapshots, func(s *domain.TimeframeSnapshot) *float64 { return s.RSI7 }); avg != nil {
		signal.AvgRSI7 = avg
		signal.RSI7Signal = rsiLabel(*avg)
	}
	if avg := mean(snapshots, func(s *domain.TimeframeSnapshot) *float64 { return s.RSI14 }); avg != nil {
		signal.AvgRSI14 = avg
		signal.RSI14Signal = rsiLabel(*avg)
	}
}

// aggregateMACD votes by the mean histogram: above zero bullish, otherwise
// bearish.
func (a *Aggregator) aggregateMACD(snapshots []*domain.TimeframeSnapshot, signal *domain.ConsensusSignal) {
	avg := mean(snapshots, func(s *domain.TimeframeSnapshot) *float64 { return s.MACDHistogram })
	if avg == nil {
		return
	}
	if *avg > 0 {
		signal.MACDConsensus = domain.SignalBullish
	} else {
		signal.MACDConsensus = domain.SignalBearish
	}
}

func (a *Aggregator) aggregateADX(snapshots []*domain.TimeframeSnapshot, signal *domain.ConsensusSignal) {
	avg := mean(snapshots, func(s *domain.TimeframeSnapshot) *float64 { return s.ADX })
	if avg == nil {
		return
	}
	signal.AvgADX = avg
	switch {
	case *avg > 25:
		signal.MarketRegime = domain.RegimeStrongTrend
	case *avg < 20:
		signal.MarketRegime = domain.RegimeRanging
	default:
		signal.MarketRegime = domain.RegimeModerateTrend
	}
}

func (a *Aggregator) aggregateBands(snapshots []*domain.TimeframeSnapshot, signal *domain.ConsensusSignal) {
	avg := mean(snapshots, func(s *domain.TimeframeSnapshot) *float64 { return s.BBPosition })
	if avg == nil {
		return
	}
	signal.AvgBBPosition = avg
	signal.BBSignal = BandPositionLabel(*avg)
}

// aggregateOBV takes the majority vote among the per-timeframe OBV trend
// labels; any tie for the lead reads neutral.
func (a *Aggregator) aggregateOBV(snapshots []*domain.TimeframeSnapshot, signal *domain.ConsensusSignal) {
	votes := make(map[string]int)
	for _, s := range snapshots {
		if s.OBVTrend != "" {
			votes[s.OBVTrend]++
		}
	}
	if len(votes) == 0 {
		return
	}

	best, bestCount, tied := "", 0, false
	for label, count := range votes {
		switch {
		case count > bestCount:
			best, bestCount, tied = label, count, false
		case count == bestCount:
			tied = true
		}
	}
	if tied {
		signal.OBVConsensus = domain.SignalNeutral
	} else {
		signal.OBVConsensus = best
	}
}

func rsiLabel(value float64) string {
	switch {
	case value > 70:
		return domain.SignalOverbought
	case value < 30:
		return domain.SignalOversold
	default:
		return domain.SignalNeutral
	}
}

// mean averages one optional field across snapshots, nil when no snapshot
// has the field set.
func mean(snapshots []*domain.TimeframeSnapshot, field func(*domain.TimeframeSnapshot) *float64) *float64 {
	var sum float64
	var n int
	for _, s := range snapshots {
		if v := field(s); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

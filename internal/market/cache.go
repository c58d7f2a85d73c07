// Package market holds the in-memory market-data state shared between the
// stream ingestor (single writer) and the analysis layer (readers).
package market

import (
	"sync"

	"alphaTransformer/internal/domain"
	"alphaTransformer/internal/metrics"
)

// KlineCache is a bounded, per-(symbol, interval) ordered kline store.
//
// Each series keeps at most maxKlines entries ordered by open time ascending,
// with at most one entry per open time. The newest entry may be a live
// (non-final) candle that is replaced in place as updates arrive; once an
// open time has been finalized, stale or duplicate updates for it are
// dropped. A single mutex serializes all access; reads return copies so
// indicator computation never holds the lock.
type KlineCache struct {
	mu         sync.RWMutex
	maxKlines  int
	series     map[string]map[string][]*domain.Kline // symbol -> interval -> klines
	staleDrops uint64
}

// DefaultCacheSize is the per-series capacity used when none is configured.
const DefaultCacheSize = 100

// NewKlineCache creates a cache with the given per-series capacity.
// Non-positive capacities fall back to DefaultCacheSize.
func NewKlineCache(maxKlines int) *KlineCache {
	if maxKlines <= 0 {
		maxKlines = DefaultCacheSize
	}
	return &KlineCache{
		maxKlines: maxKlines,
		series:    make(map[string]map[string][]*domain.Kline),
	}
}

// Upsert stores a kline update, creating the series if needed.
//
// An update sharing the open time of the series tail replaces the tail while
// the tail is still live; any update for an already-finalized or older open
// time is dropped. Appending beyond capacity evicts the oldest entry.
// Returns true if the update was stored.
func (c *KlineCache) Upsert(kline *domain.Kline) bool {
	if kline == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	bySymbol, ok := c.series[kline.Symbol]
	if !ok {
		bySymbol = make(map[string][]*domain.Kline)
		c.series[kline.Symbol] = bySymbol
	}
	s := bySymbol[kline.Interval]

	if len(s) > 0 {
		last := s[len(s)-1]
		if kline.OpenTime.Equal(last.OpenTime) {
			if last.IsFinal {
				// Candle already closed; the update is a late duplicate.
				c.markStale(kline)
				return false
			}
			s[len(s)-1] = cloneKline(kline)
			return true
		}
		if kline.OpenTime.Before(last.OpenTime) {
			// Out-of-order update for a superseded open time.
			c.markStale(kline)
			return false
		}
	}

	s = append(s, cloneKline(kline))
	if len(s) > c.maxKlines {
		copy(s, s[1:])
		s[len(s)-1] = nil
		s = s[:c.maxKlines]
	}
	bySymbol[kline.Interval] = s
	metrics.CachedCandles.WithLabelValues(kline.Symbol, kline.Interval).Set(float64(len(s)))
	return true
}

func (c *KlineCache) markStale(kline *domain.Kline) {
	c.staleDrops++
	metrics.StaleDrops.WithLabelValues(kline.Symbol, kline.Interval).Inc()
}

// GetKlines returns copies of the most recent limit klines for the series,
// oldest first. A limit <= 0 returns the whole series. An unknown symbol or
// interval yields an empty slice, not an error.
func (c *KlineCache) GetKlines(symbol, interval string, limit int) []*domain.Kline {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.series[symbol][interval]
	if len(s) == 0 {
		return nil
	}
	if limit > 0 && limit < len(s) {
		s = s[len(s)-limit:]
	}

	out := make([]*domain.Kline, len(s))
	for i, k := range s {
		out[i] = cloneKline(k)
	}
	return out
}

// GetLatest returns a copy of the newest kline for the series, or nil if the
// series is empty or unknown.
func (c *KlineCache) GetLatest(symbol, interval string) *domain.Kline {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.series[symbol][interval]
	if len(s) == 0 {
		return nil
	}
	return cloneKline(s[len(s)-1])
}

// SymbolCacheInfo reports per-timeframe kline counts for one symbol.
type SymbolCacheInfo struct {
	Timeframes  map[string]int `json:"timeframes"`
	TotalKlines int            `json:"total_klines"`
}

// CacheInfo is the diagnostics view of the whole cache.
type CacheInfo struct {
	TotalSymbols       int                        `json:"total_symbols"`
	MaxKlinesPerSeries int                        `json:"max_klines_per_series"`
	StaleDrops         uint64                     `json:"stale_drops"`
	Symbols            map[string]SymbolCacheInfo `json:"symbols"`
}

// Info returns per-series counts for observability.
func (c *KlineCache) Info() CacheInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := CacheInfo{
		TotalSymbols:       len(c.series),
		MaxKlinesPerSeries: c.maxKlines,
		StaleDrops:         c.staleDrops,
		Symbols:            make(map[string]SymbolCacheInfo, len(c.series)),
	}
	for symbol, bySymbol := range c.series {
		si := SymbolCacheInfo{Timeframes: make(map[string]int, len(bySymbol))}
		for interval, s := range bySymbol {
			si.Timeframes[interval] = len(s)
			si.TotalKlines += len(s)
		}
		info.Symbols[symbol] = si
	}
	return info
}

func cloneKline(k *domain.Kline) *domain.Kline {
	clone := *k
	return &clone
}

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphaTransformer/config"
	"alphaTransformer/internal/domain"
	"alphaTransformer/internal/market"
	"alphaTransformer/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockHistorical struct {
	pingErr error
	// klines per "symbol/interval"; missing keys return an error
	klines map[string][]*domain.Kline
	calls  []string
}

func (m *mockHistorical) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockHistorical) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	key := symbol + "/" + interval
	m.calls = append(m.calls, key)
	klines, ok := m.klines[key]
	if !ok {
		return nil, errors.New("no data for " + key)
	}
	return klines, nil
}

type mockStreamer struct {
	mu          sync.Mutex
	listeners   []ports.KlineListener
	connectErr  error
	runErr      error
	runRelease  chan struct{}
	subscribed  [][2]int // len(symbols), len(timeframes) per call
	disconnects int
	status      domain.ConnectionStatus
}

func newMockStreamer() *mockStreamer {
	return &mockStreamer{runRelease: make(chan struct{})}
}

func (m *mockStreamer) Connect(ctx context.Context) error { return m.connectErr }

func (m *mockStreamer) SubscribeAll(ctx context.Context, symbols, timeframes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, [2]int{len(symbols), len(timeframes)})
	return nil
}

func (m *mockStreamer) Run(ctx context.Context) error {
	<-m.runRelease
	return m.runErr
}

func (m *mockStreamer) Disconnect() {
	m.mu.Lock()
	m.disconnects++
	m.mu.Unlock()
	select {
	case <-m.runRelease:
	default:
		close(m.runRelease)
	}
}

func (m *mockStreamer) Status() domain.ConnectionStatus { return m.status }

func (m *mockStreamer) AddListener(l ports.KlineListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

type mockRepo struct {
	mu    sync.Mutex
	saved []*domain.AnalysisRecord
	err   error
}

func (m *mockRepo) SaveAnalysis(ctx context.Context, rec *domain.AnalysisRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.saved = append(m.saved, rec)
	return int64(len(m.saved)), nil
}

func (m *mockRepo) FindRecentBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.AnalysisRecord, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Symbols:    []string{"BTCUSDT"},
		Timeframes: []string{"1h", "4h"},
		CacheSize:  100,
	}
}

func seriesFor(symbol, interval string, n int) []*domain.Kline {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Kline, n)
	for i := 0; i < n; i++ {
		close := 100.0 + float64(i)
		out[i] = &domain.Kline{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Symbol:   symbol,
			Interval: interval,
			Open:     close - 0.5,
			High:     close + 1,
			Low:      close - 1,
			Close:    close,
			Volume:   5,
			IsFinal:  true,
		}
	}
	return out
}

func newService(t *testing.T, historical *mockHistorical, streamer *mockStreamer, repo ports.AnalysisRepository) (*MarketDataService, *market.KlineCache) {
	t.Helper()
	cache := market.NewKlineCache(100)
	svc, err := NewMarketDataService(testConfig(), &mockLogger{}, historical, streamer, cache, repo)
	require.NoError(t, err)
	return svc, cache
}

func TestMarketDataService_Bootstrap(t *testing.T) {
	historical := &mockHistorical{klines: map[string][]*domain.Kline{
		"BTCUSDT/1h": seriesFor("BTCUSDT", "1h", 60),
		// BTCUSDT/4h missing: the pair fails and is skipped
	}}
	svc, cache := newService(t, historical, newMockStreamer(), nil)

	require.NoError(t, svc.Bootstrap(context.Background()))

	assert.Len(t, cache.GetKlines("BTCUSDT", "1h", 0), 60)
	assert.Empty(t, cache.GetKlines("BTCUSDT", "4h", 0))
	assert.ElementsMatch(t, []string{"BTCUSDT/1h", "BTCUSDT/4h"}, historical.calls)
}

func TestMarketDataService_Bootstrap_UnreachableExchange(t *testing.T) {
	historical := &mockHistorical{pingErr: errors.New("dial timeout")}
	svc, _ := newService(t, historical, newMockStreamer(), nil)

	err := svc.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestMarketDataService_GetMultiTimeframeAnalysis(t *testing.T) {
	svc, cache := newService(t, &mockHistorical{}, newMockStreamer(), nil)
	for _, k := range seriesFor("BTCUSDT", "1h", 60) {
		cache.Upsert(k)
	}
	for _, k := range seriesFor("BTCUSDT", "4h", 60) {
		cache.Upsert(k)
	}

	result, err := svc.GetMultiTimeframeAnalysis(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", result.Symbol)
	require.Len(t, result.Timeframes, 2)
	require.NotNil(t, result.Timeframes["1h"])
	require.NotNil(t, result.Timeframes["1h"].EMA20)

	require.NotNil(t, result.OverallSignals)
	require.NotNil(t, result.OverallSignals.TrendConsistency)
	assert.Equal(t, 1.0, *result.OverallSignals.TrendConsistency)
	assert.Equal(t, domain.TrendUp, result.OverallSignals.TrendDirection)
	assert.False(t, result.AnalyzedAt.IsZero())
}

func TestMarketDataService_GetMultiTimeframeAnalysis_PartialData(t *testing.T) {
	svc, cache := newService(t, &mockHistorical{}, newMockStreamer(), nil)
	for _, k := range seriesFor("BTCUSDT", "1h", 10) {
		cache.Upsert(k)
	}

	result, err := svc.GetMultiTimeframeAnalysis(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	// Only the populated timeframe appears; short history leaves long
	// indicators absent rather than erroring.
	require.Len(t, result.Timeframes, 1)
	snapshot := result.Timeframes["1h"]
	require.NotNil(t, snapshot)
	assert.Nil(t, snapshot.EMA20)
	assert.NotNil(t, snapshot.RSI7)
}

func TestMarketDataService_GetMultiTimeframeAnalysis_UnknownSymbol(t *testing.T) {
	svc, _ := newService(t, &mockHistorical{}, newMockStreamer(), nil)

	_, err := svc.GetMultiTimeframeAnalysis(context.Background(), "NOSUCH")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestMarketDataService_AnalysisIsPersisted(t *testing.T) {
	repo := &mockRepo{}
	svc, cache := newService(t, &mockHistorical{}, newMockStreamer(), repo)
	for _, k := range seriesFor("BTCUSDT", "1h", 60) {
		cache.Upsert(k)
	}

	_, err := svc.GetMultiTimeframeAnalysis(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	rec := repo.saved[0]
	assert.Equal(t, "BTCUSDT", rec.Symbol)
	assert.Equal(t, domain.TrendUp, rec.TrendDirection)
	assert.Equal(t, 1.0, rec.TrendConsistency)
	assert.Contains(t, rec.Payload, `"timeframes"`)
}

func TestMarketDataService_PersistenceFailureIsNotFatal(t *testing.T) {
	repo := &mockRepo{err: errors.New("disk full")}
	svc, cache := newService(t, &mockHistorical{}, newMockStreamer(), repo)
	for _, k := range seriesFor("BTCUSDT", "1h", 30) {
		cache.Upsert(k)
	}

	_, err := svc.GetMultiTimeframeAnalysis(context.Background(), "BTCUSDT")
	assert.NoError(t, err)
}

func TestMarketDataService_StartWiresStreamIntoCache(t *testing.T) {
	historical := &mockHistorical{klines: map[string][]*domain.Kline{
		"BTCUSDT/1h": seriesFor("BTCUSDT", "1h", 5),
		"BTCUSDT/4h": seriesFor("BTCUSDT", "4h", 5),
	}}
	streamer := newMockStreamer()
	svc, cache := newService(t, historical, streamer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	// Wait until the service has registered its listener and subscribed.
	require.Eventually(t, func() bool {
		streamer.mu.Lock()
		defer streamer.mu.Unlock()
		return len(streamer.listeners) == 1 && len(streamer.subscribed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A streamed kline lands in the cache through the listener.
	live := seriesFor("BTCUSDT", "1h", 6)[5]
	live.IsFinal = false
	streamer.mu.Lock()
	listener := streamer.listeners[0]
	streamer.mu.Unlock()
	listener.OnKline(live)
	assert.Len(t, cache.GetKlines("BTCUSDT", "1h", 0), 6)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
	streamer.mu.Lock()
	assert.GreaterOrEqual(t, streamer.disconnects, 1)
	streamer.mu.Unlock()
}

func TestMarketDataService_BootstrapHandoffUpdatesLiveCandle(t *testing.T) {
	// The REST bootstrap delivers the currently forming candle as a
	// non-final tail; stream updates for the same open time must keep
	// flowing into it and its true final close must be the one stored.
	bootstrap := seriesFor("BTCUSDT", "1h", 6)
	bootstrap[5].IsFinal = false
	historical := &mockHistorical{klines: map[string][]*domain.Kline{
		"BTCUSDT/1h": bootstrap,
		"BTCUSDT/4h": seriesFor("BTCUSDT", "4h", 6),
	}}
	streamer := newMockStreamer()
	svc, cache := newService(t, historical, streamer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	require.Eventually(t, func() bool {
		streamer.mu.Lock()
		defer streamer.mu.Unlock()
		return len(streamer.listeners) == 1
	}, 2*time.Second, 10*time.Millisecond)
	streamer.mu.Lock()
	listener := streamer.listeners[0]
	streamer.mu.Unlock()

	boundary := bootstrap[5].OpenTime

	live := *bootstrap[5]
	live.Close = 205
	live.IsFinal = false
	listener.OnKline(&live)

	latest := cache.GetLatest("BTCUSDT", "1h")
	require.NotNil(t, latest)
	assert.Equal(t, 205.0, latest.Close)

	final := live
	final.Close = 210
	final.IsFinal = true
	listener.OnKline(&final)

	latest = cache.GetLatest("BTCUSDT", "1h")
	require.NotNil(t, latest)
	assert.True(t, latest.OpenTime.Equal(boundary))
	assert.Equal(t, 210.0, latest.Close)
	assert.True(t, latest.IsFinal)
	assert.Len(t, cache.GetKlines("BTCUSDT", "1h", 0), 6)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func TestMarketDataService_StartFailsFastOnConnectError(t *testing.T) {
	streamer := newMockStreamer()
	streamer.connectErr = errors.New("refused")
	historical := &mockHistorical{klines: map[string][]*domain.Kline{}}
	svc, _ := newService(t, historical, streamer, nil)

	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")
}

func TestMarketDataService_Diagnostics(t *testing.T) {
	streamer := newMockStreamer()
	streamer.status = domain.ConnectionStatus{State: domain.StateConnected}
	svc, cache := newService(t, &mockHistorical{}, streamer, nil)
	for _, k := range seriesFor("BTCUSDT", "1h", 3) {
		cache.Upsert(k)
	}

	diag := svc.Diagnostics()
	assert.Equal(t, domain.StateConnected, diag.Connection.State)
	assert.Equal(t, 3, diag.Cache.Symbols["BTCUSDT"].Timeframes["1h"])
}

func TestNewMarketDataService_Validation(t *testing.T) {
	cache := market.NewKlineCache(10)

	_, err := NewMarketDataService(nil, &mockLogger{}, &mockHistorical{}, newMockStreamer(), cache, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Symbols = nil
	_, err = NewMarketDataService(cfg, &mockLogger{}, &mockHistorical{}, newMockStreamer(), cache, nil)
	assert.Error(t, err)
}

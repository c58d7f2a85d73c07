package binancews

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alphaTransformer/internal/domain"
	"alphaTransformer/internal/metrics"
	"alphaTransformer/internal/ports"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingInterval   = 20 * time.Second
	defaultReconnectDelay = 3 * time.Second
	defaultMaxReconnects  = 10
	defaultSubscribeDelay = 100 * time.Millisecond

	pingWriteTimeout = 5 * time.Second
)

// Config holds the dependencies and tuning for the stream ingestor.
type Config struct {
	// BaseURL is the combined-stream endpoint, e.g.
	// wss://fstream.binance.com/stream.
	BaseURL              string
	ConnectTimeout       time.Duration
	PingInterval         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	SubscribeDelay       time.Duration
	Logger               ports.Logger
}

// StreamIngestor maintains a single combined-stream connection, translates
// inbound kline frames into domain klines and fans them out to registered
// listeners. It reconnects with a fixed delay after read failures and gives
// up after MaxReconnectAttempts consecutive failures.
type StreamIngestor struct {
	baseURL        string
	connectTimeout time.Duration
	pingInterval   time.Duration
	reconnectDelay time.Duration
	maxReconnects  int
	subscribeDelay time.Duration
	logger         ports.Logger

	mu             sync.Mutex
	conn           *websocket.Conn
	state          domain.ConnectionState
	reconnectCount int
	lastMessage    time.Time
	lastErr        string
	active         bool
	streams        []string
	nextID         int64
	pingStop       chan struct{}

	listenerMu sync.RWMutex
	listeners  []ports.KlineListener
}

// NewStreamIngestor creates a disconnected ingestor. Connect must be called
// before Run.
func NewStreamIngestor(cfg Config) (*StreamIngestor, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: stream base URL is required", ports.ErrConfigurationError)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	s := &StreamIngestor{
		baseURL:        cfg.BaseURL,
		connectTimeout: cfg.ConnectTimeout,
		pingInterval:   cfg.PingInterval,
		reconnectDelay: cfg.ReconnectDelay,
		maxReconnects:  cfg.MaxReconnectAttempts,
		subscribeDelay: cfg.SubscribeDelay,
		logger:         cfg.Logger,
		state:          domain.StateDisconnected,
	}
	if s.connectTimeout <= 0 {
		s.connectTimeout = defaultConnectTimeout
	}
	if s.pingInterval <= 0 {
		s.pingInterval = defaultPingInterval
	}
	if s.reconnectDelay <= 0 {
		s.reconnectDelay = defaultReconnectDelay
	}
	if s.maxReconnects <= 0 {
		s.maxReconnects = defaultMaxReconnects
	}
	if s.subscribeDelay <= 0 {
		s.subscribeDelay = defaultSubscribeDelay
	}
	return s, nil
}

// AddListener registers a listener for translated klines. Listeners are
// invoked sequentially on the read loop goroutine.
func (s *StreamIngestor) AddListener(l ports.KlineListener) {
	if l == nil {
		return
	}
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Connect dials the combined-stream endpoint. On success the ingestor is
// connected and its reconnect counter is reset.
func (s *StreamIngestor) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(domain.StateConnecting)
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.setStateLocked(domain.StateDisconnected)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.active = true
	s.reconnectCount = 0
	s.lastErr = ""
	s.setStateLocked(domain.StateConnected)
	s.startPingLocked(conn)
	s.mu.Unlock()

	s.logger.Info(ctx, "Stream connected", map[string]interface{}{"url": s.baseURL})
	return nil
}

// SubscribeAll subscribes to the kline stream for every symbol/timeframe
// pair, one request per symbol, spaced by the configured subscribe delay.
// A failed subscribe request is logged and the remaining symbols are still
// attempted; the failed streams stay recorded so a reconnect replays them.
func (s *StreamIngestor) SubscribeAll(ctx context.Context, symbols, timeframes []string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ports.ErrNotConnected
	}

	for i, symbol := range symbols {
		params := make([]string, 0, len(timeframes))
		for _, tf := range timeframes {
			params = append(params, streamName(symbol, tf))
		}
		if err := s.subscribe(conn, params); err != nil {
			s.logger.Warn(ctx, "Subscribe failed, skipping symbol", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
		} else {
			s.logger.Debug(ctx, "Subscribed symbol streams", map[string]interface{}{
				"symbol":  symbol,
				"streams": params,
			})
		}
		if i < len(symbols)-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ports.ErrContextCanceled, ctx.Err())
			case <-time.After(s.subscribeDelay):
			}
		}
	}
	return nil
}

func (s *StreamIngestor) subscribe(conn *websocket.Conn, params []string) error {
	s.mu.Lock()
	s.nextID++
	req := subscribeRequest{Method: "SUBSCRIBE", Params: params, ID: s.nextID}
	s.streams = append(s.streams, params...)
	err := conn.WriteJSON(req)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrConnectionFailed, err)
	}
	return nil
}

// Run reads frames until Disconnect is called or the context is canceled.
// On a read failure it reconnects with a fixed delay; once the attempt
// counter exceeds the configured maximum it transitions to the terminal
// failure state and returns ErrStreamTerminated.
func (s *StreamIngestor) Run(ctx context.Context) error {
	for {
		s.mu.Lock()
		conn := s.conn
		active := s.active
		s.mu.Unlock()
		if conn == nil || !active {
			return nil
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			active = s.active
			s.mu.Unlock()
			if !active {
				return nil
			}
			if ctx.Err() != nil {
				s.teardown()
				return fmt.Errorf("%w: %v", ports.ErrContextCanceled, ctx.Err())
			}
			s.logger.Warn(ctx, "Stream read failed, reconnecting", map[string]interface{}{"error": err.Error()})
			if rerr := s.reconnect(ctx); rerr != nil {
				return rerr
			}
			continue
		}

		s.handleFrame(ctx, raw)
	}
}

func (s *StreamIngestor) handleFrame(ctx context.Context, raw []byte) {
	kind, probe, err := classifyFrame(raw)
	if err != nil {
		metrics.MalformedFrames.Inc()
		s.logger.Warn(ctx, "Dropping malformed frame", map[string]interface{}{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.lastMessage = time.Now()
	s.mu.Unlock()

	switch kind {
	case frameKline:
		kline, terr := translateKlineFrame(probe.Data)
		if terr != nil {
			metrics.MalformedFrames.Inc()
			s.logger.Warn(ctx, "Dropping unparseable kline frame", map[string]interface{}{"error": terr.Error()})
			return
		}
		metrics.KlinesReceived.WithLabelValues(kline.Symbol, kline.Interval).Inc()
		if kline.IsFinal {
			metrics.FinalKlines.WithLabelValues(kline.Symbol, kline.Interval).Inc()
		}
		s.dispatch(ctx, kline)
	case frameAck:
		s.logger.Debug(ctx, "Subscription acknowledged", map[string]interface{}{"id": probe.ID})
	case frameError:
		s.logger.Warn(ctx, "Stream error frame", map[string]interface{}{"error": string(probe.Error)})
	default:
		s.logger.Debug(ctx, "Ignoring unrecognized frame", nil)
	}
}

func (s *StreamIngestor) dispatch(ctx context.Context, kline *domain.Kline) {
	s.listenerMu.RLock()
	listeners := s.listeners
	s.listenerMu.RUnlock()
	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error(ctx, fmt.Errorf("listener panic: %v", r), "Kline listener panicked", map[string]interface{}{
						"symbol": kline.Symbol,
					})
				}
			}()
			l.OnKline(kline)
		}()
	}
}

func (s *StreamIngestor) reconnect(ctx context.Context) error {
	s.mu.Lock()
	s.stopPingLocked()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.setStateLocked(domain.StateReconnecting)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		s.reconnectCount++
		attempt := s.reconnectCount
		s.mu.Unlock()

		if attempt > s.maxReconnects {
			s.mu.Lock()
			s.active = false
			s.setStateLocked(domain.StateTerminallyFailed)
			s.mu.Unlock()
			err := fmt.Errorf("%w: gave up after %d attempts", ports.ErrStreamTerminated, attempt-1)
			s.logger.Error(ctx, err, "Reconnect attempts exhausted", map[string]interface{}{
				"attempts": attempt - 1,
			})
			return err
		}

		select {
		case <-ctx.Done():
			s.teardown()
			return fmt.Errorf("%w: %v", ports.ErrContextCanceled, ctx.Err())
		case <-time.After(s.reconnectDelay):
		}

		s.logger.Info(ctx, "Reconnecting stream", map[string]interface{}{
			"attempt": attempt,
			"max":     s.maxReconnects,
		})
		metrics.Reconnects.Inc()

		conn, err := s.dial(ctx)
		if err != nil {
			s.mu.Lock()
			s.lastErr = err.Error()
			s.mu.Unlock()
			s.logger.Warn(ctx, "Reconnect attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.reconnectCount = 0
		s.lastErr = ""
		s.setStateLocked(domain.StateConnected)
		s.startPingLocked(conn)
		streams := append([]string(nil), s.streams...)
		s.streams = s.streams[:0]
		s.mu.Unlock()

		if len(streams) > 0 {
			if err := s.subscribe(conn, streams); err != nil {
				s.logger.Warn(ctx, "Resubscribe after reconnect failed", map[string]interface{}{"error": err.Error()})
				// The read loop will see the broken connection and retry.
			}
		}
		s.logger.Info(ctx, "Stream reconnected", map[string]interface{}{"streams": len(streams)})
		return nil
	}
}

// Disconnect closes the connection and unblocks a goroutine blocked in Run.
func (s *StreamIngestor) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.stopPingLocked()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.setStateLocked(domain.StateDisconnected)
}

// Status returns a snapshot of the connection state for diagnostics.
func (s *StreamIngestor) Status() domain.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ConnectionStatus{
		Exchange:        "binance",
		State:           s.state,
		ReconnectCount:  s.reconnectCount,
		LastMessageTime: s.lastMessage,
		LastError:       s.lastErr,
	}
}

func (s *StreamIngestor) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.connectTimeout}
	conn, _, err := dialer.DialContext(ctx, s.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", ports.ErrConnectionFailed, s.baseURL, err)
	}
	return conn, nil
}

func (s *StreamIngestor) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.stopPingLocked()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.setStateLocked(domain.StateDisconnected)
}

// startPingLocked launches a keepalive goroutine for conn. Control frames
// may be written concurrently with WriteJSON, so no extra locking is needed.
func (s *StreamIngestor) startPingLocked(conn *websocket.Conn) {
	stop := make(chan struct{})
	s.pingStop = stop
	interval := s.pingInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				deadline := time.Now().Add(pingWriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()
}

func (s *StreamIngestor) stopPingLocked() {
	if s.pingStop != nil {
		close(s.pingStop)
		s.pingStop = nil
	}
}

func (s *StreamIngestor) setStateLocked(state domain.ConnectionState) {
	s.state = state
	metrics.SetConnState(state)
}

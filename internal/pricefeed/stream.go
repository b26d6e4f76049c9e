package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamURL = "wss://stream.binance.com:9443/ws"

	// Reconnection settings
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2

	// Keepalive settings
	pingInterval = 30 * time.Second
	pongTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second

	defaultMaxAge = 10 * time.Second
)

var ErrStale = errors.New("stream price is stale")

// Tick is one price update from the stream.
type Tick struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithStreamURL points the stream at another endpoint.
func WithStreamURL(url string) StreamOption {
	return func(s *Stream) { s.url = url }
}

// WithDialer replaces the default WebSocket dialer, e.g. to go through a proxy.
func WithDialer(d *websocket.Dialer) StreamOption {
	return func(s *Stream) { s.dialer = d }
}

// WithReconnectBackoff sets the first reconnect delay. It doubles on every
// consecutive failure up to maxBackoff.
func WithReconnectBackoff(d time.Duration) StreamOption {
	return func(s *Stream) { s.backoff = d }
}

// WithMaxAge sets how old the last tick may be before Price refuses it.
func WithMaxAge(d time.Duration) StreamOption {
	return func(s *Stream) { s.maxAge = d }
}

// Stream follows Binance mini ticker updates over a WebSocket and keeps the
// last price of every subscribed symbol.
type Stream struct {
	conn       *websocket.Conn
	dialer     *websocket.Dialer
	url        string
	maxAge     time.Duration
	backoff    time.Duration
	logger     *zap.Logger
	subscribed map[string]bool
	prices     map[string]Tick
	handlers   []func(Tick)
	requestID  int
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	connMu     sync.Mutex
}

// streamRequest is an outbound subscription message.
type streamRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// miniTicker is the inbound 24hrMiniTicker event.
type miniTicker struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// NewStream creates a stream client. Nothing is dialled until Connect or Run.
func NewStream(logger *zap.Logger, opts ...StreamOption) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stream{
		dialer:     websocket.DefaultDialer,
		url:        streamURL,
		maxAge:     defaultMaxAge,
		backoff:    initialBackoff,
		logger:     logger.Named("stream"),
		subscribed: make(map[string]bool),
		prices:     make(map[string]Tick),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = websocket.DefaultDialer
	}
	if s.backoff <= 0 {
		s.backoff = initialBackoff
	}
	return s
}

func streamName(asset string) string {
	return strings.ToLower(binanceSymbol(asset)) + "@miniTicker"
}

// Connect establishes a WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	s.conn = conn
	return nil
}

// Connected reports whether a connection is currently open.
func (s *Stream) Connected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn != nil
}

// Subscribe follows the given assets. Subscriptions made while disconnected
// are sent once Run connects.
func (s *Stream) Subscribe(assets ...string) error {
	if len(assets) == 0 {
		return nil
	}

	names := make([]string, len(assets))
	s.mu.Lock()
	for i, a := range assets {
		names[i] = streamName(a)
		s.subscribed[names[i]] = true
	}
	s.mu.Unlock()

	if !s.Connected() {
		return nil
	}
	if err := s.send("SUBSCRIBE", names); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// Unsubscribe stops following the given assets.
func (s *Stream) Unsubscribe(assets ...string) error {
	if len(assets) == 0 {
		return nil
	}

	names := make([]string, len(assets))
	s.mu.Lock()
	for i, a := range assets {
		names[i] = streamName(a)
		delete(s.subscribed, names[i])
	}
	s.mu.Unlock()

	if !s.Connected() {
		return nil
	}
	if err := s.send("UNSUBSCRIBE", names); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// OnTick registers a callback for every price update.
func (s *Stream) OnTick(handler func(Tick)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Price implements Source with the last streamed price, as long as it is
// younger than the stream's max age.
func (s *Stream) Price(ctx context.Context, asset string) (float64, error) {
	symbol := binanceSymbol(asset)

	s.mu.RLock()
	tick, ok := s.prices[symbol]
	s.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s not streamed yet", ErrNoPrice, symbol)
	}
	if age := time.Since(tick.Time); age > s.maxAge {
		return 0, fmt.Errorf("%w: %s last updated %s ago", ErrStale, symbol, age.Truncate(time.Second))
	}
	return tick.Price, nil
}

// Run keeps the stream connected, reconnecting with exponential backoff,
// until ctx ends or Close is called.
func (s *Stream) Run(ctx context.Context) error {
	backoff := s.backoff
	failureCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		if err := s.Connect(ctx); err != nil {
			failureCount++
			if failureCount == 1 {
				s.logger.Warn("connection failed, falling back to REST", zap.Error(err))
			}
			if !s.sleep(ctx, backoff) {
				return s.stopErr(ctx)
			}
			backoff = nextBackoff(backoff)
			continue
		}

		if err := s.resubscribe(); err != nil {
			s.logger.Warn("resubscribe failed", zap.Error(err))
			s.closeConnection()
			failureCount++
			if !s.sleep(ctx, backoff) {
				return s.stopErr(ctx)
			}
			backoff = nextBackoff(backoff)
			continue
		}

		s.logger.Info("connected", zap.String("url", s.url))
		backoff = s.backoff
		failureCount = 0

		err := s.readLoop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			select {
			case <-s.done:
				return nil
			default:
			}
			s.logger.Warn("disconnected", zap.Error(err))
		}

		s.closeConnection()

		if !s.sleep(ctx, backoff) {
			return s.stopErr(ctx)
		}
		backoff = nextBackoff(backoff)
	}
}

// Close gracefully closes the stream and stops Run.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.closeConnection()
}

func (s *Stream) stopErr(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	default:
		return ctx.Err()
	}
}

// readLoop reads messages from the WebSocket connection.
func (s *Stream) readLoop(ctx context.Context) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()

	if conn == nil {
		return errors.New("not connected")
	}

	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout + pingInterval))
	})

	pingDone := make(chan struct{})
	go s.pingLoop(ctx, pingDone)
	defer close(pingDone)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(pongTimeout + pingInterval)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		s.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep the connection alive.
func (s *Stream) pingLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			conn := s.conn
			var err error
			if conn != nil {
				if err = conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err == nil {
					err = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
			s.connMu.Unlock()

			if conn == nil {
				return
			}
			if err != nil {
				s.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message. Subscription
// acknowledgements and unknown events are ignored.
func (s *Stream) handleMessage(data []byte) {
	var event miniTicker
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Debug("failed to unmarshal message", zap.Error(err))
		return
	}
	if event.EventType != "24hrMiniTicker" || event.Symbol == "" {
		return
	}

	price, err := strconv.ParseFloat(event.Close, 64)
	if err != nil || !(price > 0) || math.IsInf(price, 0) {
		s.logger.Debug("bad ticker price", zap.String("symbol", event.Symbol), zap.String("price", event.Close))
		return
	}

	tick := Tick{Symbol: strings.ToUpper(event.Symbol), Price: price, Time: time.Now()}

	s.mu.Lock()
	s.prices[tick.Symbol] = tick
	handlers := make([]func(Tick), len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(tick)
	}
}

// resubscribe resubscribes to all followed streams.
func (s *Stream) resubscribe() error {
	s.mu.RLock()
	names := make([]string, 0, len(s.subscribed))
	for name := range s.subscribed {
		names = append(names, name)
	}
	s.mu.RUnlock()

	if len(names) == 0 {
		return nil
	}
	return s.send("SUBSCRIBE", names)
}

// send writes a subscription request.
func (s *Stream) send(method string, params []string) error {
	s.mu.Lock()
	s.requestID++
	id := s.requestID
	s.mu.Unlock()

	return s.writeJSON(streamRequest{Method: method, Params: params, ID: id})
}

// writeJSON writes a JSON message to the WebSocket connection.
func (s *Stream) writeJSON(v interface{}) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return errors.New("not connected")
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	return s.conn.WriteJSON(v)
}

// closeConnection closes the current WebSocket connection.
func (s *Stream) closeConnection() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)

	s.conn.Close()
	s.conn = nil

	return err
}

// sleep waits for the specified duration or until the stream stops.
func (s *Stream) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff doubles the backoff up to maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := current * backoffFactor
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

package pricefeed

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHandleMessage(t *testing.T) {
	s := NewStream(zaptest.NewLogger(t))

	var got []Tick
	s.OnTick(func(tick Tick) { got = append(got, tick) })

	s.handleMessage([]byte(`{"result":null,"id":1}`))
	s.handleMessage([]byte(`not json`))
	s.handleMessage([]byte(`{"e":"24hrMiniTicker","s":"BTCUSDT","c":"oops"}`))
	s.handleMessage([]byte(`{"e":"24hrMiniTicker","s":"BTCUSDT","c":"NaN"}`))
	s.handleMessage([]byte(`{"e":"24hrMiniTicker","s":"BTCUSDT","c":"Inf"}`))
	s.handleMessage([]byte(`{"e":"24hrMiniTicker","s":"ETHUSDT","c":"NaN"}`))
	s.handleMessage([]byte(`{"e":"24hrMiniTicker","s":"BTCUSDT","c":"65000.10"}`))

	require.Len(t, got, 1)
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
	assert.InDelta(t, 65000.10, got[0].Price, 1e-9)

	price, err := s.Price(context.Background(), "btc")
	require.NoError(t, err)
	assert.InDelta(t, 65000.10, price, 1e-9)

	_, err = s.Price(context.Background(), "ETH")
	require.ErrorIs(t, err, ErrNoPrice)
}

func TestStreamStalePrice(t *testing.T) {
	s := NewStream(zaptest.NewLogger(t), WithMaxAge(time.Millisecond))
	s.handleMessage([]byte(`{"e":"24hrMiniTicker","s":"ETHUSDT","c":"3000"}`))
	time.Sleep(5 * time.Millisecond)

	_, err := s.Price(context.Background(), "ETH")
	require.ErrorIs(t, err, ErrStale)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second))
	assert.Equal(t, 16*time.Second, nextBackoff(8*time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(20*time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff))
}

// tickerServer answers a SUBSCRIBE request with one mini ticker event per
// requested stream.
func tickerServer(t *testing.T, price string) (*httptest.Server, <-chan streamRequest) {
	t.Helper()
	requests := make(chan streamRequest, 4)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var mu sync.Mutex
		for {
			var req streamRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			requests <- req

			mu.Lock()
			conn.WriteJSON(map[string]interface{}{"result": nil, "id": req.ID})
			for _, name := range req.Params {
				symbol := strings.ToUpper(strings.TrimSuffix(name, "@miniTicker"))
				conn.WriteJSON(map[string]interface{}{
					"e": "24hrMiniTicker",
					"E": time.Now().UnixMilli(),
					"s": symbol,
					"c": price,
				})
			}
			mu.Unlock()
		}
	}))
	return srv, requests
}

func TestStreamRun(t *testing.T) {
	srv, requests := tickerServer(t, "64000.5")
	defer srv.Close()

	s := NewStream(zaptest.NewLogger(t), WithStreamURL("ws"+strings.TrimPrefix(srv.URL, "http")))
	require.NoError(t, s.Subscribe("BTC"))
	assert.False(t, s.Connected())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case req := <-requests:
		assert.Equal(t, "SUBSCRIBE", req.Method)
		assert.Equal(t, []string{"btcusdt@miniTicker"}, req.Params)
	case <-ctx.Done():
		t.Fatal("no subscription received")
	}

	require.Eventually(t, func() bool {
		price, err := s.Price(ctx, "BTC")
		return err == nil && price == 64000.5
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("run did not stop after close")
	}
}

// writeFailConn lets the HTTP upgrade through and fails every later write.
type writeFailConn struct {
	net.Conn
}

func (c writeFailConn) Write(p []byte) (int, error) {
	if bytes.HasPrefix(p, []byte("GET ")) {
		return c.Conn.Write(p)
	}
	return 0, errors.New("broken pipe")
}

func TestStreamBacksOffWhenResubscribeFails(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	var dials atomic.Int32
	dialer := &websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dials.Add(1)
			conn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return writeFailConn{Conn: conn}, nil
		},
	}

	s := NewStream(zaptest.NewLogger(t),
		WithStreamURL("ws"+strings.TrimPrefix(srv.URL, "http")),
		WithDialer(dialer),
		WithReconnectBackoff(50*time.Millisecond),
	)
	require.NoError(t, s.Subscribe("BTC"))

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// 50ms, 100ms, 200ms between attempts: a handful of dials, not a busy loop
	got := dials.Load()
	assert.GreaterOrEqual(t, got, int32(2))
	assert.LessOrEqual(t, got, int32(6))
	assert.False(t, s.Connected())
}

package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"matchfabric/domain"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub, err := NewHub(4, zap.NewNop())
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/feed", hub.Handler())
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitSubscribers blocks until the hub has registered n subscribers;
// the handler registers just after the handshake the dialer saw.
func waitSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		got := len(hub.subs)
		hub.mu.RUnlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("hub never reached %d subscribers", n)
}

func TestHubBroadcastsTrades(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	waitSubscribers(t, hub, 1)

	trades := []domain.Trade{
		{BuyID: 2, SellID: 1, Symbol: "BTCUSDT", Price: 100, Quantity: 30, Rank: 7, Timestamp: time.Now()},
		{BuyID: 2, SellID: 3, Symbol: "BTCUSDT", Price: 100, Quantity: 10, Rank: 8, Timestamp: time.Now()},
	}
	hub.Publish("BTCUSDT", trades)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msgs []TradeMessage
	require.NoError(t, conn.ReadJSON(&msgs))
	require.Len(t, msgs, 2)
	require.Equal(t, "BTCUSDT", msgs[0].Symbol)
	require.Equal(t, uint64(7), msgs[0].Rank)
	require.Equal(t, int64(30), msgs[0].Qty)
	require.Equal(t, uint64(8), msgs[1].Rank)
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)
	a := dial(t, srv)
	b := dial(t, srv)
	waitSubscribers(t, hub, 2)

	hub.Publish("ETHUSDT", []domain.Trade{
		{BuyID: 5, SellID: 6, Symbol: "ETHUSDT", Price: 200, Quantity: 1, Rank: 9, Timestamp: time.Now()},
	})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msgs []TradeMessage
		require.NoError(t, conn.ReadJSON(&msgs))
		require.Len(t, msgs, 1)
		require.Equal(t, uint64(9), msgs[0].Rank)
	}
}

func TestHubSurvivesDisconnectedSubscriber(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv)
	waitSubscribers(t, hub, 1)
	conn.Close()

	// The hub's reader notices the close and unregisters.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		got := len(hub.subs)
		hub.mu.RUnlock()
		if got == 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// Publishing after the peer is gone must not panic or wedge; the
	// hub drops the dead subscriber on write failure.
	hub.Publish("BTCUSDT", []domain.Trade{
		{BuyID: 1, SellID: 2, Symbol: "BTCUSDT", Price: 1, Quantity: 1, Rank: 1, Timestamp: time.Now()},
	})

	live := dial(t, srv)
	waitSubscribers(t, hub, 1)
	hub.Publish("BTCUSDT", []domain.Trade{
		{BuyID: 3, SellID: 4, Symbol: "BTCUSDT", Price: 1, Quantity: 1, Rank: 2, Timestamp: time.Now()},
	})

	live.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msgs []TradeMessage
	require.NoError(t, live.ReadJSON(&msgs))
	require.Equal(t, uint64(2), msgs[0].Rank)
}

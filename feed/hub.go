// Package feed broadcasts executed trades to websocket subscribers. It
// is the default downstream consumer behind the fabric's trade sink.
package feed

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"matchfabric/domain"
)

const writeTimeout = 5 * time.Second

// TradeMessage is the wire shape of one executed trade.
type TradeMessage struct {
	Symbol string `json:"symbol"`
	BuyID  uint64 `json:"buy_id"`
	SellID uint64 `json:"sell_id"`
	Price  int64  `json:"price"`
	Qty    int64  `json:"qty"`
	Rank   uint64 `json:"rank"`
	Unix   int64  `json:"ts"`
}

// subscriber serializes writes to one connection: broadcast tasks for
// the same subscriber may run on different pool workers, and gorilla
// connections allow only one concurrent writer.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub fans trades out to all connected subscribers through a bounded
// worker pool, so one slow client cannot stall a shard's publish path.
type Hub struct {
	upgrader websocket.Upgrader
	pool     *ants.Pool
	logger   *zap.Logger

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewHub creates a hub with a broadcast pool of size workers.
func NewHub(workers int, logger *zap.Logger) (*Hub, error) {
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pool:   pool,
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}, nil
}

// Handler returns the gin handler that upgrades a request into a feed
// subscription.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("feed upgrade failed", zap.Error(err))
			return
		}
		sub := &subscriber{conn: conn}

		h.mu.Lock()
		h.subs[sub] = struct{}{}
		n := len(h.subs)
		h.mu.Unlock()
		h.logger.Info("feed subscriber connected", zap.Int("subscribers", n))

		// Reader loop: the feed is write-only, but reading is what
		// detects the peer going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					h.drop(sub)
					return
				}
			}
		}()
	}
}

// Publish implements fabric.TradeSink: it broadcasts the submission's
// trades to every subscriber. Safe for concurrent use across shards.
func (h *Hub) Publish(symbol string, trades []domain.Trade) {
	msgs := make([]TradeMessage, len(trades))
	for i, t := range trades {
		msgs[i] = TradeMessage{
			Symbol: symbol,
			BuyID:  t.BuyID,
			SellID: t.SellID,
			Price:  t.Price,
			Qty:    t.Quantity,
			Rank:   t.Rank,
			Unix:   t.Timestamp.UnixNano(),
		}
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		sub := sub
		err := h.pool.Submit(func() {
			sub.mu.Lock()
			defer sub.mu.Unlock()
			sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sub.conn.WriteJSON(msgs); err != nil {
				h.drop(sub)
			}
		})
		if err != nil {
			// Pool saturated: the feed is best-effort, never a
			// backpressure path into matching.
			h.logger.Warn("feed broadcast skipped", zap.Error(err))
		}
	}
}

// drop unregisters and closes a subscriber. Idempotent.
func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	_, present := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if present {
		sub.conn.Close()
		h.logger.Info("feed subscriber dropped")
	}
}

// Close disconnects all subscribers and releases the pool.
func (h *Hub) Close() {
	h.mu.Lock()
	for sub := range h.subs {
		sub.conn.Close()
	}
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()
	h.pool.Release()
}

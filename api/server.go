// Package api is the HTTP submission port. It validates submissions
// against the symbol whitelist, assigns order IDs, and enqueues events
// onto the ingress channel. Acceptance is decoupled from matching: a
// 200 means "queued", never "filled" - match results do not travel back
// on this path.
package api

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"matchfabric/domain"
)

// OrderRequest is the JSON body of POST /buy and POST /sell.
type OrderRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Price  int64  `json:"price" binding:"required,gt=0"`
	Qty    int64  `json:"qty" binding:"required,gt=0"`
}

// Server is the submission port.
type Server struct {
	ingress  chan<- domain.Event
	symbols  map[string]struct{}
	orderIDs atomic.Uint64
	logger   *zap.Logger
	router   *gin.Engine
}

// NewServer builds the port over the given ingress channel and symbol
// whitelist. feedHandler, when non-nil, is mounted at feedPath for the
// websocket trade feed.
func NewServer(ingress chan<- domain.Event, symbols []string, logger *zap.Logger, feedPath string, feedHandler gin.HandlerFunc) *Server {
	s := &Server{
		ingress: ingress,
		symbols: make(map[string]struct{}, len(symbols)),
		logger:  logger,
	}
	for _, sym := range symbols {
		s.symbols[sym] = struct{}{}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/buy", s.handleOrder(domain.SideBuy))
	r.POST("/sell", s.handleOrder(domain.SideSell))
	r.POST("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if feedHandler != nil {
		r.GET(feedPath, feedHandler)
	}

	s.router = r
	return s
}

// Handler returns the http.Handler for mounting on a server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleOrder(side domain.Side) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if _, ok := s.symbols[req.Symbol]; !ok {
			s.logger.Warn("submission for unknown symbol rejected",
				zap.String("symbol", req.Symbol))
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown symbol"})
			return
		}

		ev := domain.Event{
			OrderID: s.orderIDs.Add(1),
			Symbol:  req.Symbol,
			Side:    side,
			Price:   req.Price,
			Qty:     req.Qty,
		}

		select {
		case s.ingress <- ev:
			c.JSON(http.StatusOK, gin.H{
				"status":   "accepted",
				"ack":      uuid.NewString(),
				"order_id": ev.OrderID,
				"side":     side.String(),
				"symbol":   req.Symbol,
				"price":    req.Price,
				"qty":      req.Qty,
			})
		default:
			s.logger.Error("ingress channel saturated, submission refused",
				zap.String("symbol", req.Symbol))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ingress saturated"})
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "matching-engine",
	})
}

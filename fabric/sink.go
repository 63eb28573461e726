package fabric

import (
	"go.uber.org/zap"

	"matchfabric/domain"
)

// TradeSink receives the trades produced by a single submission, in
// execution order. Publish is called from shard threads and must be
// safe for concurrent use across shards; calls for one symbol are
// always sequential.
type TradeSink interface {
	Publish(symbol string, trades []domain.Trade)
}

// LogSink logs every trade. The default sink when no downstream
// consumer is wired.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs each trade with its rank.
func (s *LogSink) Publish(symbol string, trades []domain.Trade) {
	for _, t := range trades {
		s.logger.Info("trade executed",
			zap.String("symbol", symbol),
			zap.Uint64("rank", t.Rank),
			zap.Uint64("buy_id", t.BuyID),
			zap.Uint64("sell_id", t.SellID),
			zap.Int64("price", t.Price),
			zap.Int64("qty", t.Quantity),
		)
	}
}

// MultiSink fans a publication out to several sinks in order.
type MultiSink []TradeSink

// Publish forwards to every sink.
func (m MultiSink) Publish(symbol string, trades []domain.Trade) {
	for _, s := range m {
		s.Publish(symbol, trades)
	}
}

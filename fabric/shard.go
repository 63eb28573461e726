package fabric

import (
	"errors"

	"go.uber.org/zap"

	"matchfabric/domain"
	"matchfabric/matching"
	"matchfabric/metrics"
)

// Shard owns one symbol's matching book and drains its bounded input
// queue on a single thread.
//
// The loop blocks on the wakeup channel, then pops and matches events
// one at a time until the queue is empty, then blocks again. The wakeup
// is a coarse "something may be available" edge: a drain that finds the
// queue already empty is harmless, and a push racing with a drain
// cannot be missed because the router's push happens before its wakeup
// send. Closing the wakeup channel terminates the loop cleanly.
//
// No two orders for one symbol are ever matched concurrently: the book
// has exactly one owner and no locks.
type Shard struct {
	symbol string
	book   matching.Book
	input  *EventQueue
	wakeup chan struct{}
	sink   TradeSink
	logger *zap.Logger
}

// NewShard creates a shard owning book for symbol. queueSize must be a
// power of 2. sink may be nil when nothing consumes trades.
func NewShard(symbol string, book matching.Book, queueSize int, sink TradeSink, logger *zap.Logger) *Shard {
	return &Shard{
		symbol: symbol,
		book:   book,
		input:  NewEventQueue(queueSize),
		wakeup: make(chan struct{}, 1),
		sink:   sink,
		logger: logger,
	}
}

// Symbol returns the symbol this shard owns.
func (s *Shard) Symbol() string {
	return s.symbol
}

// Input returns the shard's bounded input queue. Only the fabric pushes
// to it.
func (s *Shard) Input() *EventQueue {
	return s.input
}

// Book exposes the shard's matching book for read-only queries. The
// queries race benignly with matching; treat results as a snapshot.
func (s *Shard) Book() matching.Book {
	return s.book
}

// Wakeup signals the shard that its queue may be non-empty. A pending
// signal coalesces with new ones; the shard drains the whole queue per
// wakeup, so a coalesced signal never strands an event.
func (s *Shard) Wakeup() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

// Close terminates the shard loop after its current drain.
func (s *Shard) Close() {
	close(s.wakeup)
}

// Run executes the shard loop until the wakeup channel closes. Call it
// from a dedicated, pinned thread; it never returns early.
func (s *Shard) Run() {
	s.logger.Info("shard started", zap.String("symbol", s.symbol))

	for range s.wakeup {
		metrics.QueueDepth.WithLabelValues(s.symbol).Set(float64(s.input.Len()))
		for {
			ev, ok := s.input.TryPop()
			if !ok {
				break
			}
			s.process(ev)
		}
	}

	s.logger.Info("shard shutting down", zap.String("symbol", s.symbol))
}

// process matches one event against the book and publishes its trades.
func (s *Shard) process(ev domain.Event) {
	order := domain.NewOrder(ev.OrderID, s.symbol, ev.Side, ev.Price, ev.Qty)

	trades, err := s.book.MatchOrder(order)
	if err != nil {
		// Validation failures should have been stopped at the
		// submission port; inconsistencies are bugs. Either way the
		// shard logs and carries on.
		metrics.OrdersRejected.WithLabelValues(s.symbol).Inc()
		if errors.Is(err, matching.ErrInvalidOrder) {
			s.logger.Warn("order rejected by book",
				zap.String("symbol", s.symbol),
				zap.Uint64("order_id", ev.OrderID),
				zap.Error(err))
		} else {
			s.logger.Error("matching failed",
				zap.String("symbol", s.symbol),
				zap.Uint64("order_id", ev.OrderID),
				zap.Error(err))
		}
		return
	}

	if len(trades) == 0 {
		return
	}

	metrics.TradesExecuted.WithLabelValues(s.symbol).Add(float64(len(trades)))
	if s.sink != nil {
		s.sink.Publish(s.symbol, trades)
	}
}

package fabric

import (
	"go.uber.org/zap"

	"matchfabric/domain"
	"matchfabric/metrics"
)

// Router moves events from the shared ingress channel into per-shard
// bounded queues. Any number of ingress workers may run the same
// routing loop concurrently; the channel distributes events among them.
//
// Routing is a strict map lookup by symbol. The submission port already
// rejects unknown symbols, so an unknown here is defense in depth and
// is dropped with an error log. A full shard queue also drops the event
// with a warning - the documented policy; a production deployment would
// push backpressure to the submission port instead.
type Router struct {
	ingress <-chan domain.Event
	shards  map[string]*Shard
	logger  *zap.Logger
}

// NewRouter creates a router over the given shard set.
func NewRouter(ingress <-chan domain.Event, shards map[string]*Shard, logger *zap.Logger) *Router {
	return &Router{
		ingress: ingress,
		shards:  shards,
		logger:  logger,
	}
}

// RunWorker executes one ingress worker loop until the ingress channel
// closes. Call it from a dedicated, pinned thread.
func (r *Router) RunWorker(id int) {
	r.logger.Info("ingress worker started", zap.Int("worker", id))

	for ev := range r.ingress {
		r.route(ev, id)
	}

	r.logger.Info("ingress worker shutting down", zap.Int("worker", id))
}

// route pushes one event onto its shard's queue and signals the shard.
// The push happens before the wakeup send, so a drain racing with this
// push cannot miss the event.
func (r *Router) route(ev domain.Event, id int) {
	shard, ok := r.shards[ev.Symbol]
	if !ok {
		metrics.EventsDropped.WithLabelValues(ev.Symbol, metrics.ReasonUnknownSymbol).Inc()
		r.logger.Error("event for unknown symbol dropped",
			zap.Int("worker", id),
			zap.String("symbol", ev.Symbol))
		return
	}

	if !shard.Input().TryPush(ev) {
		metrics.EventsDropped.WithLabelValues(ev.Symbol, metrics.ReasonQueueFull).Inc()
		r.logger.Warn("shard queue full, event dropped",
			zap.Int("worker", id),
			zap.String("symbol", ev.Symbol),
			zap.Uint64("order_id", ev.OrderID))
		return
	}

	metrics.EventsRouted.WithLabelValues(ev.Symbol).Inc()
	shard.Wakeup()
}

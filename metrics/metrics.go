// Package metrics holds the process-wide prometheus collectors for the
// ingress fabric and the shard workers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded on EventsDropped.
const (
	ReasonQueueFull     = "queue_full"
	ReasonUnknownSymbol = "unknown_symbol"
)

var (
	// EventsRouted counts events successfully pushed onto a shard queue.
	EventsRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfabric",
		Subsystem: "fabric",
		Name:      "events_routed_total",
		Help:      "Events routed from the ingress channel onto a shard queue.",
	}, []string{"symbol"})

	// EventsDropped counts events the fabric had to discard.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfabric",
		Subsystem: "fabric",
		Name:      "events_dropped_total",
		Help:      "Events dropped by the fabric, by reason.",
	}, []string{"symbol", "reason"})

	// TradesExecuted counts trades produced by shard matching.
	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfabric",
		Subsystem: "shard",
		Name:      "trades_total",
		Help:      "Trades executed, per symbol.",
	}, []string{"symbol"})

	// OrdersRejected counts orders the matcher refused.
	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfabric",
		Subsystem: "shard",
		Name:      "orders_rejected_total",
		Help:      "Orders rejected by the matching book.",
	}, []string{"symbol"})

	// QueueDepth samples a shard's input queue length at each drain.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "matchfabric",
		Subsystem: "shard",
		Name:      "queue_depth",
		Help:      "Shard input queue length sampled at drain time.",
	}, []string{"symbol"})
)

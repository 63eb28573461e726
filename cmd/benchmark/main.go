// Benchmark floods the full ingress fabric - channel, routers, shard
// queues, matchers - with randomized orders and reports sustained
// throughput and trade volume.
package main

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"matchfabric/domain"
	"matchfabric/engine"
	"matchfabric/matching"
)

const (
	totalOrders = 1_000_000
	producers   = 4
)

// countingSink tallies trades without the cost of a real consumer.
type countingSink struct {
	trades atomic.Uint64
}

func (s *countingSink) Publish(_ string, trades []domain.Trade) {
	s.trades.Add(uint64(len(trades)))
}

func main() {
	symbols := []engine.SymbolSpec{
		{Name: "BTCUSDT", Algorithm: matching.AlgorithmFIFO},
		{Name: "ETHUSDT", Algorithm: matching.AlgorithmProRata},
		{Name: "SOLUSDT", Algorithm: matching.AlgorithmHybrid, FIFOFraction: 0.5},
	}
	names := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

	sink := &countingSink{}
	sup, err := engine.New(engine.Options{
		Symbols:        symbols,
		IngressWorkers: 2,
		IngressBuffer:  65536,
		ShardQueueSize: 65536,
		PinCPUs:        false, // benchmark runs anywhere; pin in prod
		Sink:           sink,
		Logger:         zap.NewNop(),
	})
	if err != nil {
		panic(err)
	}
	sup.Start()

	ingress := sup.Ingress()
	var sent atomic.Uint64

	start := time.Now()
	done := make(chan struct{})
	for p := 0; p < producers; p++ {
		go func(seed int64) {
			rng := rand.New(rand.NewSource(seed))
			for {
				n := sent.Add(1)
				if n > totalOrders {
					done <- struct{}{}
					return
				}
				side := domain.SideBuy
				if rng.Intn(2) == 1 {
					side = domain.SideSell
				}
				ingress <- domain.Event{
					OrderID: n,
					Symbol:  names[rng.Intn(len(names))],
					Side:    side,
					Price:   9_990 + int64(rng.Intn(21)),
					Qty:     1 + int64(rng.Intn(100)),
				}
			}
		}(int64(p) + 1)
	}
	for p := 0; p < producers; p++ {
		<-done
	}

	// Wait for the fabric to drain before stopping the clock.
	for {
		busy := len(ingress) > 0
		for _, name := range names {
			if sup.Shard(name).Input().Len() > 0 {
				busy = true
				break
			}
		}
		if !busy {
			break
		}
		time.Sleep(time.Millisecond)
	}
	elapsed := time.Since(start)
	sup.Stop()

	fmt.Printf("orders:     %d\n", totalOrders)
	fmt.Printf("elapsed:    %s\n", elapsed)
	fmt.Printf("throughput: %.0f orders/sec\n", float64(totalOrders)/elapsed.Seconds())
	fmt.Printf("trades:     %d (global rank at %d)\n", sink.trades.Load(), matching.TradeCount())
}

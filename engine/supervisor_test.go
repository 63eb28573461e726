package engine

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchfabric/domain"
	"matchfabric/matching"
)

type recordingSink struct {
	mu     sync.Mutex
	trades []domain.Trade
}

func (s *recordingSink) Publish(_ string, trades []domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trades...)
}

func (s *recordingSink) snapshot() []domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

func testOptions(sink *recordingSink) Options {
	return Options{
		Symbols: []SymbolSpec{
			{Name: "BTCUSDT", Algorithm: matching.AlgorithmFIFO},
			{Name: "ETHUSDT", Algorithm: matching.AlgorithmProRata},
			{Name: "SOLUSDT", Algorithm: matching.AlgorithmHybrid, FIFOFraction: 0.5},
		},
		IngressWorkers: 2,
		// Large enough that no test burst can hit the drop-on-full path.
		ShardQueueSize: 4096,
		PinCPUs:        false,
		Sink:           sink,
	}
}

func TestSupervisorEndToEndMatching(t *testing.T) {
	sink := &recordingSink{}
	sup, err := New(testOptions(sink))
	require.NoError(t, err)
	sup.Start()

	ingress := sup.Ingress()
	ingress <- domain.Event{OrderID: 1, Symbol: "BTCUSDT", Side: domain.SideSell, Price: 100, Qty: 50}
	ingress <- domain.Event{OrderID: 2, Symbol: "BTCUSDT", Side: domain.SideBuy, Price: 100, Qty: 30}
	ingress <- domain.Event{OrderID: 3, Symbol: "ETHUSDT", Side: domain.SideSell, Price: 200, Qty: 10}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(sink.snapshot()) < 1 {
		time.Sleep(time.Millisecond)
	}
	sup.Stop()

	trades := sink.snapshot()
	require.Len(t, trades, 1)
	require.Equal(t, uint64(2), trades[0].BuyID)
	require.Equal(t, uint64(1), trades[0].SellID)
	require.Equal(t, int64(30), trades[0].Quantity)

	ask, ok := sup.Shard("ETHUSDT").Book().BestAsk()
	require.True(t, ok)
	require.Equal(t, uint64(3), ask.ID)
}

func TestSupervisorStopDrainsInFlightEvents(t *testing.T) {
	sink := &recordingSink{}
	sup, err := New(testOptions(sink))
	require.NoError(t, err)
	sup.Start()

	const pairs = 500
	ingress := sup.Ingress()
	for i := 0; i < pairs; i++ {
		ingress <- domain.Event{OrderID: uint64(2*i + 1), Symbol: "BTCUSDT", Side: domain.SideSell, Price: 100, Qty: 1}
		ingress <- domain.Event{OrderID: uint64(2*i + 2), Symbol: "BTCUSDT", Side: domain.SideBuy, Price: 100, Qty: 1}
	}

	// Stop closes the ingress first, joins the workers, then the
	// shards: every accepted event must have been matched.
	sup.Stop()

	require.Len(t, sink.snapshot(), pairs)
	require.True(t, sup.Shard("BTCUSDT").Book().IsEmpty())
}

func TestSupervisorGlobalRankOrderAcrossShards(t *testing.T) {
	sink := &recordingSink{}
	sup, err := New(testOptions(sink))
	require.NoError(t, err)
	sup.Start()

	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	ingress := sup.Ingress()
	for i := 0; i < 300; i++ {
		symbol := symbols[i%len(symbols)]
		ingress <- domain.Event{OrderID: uint64(2*i + 1), Symbol: symbol, Side: domain.SideSell, Price: 100, Qty: 1}
		ingress <- domain.Event{OrderID: uint64(2*i + 2), Symbol: symbol, Side: domain.SideBuy, Price: 100, Qty: 1}
	}
	sup.Stop()

	trades := sink.snapshot()
	require.NotEmpty(t, trades)
	seen := make(map[uint64]bool, len(trades))
	for _, tr := range trades {
		require.False(t, seen[tr.Rank], "rank %d issued twice", tr.Rank)
		seen[tr.Rank] = true
	}
}

func TestSupervisorRejectsEmptySymbols(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestSupervisorRejectsDuplicateSymbols(t *testing.T) {
	_, err := New(Options{
		Symbols: []SymbolSpec{
			{Name: "BTCUSDT", Algorithm: matching.AlgorithmFIFO},
			{Name: "BTCUSDT", Algorithm: matching.AlgorithmProRata},
		},
		PinCPUs: false,
	})
	require.Error(t, err)
}

func TestSupervisorCoreBudgetEnforcedWhenPinning(t *testing.T) {
	// More ingress workers than the host has cores guarantees the
	// budget check fires regardless of machine size.
	_, err := New(Options{
		Symbols:        []SymbolSpec{{Name: "BTCUSDT", Algorithm: matching.AlgorithmFIFO}},
		IngressWorkers: runtime.NumCPU() + 1,
		PinCPUs:        true,
	})
	require.Error(t, err)
}

func TestSupervisorBadBookConfig(t *testing.T) {
	_, err := New(Options{
		Symbols: []SymbolSpec{
			{Name: "SOLUSDT", Algorithm: matching.AlgorithmHybrid, FIFOFraction: 1.5},
		},
		PinCPUs: false,
	})
	require.Error(t, err)
}

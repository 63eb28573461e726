package matching

import "sync/atomic"

// tradeRank is the process-wide trade sequence source. Every trade in
// the process draws its rank from this counter, so ranks are strictly
// increasing and unique even when shards match concurrently on
// different books. atomic.Uint64.Add is a sequentially consistent RMW,
// which gives the total order the rank contract requires.
var tradeRank atomic.Uint64

// nextRank issues the next trade rank, starting at 1.
func nextRank() uint64 {
	return tradeRank.Add(1)
}

// TradeCount returns the number of trades executed process-wide.
func TradeCount() uint64 {
	return tradeRank.Load()
}

// ResetRanks rewinds the global rank counter. Only safe when no matcher
// is active; it exists for tests and demos, never call it in production.
func ResetRanks() {
	tradeRank.Store(0)
}

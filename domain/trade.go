package domain

import "time"

// Trade represents an executed match between a buy and a sell order.
//
// Trades are append-only: once created they are never mutated. Price is
// always the resting (maker) order's price. Rank is a process-global,
// strictly increasing sequence number, unique across all books, so the
// full trade stream has a total order even when shards match in parallel.
type Trade struct {
	BuyID     uint64
	SellID    uint64
	Symbol    string
	Price     int64
	Quantity  int64
	Rank      uint64
	Timestamp time.Time
}

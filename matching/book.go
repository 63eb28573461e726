package matching

import (
	"container/list"
	"fmt"
	"strings"
	"time"

	"matchfabric/domain"
)

// Algorithm selects the matching discipline of a book.
type Algorithm int

const (
	AlgorithmFIFO Algorithm = iota
	AlgorithmProRata
	AlgorithmHybrid
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmFIFO:
		return "fifo"
	case AlgorithmProRata:
		return "prorata"
	case AlgorithmHybrid:
		return "hybrid"
	}
	return "unknown"
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "fifo":
		return AlgorithmFIFO, nil
	case "prorata", "pro-rata", "pro_rata":
		return AlgorithmProRata, nil
	case "hybrid":
		return AlgorithmHybrid, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// LevelInfo is one aggregated price level of a depth report.
type LevelInfo struct {
	Price  int64
	Volume int64
	Orders int
}

// Book is the per-symbol matching book contract shared by the three
// disciplines.
//
// MatchOrder consumes a fresh incoming order, returns the trades it
// produced in execution order, and leaves the book consistent: any
// unfilled remainder rests at the tail of its side, partial fills have
// their quantities decremented, fully filled orders are removed. A
// trade always prints at the resting order's price; the aggressor's
// limit decides eligibility only.
//
// An invalid incoming order (zero quantity or non-positive price)
// returns ErrInvalidOrder and leaves the book untouched.
//
// Books are not safe for concurrent use. Each book is owned by exactly
// one shard thread; the read-only queries are safe there and best-effort
// anywhere else.
type Book interface {
	MatchOrder(incoming *domain.Order) ([]domain.Trade, error)

	BestBid() (domain.Order, bool)
	BestAsk() (domain.Order, bool)
	BidDepth() int
	AskDepth() int
	IsEmpty() bool
	Clear()

	// Depth reports up to levels aggregated price levels per side.
	Depth(levels int) (bids, asks []LevelInfo)

	// Bids and Asks snapshot resting orders in priority order.
	Bids() []domain.Order
	Asks() []domain.Order
}

// NewBook builds a book for symbol with the given discipline.
// fifoFraction only applies to AlgorithmHybrid and must be in [0, 1].
func NewBook(symbol string, alg Algorithm, fifoFraction float64) (Book, error) {
	switch alg {
	case AlgorithmFIFO:
		return NewFIFOBook(symbol), nil
	case AlgorithmProRata:
		return NewProRataBook(symbol), nil
	case AlgorithmHybrid:
		return NewHybridBook(symbol, fifoFraction)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, alg)
}

// baseBook carries the two sides and the operations all three
// disciplines share.
type baseBook struct {
	symbol string
	bids   *bookSide
	asks   *bookSide
}

func newBaseBook(symbol string) baseBook {
	return baseBook{
		symbol: symbol,
		bids:   newBookSide(true),
		asks:   newBookSide(false),
	}
}

func validate(o *domain.Order) error {
	if o.Remaining() <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if o.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	return nil
}

// sides returns (opposite, own) for an incoming order.
func (b *baseBook) sides(incoming *domain.Order) (*bookSide, *bookSide) {
	if incoming.Side == domain.SideBuy {
		return b.asks, b.bids
	}
	return b.bids, b.asks
}

// crosses reports whether the aggressor's limit reaches the given
// resting price.
func crosses(incoming *domain.Order, restingPrice int64) bool {
	if incoming.Side == domain.SideBuy {
		return incoming.Price >= restingPrice
	}
	return incoming.Price <= restingPrice
}

// execute fills qty units between the aggressor and a resting order and
// emits the trade at the resting price.
func (b *baseBook) execute(incoming, resting *domain.Order, qty int64) domain.Trade {
	incoming.Fill(qty)
	resting.Fill(qty)

	buyID, sellID := incoming.ID, resting.ID
	if incoming.Side == domain.SideSell {
		buyID, sellID = resting.ID, incoming.ID
	}

	return domain.Trade{
		BuyID:     buyID,
		SellID:    sellID,
		Symbol:    b.symbol,
		Price:     resting.Price,
		Quantity:  qty,
		Rank:      nextRank(),
		Timestamp: time.Now(),
	}
}

// rest appends the aggressor's remainder to the tail of its own side.
func (b *baseBook) rest(incoming *domain.Order) {
	_, own := b.sides(incoming)
	own.add(incoming)
}

// proRataAtLevel allocates q units of the aggressor across the resting
// orders of lv proportionally to their remaining sizes, distributing
// the floor remainder one unit at a time in arrival order, then
// executes one trade per nonzero allocation in that same order.
//
// The allocation contract: with resting sizes r_i, total T and
// Q = min(q, T), each allocation is floor(Q*r_i/T) plus at most one
// remainder unit, the allocations sum to exactly Q, and none exceeds
// its r_i. Only this level is touched - pro-rata never spills into the
// next price level on a single submission.
func (b *baseBook) proRataAtLevel(incoming *domain.Order, opp *bookSide, lv *priceLevel, q int64, trades []domain.Trade) ([]domain.Trade, error) {
	if q <= 0 || lv == nil || lv.orders.Len() == 0 {
		return trades, nil
	}

	type allocation struct {
		elem  *list.Element
		order *domain.Order
		size  int64
		qty   int64
	}

	eligible := make([]allocation, 0, lv.orders.Len())
	var total int64
	for e := lv.orders.Front(); e != nil; e = e.Next() {
		o := e.Value.(*domain.Order)
		eligible = append(eligible, allocation{elem: e, order: o, size: o.Remaining()})
		total += o.Remaining()
	}
	if total <= 0 {
		return trades, fmt.Errorf("%w: empty level at price %d", ErrBookInconsistency, lv.price)
	}

	if q > total {
		q = total
	}

	var allocated int64
	for i := range eligible {
		share := q * eligible[i].size / total
		eligible[i].qty = share
		allocated += share
	}

	// Remainder goes to time priority: one unit each, in arrival order.
	for i := 0; allocated < q; i++ {
		eligible[i].qty++
		allocated++
	}

	for i := range eligible {
		a := &eligible[i]
		if a.qty == 0 {
			continue
		}
		trades = append(trades, b.execute(incoming, a.order, a.qty))
		opp.reduce(lv, a.qty)
		if a.order.IsFilled() {
			opp.unlink(lv, a.elem)
		}
	}

	return trades, nil
}

// BestBid returns the head order of the highest bid level.
func (b *baseBook) BestBid() (domain.Order, bool) { return b.bids.bestOrder() }

// BestAsk returns the head order of the lowest ask level.
func (b *baseBook) BestAsk() (domain.Order, bool) { return b.asks.bestOrder() }

// BidDepth returns the count of resting bids.
func (b *baseBook) BidDepth() int { return b.bids.depth() }

// AskDepth returns the count of resting asks.
func (b *baseBook) AskDepth() int { return b.asks.depth() }

// IsEmpty reports whether both sides are empty.
func (b *baseBook) IsEmpty() bool { return b.bids.isEmpty() && b.asks.isEmpty() }

// Clear drops all resting orders on both sides.
func (b *baseBook) Clear() {
	b.bids.clear()
	b.asks.clear()
}

// Depth reports up to levels aggregated price levels per side.
func (b *baseBook) Depth(levels int) (bids, asks []LevelInfo) {
	return b.bids.levels(levels), b.asks.levels(levels)
}

// Bids snapshots resting bids in priority order.
func (b *baseBook) Bids() []domain.Order { return b.bids.snapshot() }

// Asks snapshots resting asks in priority order.
func (b *baseBook) Asks() []domain.Order { return b.asks.snapshot() }

package matching

import (
	"fmt"

	"matchfabric/domain"
)

// DefaultFIFOFraction is the hybrid split used when none is configured.
const DefaultFIFOFraction = 0.5

// HybridBook blends FIFO and pro-rata matching at the best opposite
// price level.
//
// On each crossing submission the aggressor's quantity splits into
// qFIFO = floor(qTotal * fifoFraction) consumed in strict time order,
// and the rest allocated pro rata across the level's residual orders.
// FIFO-phase trades always precede pro-rata-phase trades in the result,
// and every trade prints at the best opposite price captured before the
// first fill.
type HybridBook struct {
	baseBook
	fifoFraction float64
}

var _ Book = (*HybridBook)(nil)

// NewHybridBook creates an empty hybrid book for symbol.
// fifoFraction must be in [0, 1]; 0 degenerates to pure pro-rata and 1
// to best-level-only FIFO.
func NewHybridBook(symbol string, fifoFraction float64) (*HybridBook, error) {
	if fifoFraction < 0 || fifoFraction > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFraction, fifoFraction)
	}
	return &HybridBook{
		baseBook:     newBaseBook(symbol),
		fifoFraction: fifoFraction,
	}, nil
}

// FIFOFraction returns the configured split.
func (b *HybridBook) FIFOFraction() float64 {
	return b.fifoFraction
}

// MatchOrder matches incoming with the hybrid discipline.
func (b *HybridBook) MatchOrder(incoming *domain.Order) ([]domain.Trade, error) {
	if err := validate(incoming); err != nil {
		return nil, err
	}

	opp, _ := b.sides(incoming)

	lv := opp.best()
	if lv == nil || !crosses(incoming, lv.price) {
		b.rest(incoming)
		return nil, nil
	}

	qTotal := incoming.Remaining()
	qFIFO := int64(float64(qTotal) * b.fifoFraction)
	qPro := qTotal - qFIFO

	var trades []domain.Trade

	// FIFO phase: consume up to qFIFO units at the captured level, in
	// time order.
	budget := qFIFO
	for budget > 0 {
		front := lv.orders.Front()
		if front == nil {
			break
		}
		resting := front.Value.(*domain.Order)

		qty := min(budget, resting.Remaining())
		trades = append(trades, b.execute(incoming, resting, qty))
		opp.reduce(lv, qty)
		budget -= qty

		if resting.IsFilled() {
			opp.unlink(lv, front)
		}
	}

	// Pro-rata phase over whatever the FIFO phase left at the level.
	trades, err := b.proRataAtLevel(incoming, opp, lv, qPro, trades)
	if err != nil {
		return trades, err
	}

	if incoming.Remaining() > 0 {
		b.rest(incoming)
	}

	return trades, nil
}

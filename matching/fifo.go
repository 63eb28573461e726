package matching

import (
	"fmt"

	"matchfabric/domain"
)

// FIFOBook matches with strict price-time priority.
//
// While the aggressor has remaining quantity and the opposite side's
// best level crosses, it trades against that level's head order for
// min(remaining, remaining) units at the resting price. A fully filled
// resting order is removed and the head advances; a partial fill stays
// at the head with reduced quantity. Among orders at one price, the
// earlier arrival is always consumed first.
type FIFOBook struct {
	baseBook
}

var _ Book = (*FIFOBook)(nil)

// NewFIFOBook creates an empty FIFO book for symbol.
func NewFIFOBook(symbol string) *FIFOBook {
	return &FIFOBook{baseBook: newBaseBook(symbol)}
}

// MatchOrder matches incoming against the book with FIFO discipline.
func (b *FIFOBook) MatchOrder(incoming *domain.Order) ([]domain.Trade, error) {
	if err := validate(incoming); err != nil {
		return nil, err
	}

	opp, _ := b.sides(incoming)
	var trades []domain.Trade

	for incoming.Remaining() > 0 {
		lv := opp.best()
		if lv == nil || !crosses(incoming, lv.price) {
			break
		}

		front := lv.orders.Front()
		if front == nil {
			return trades, fmt.Errorf("%w: empty level at price %d", ErrBookInconsistency, lv.price)
		}
		resting := front.Value.(*domain.Order)

		qty := min(incoming.Remaining(), resting.Remaining())
		trades = append(trades, b.execute(incoming, resting, qty))
		opp.reduce(lv, qty)

		if resting.IsFilled() {
			opp.unlink(lv, front)
		}
	}

	if incoming.Remaining() > 0 {
		b.rest(incoming)
	}

	return trades, nil
}

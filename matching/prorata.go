package matching

import "matchfabric/domain"

// ProRataBook allocates fills proportionally to resting size.
//
// Only the best opposite price level is eligible on a submission: if
// the aggressor crosses it, its quantity (capped at the level's total)
// is split across the level's orders by floor(Q*r_i/T), with the
// rounding remainder handed out one unit at a time in arrival order.
// The aggressor never walks to the next price level - whatever the best
// level cannot absorb comes to rest on the aggressor's own side.
type ProRataBook struct {
	baseBook
}

var _ Book = (*ProRataBook)(nil)

// NewProRataBook creates an empty pro-rata book for symbol.
func NewProRataBook(symbol string) *ProRataBook {
	return &ProRataBook{baseBook: newBaseBook(symbol)}
}

// MatchOrder matches incoming against the best opposite level pro rata.
func (b *ProRataBook) MatchOrder(incoming *domain.Order) ([]domain.Trade, error) {
	if err := validate(incoming); err != nil {
		return nil, err
	}

	opp, _ := b.sides(incoming)

	lv := opp.best()
	if lv == nil || !crosses(incoming, lv.price) {
		b.rest(incoming)
		return nil, nil
	}

	trades, err := b.proRataAtLevel(incoming, opp, lv, incoming.Remaining(), nil)
	if err != nil {
		return trades, err
	}

	if incoming.Remaining() > 0 {
		b.rest(incoming)
	}

	return trades, nil
}

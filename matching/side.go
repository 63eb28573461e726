package matching

import (
	"container/list"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"matchfabric/domain"
)

// priceLevel holds all resting orders at one price, in arrival order.
type priceLevel struct {
	price  int64
	orders *list.List // FIFO queue of *domain.Order
	volume int64      // sum of remaining quantities
}

// bookSide is one side of a matching book: an ordered price index over
// FIFO level queues. The red-black tree is keyed with a side-aware
// comparator so the leftmost node is always the best price - highest
// for bids, lowest for asks. That keeps the head-is-best invariant true
// by construction, no matter at what price an order comes to rest.
//
// Lock-free by ownership: a side is only ever touched by the single
// thread that owns its book.
type bookSide struct {
	tree  *rbt.Tree[int64, *priceLevel]
	count int // resting orders across all levels
}

func newBookSide(descending bool) *bookSide {
	var comparator func(a, b int64) int
	if descending {
		// Bids: higher price is better
		comparator = func(a, b int64) int {
			if a > b {
				return -1
			} else if a < b {
				return 1
			}
			return 0
		}
	} else {
		// Asks: lower price is better
		comparator = func(a, b int64) int {
			if a < b {
				return -1
			} else if a > b {
				return 1
			}
			return 0
		}
	}

	return &bookSide{
		tree: rbt.NewWith[int64, *priceLevel](comparator),
	}
}

// add rests an order at the tail of its price level, creating the level
// if this is the first order at that price.
func (s *bookSide) add(o *domain.Order) {
	lv, found := s.tree.Get(o.Price)
	if !found {
		lv = &priceLevel{
			price:  o.Price,
			orders: list.New(),
		}
		s.tree.Put(o.Price, lv)
	}
	lv.orders.PushBack(o)
	lv.volume += o.Remaining()
	s.count++
}

// best returns the best price level, or nil when the side is empty.
func (s *bookSide) best() *priceLevel {
	node := s.tree.Left()
	if node == nil {
		return nil
	}
	return node.Value
}

// bestOrder returns the head order of the best level.
func (s *bookSide) bestOrder() (domain.Order, bool) {
	lv := s.best()
	if lv == nil {
		return domain.Order{}, false
	}
	front := lv.orders.Front()
	if front == nil {
		return domain.Order{}, false
	}
	return *front.Value.(*domain.Order), true
}

// reduce records qty units filled against an order resting in lv.
func (s *bookSide) reduce(lv *priceLevel, qty int64) {
	lv.volume -= qty
}

// unlink removes a fully filled order's element from its level and
// drops the level if it emptied.
func (s *bookSide) unlink(lv *priceLevel, elem *list.Element) {
	lv.orders.Remove(elem)
	s.count--
	if lv.orders.Len() == 0 {
		s.tree.Remove(lv.price)
	}
}

// depth returns the count of resting orders on this side.
func (s *bookSide) depth() int {
	return s.count
}

func (s *bookSide) isEmpty() bool {
	return s.count == 0
}

// clear drops all resting orders. Test and demo affordance.
func (s *bookSide) clear() {
	s.tree.Clear()
	s.count = 0
}

// snapshot copies all resting orders in priority order, best level
// first, arrival order within a level.
func (s *bookSide) snapshot() []domain.Order {
	out := make([]domain.Order, 0, s.count)
	it := s.tree.Iterator()
	for it.Next() {
		lv := it.Value()
		for e := lv.orders.Front(); e != nil; e = e.Next() {
			out = append(out, *e.Value.(*domain.Order))
		}
	}
	return out
}

// levels reports up to max price levels from the best, with aggregate
// volume and order counts.
func (s *bookSide) levels(max int) []LevelInfo {
	out := make([]LevelInfo, 0, max)
	it := s.tree.Iterator()
	for it.Next() && len(out) < max {
		lv := it.Value()
		out = append(out, LevelInfo{
			Price:  lv.price,
			Volume: lv.volume,
			Orders: lv.orders.Len(),
		})
	}
	return out
}

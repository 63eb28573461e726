package domain

// Event is one item in the ingress pipeline: an accepted submission on
// its way from the submission port to a shard. Produced once by the
// port, consumed exactly once by the owning shard.
//
// OrderID is assigned by the submission port at acceptance time so that
// order identity is fixed before the event crosses any thread boundary.
type Event struct {
	OrderID uint64
	Symbol  string
	Side    Side
	Price   int64
	Qty     int64
}

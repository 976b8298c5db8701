package domain

// OrderbookLevel is a single price+size rung in an orderbook.
type OrderbookLevel struct {
	Price float64
	Size  float64
}

// Orderbook is a point-in-time snapshot of bids and asks for an outcome
// token. Bids are sorted descending by price, asks ascending. Synthetic
// marks books reconstructed from sparse history rather than observed from
// the live CLOB feed.
type Orderbook struct {
	Timestamp int64
	Market    string
	TokenID   string
	Bids      []OrderbookLevel
	Asks      []OrderbookLevel
	Synthetic bool
}

// BestBid returns the highest bid price, or 0 when there are no bids.
func (ob Orderbook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 when there are no asks.
func (ob Orderbook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Mid returns the midpoint of the best bid and ask, or 0 when either side
// is empty.
func (ob Orderbook) Mid() float64 {
	if len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return 0
	}
	return (ob.Bids[0].Price + ob.Asks[0].Price) / 2
}

package domain

// TradeSide is the taker direction of a fill relative to the outcome token.
type TradeSide string

const (
	TradeBuy  TradeSide = "BUY"
	TradeSell TradeSide = "SELL"
)

// Trade is an on-chain order-filled event for an outcome token. Timestamps
// are Unix seconds; Price is in [0,1]; Size is the token amount (whole
// tokens, converted from the 6-decimal on-chain representation). Ordering by
// timestamp is not guaranteed on ingestion.
type Trade struct {
	Timestamp int64
	Price     float64
	Size      float64
	Side      TradeSide
	OrderID   string
	TokenID   string
}

// RawFill is an unprocessed order-filled event as returned by the Goldsky
// subgraph. One of the asset IDs is the outcome token, the other is USDC
// (asset ID "0"); amounts are in 6-decimal fixed point.
type RawFill struct {
	ID                string
	Timestamp         int64
	MakerAssetID      string
	MakerAmountFilled int64
	TakerAssetID      string
	TakerAmountFilled int64
}

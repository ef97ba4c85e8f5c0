package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the broker order kind.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// TimeInForce controls how long an order stays working at the broker.
type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
)

// OrderRequest is a single order produced by the signal and sizing stages.
// It is consumed exactly once by an execution gateway.
type OrderRequest struct {
	Symbol        string      `json:"symbol"`
	Qty           int64       `json:"qty"`
	Side          Side        `json:"side"`
	Type          OrderType   `json:"type"`
	TimeInForce   TimeInForce `json:"time_in_force"`
	ClientOrderID string      `json:"client_order_id"`

	// RefPrice is the close the order was sized against (not sent to the broker).
	RefPrice decimal.Decimal `json:"ref_price"`
}

// Valid reports whether the request can be sent to a broker.
func (o OrderRequest) Valid() bool {
	return o.Symbol != "" && o.Qty > 0 && (o.Side == SideBuy || o.Side == SideSell)
}

// OrderConfirmation is the broker's acknowledgement of a submitted order.
type OrderConfirmation struct {
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Qty           int64     `json:"qty"`
	Side          Side      `json:"side"`
	Status        string    `json:"status"` // accepted, new, filled, ...
	SubmittedAt   time.Time `json:"submitted_at"`
}

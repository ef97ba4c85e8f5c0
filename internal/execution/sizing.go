package execution

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"equity-signalbot/internal/model"
	"equity-signalbot/internal/strategy"
)

// SizingConfig controls how decisions become order quantities.
type SizingConfig struct {
	// Capital caps the cash committed to a single buy.
	Capital     decimal.Decimal
	OrderType   model.OrderType
	TimeInForce model.TimeInForce
}

// Sizer converts decisions into order requests.
//
// BUY:  qty = floor(min(cash, Capital) / lastClose)
// SELL: qty = shares currently held (long only, never shorts)
type Sizer struct {
	cfg   SizingConfig
	newID func() string
}

// NewSizer creates a Sizer. Client order ids are random UUIDs.
func NewSizer(cfg SizingConfig) *Sizer {
	if cfg.OrderType == "" {
		cfg.OrderType = model.OrderMarket
	}
	if cfg.TimeInForce == "" {
		cfg.TimeInForce = model.TIFGTC
	}
	return &Sizer{cfg: cfg, newID: uuid.NewString}
}

// Size builds the order for d. When there is nothing to send, ok is false
// and skip says why.
func (s *Sizer) Size(d strategy.Decision, lastClose decimal.Decimal, acct model.AccountState, pos model.Position, held bool) (req model.OrderRequest, skip string, ok bool) {
	if !d.Actionable() {
		return model.OrderRequest{}, "decision is " + string(d.Signal), false
	}
	if !lastClose.IsPositive() {
		return model.OrderRequest{}, "no usable last close", false
	}

	req = model.OrderRequest{
		Symbol:        d.Symbol,
		Type:          s.cfg.OrderType,
		TimeInForce:   s.cfg.TimeInForce,
		ClientOrderID: s.newID(),
		RefPrice:      lastClose,
	}

	switch d.Signal {
	case strategy.SignalBuy:
		budget := decimal.Min(acct.Cash, s.cfg.Capital)
		if !budget.IsPositive() {
			return model.OrderRequest{}, fmt.Sprintf("no cash to deploy (cash=%s)", acct.Cash.StringFixed(2)), false
		}
		qty := budget.Div(lastClose).Floor().IntPart()
		if qty < 1 {
			return model.OrderRequest{}, fmt.Sprintf("budget %s buys less than one share at %s",
				budget.StringFixed(2), lastClose.StringFixed(4)), false
		}
		req.Side = model.SideBuy
		req.Qty = qty

	case strategy.SignalSell:
		if !held || pos.Qty <= 0 {
			return model.OrderRequest{}, "no long position to sell", false
		}
		req.Side = model.SideSell
		req.Qty = pos.Qty
	}

	if !req.Valid() {
		return model.OrderRequest{}, "decision does not map to a valid order", false
	}
	return req, "", true
}

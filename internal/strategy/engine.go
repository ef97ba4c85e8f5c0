// Package strategy turns indicator vectors into trade decisions.
//
// A Strategy looks at one bar of an indicator.Vector and emits a Decision
// (BUY/SELL/HOLD) bound to that bar. Decisions are derived, never stored:
// a decision is only valid for the symbol and bar it was computed from.
package strategy

import (
	"fmt"
	"time"

	"equity-signalbot/internal/indicator"
)

// Signal is the discrete trade decision for a bar.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Decision is a Signal bound to one bar of one symbol.
type Decision struct {
	Symbol  string    `json:"symbol"`
	Signal  Signal    `json:"signal"`
	BarDate time.Time `json:"bar_date"`
	Index   int       `json:"index"`
	Reason  string    `json:"reason"`
}

// Actionable reports whether the decision asks for an order.
func (d Decision) Actionable() bool { return d.Signal == SignalBuy || d.Signal == SignalSell }

// ValidFor reports whether the decision may drive an order for symbol.
func (d Decision) ValidFor(symbol string) error {
	if d.Symbol != symbol {
		return fmt.Errorf("decision for %s cannot be applied to %s", d.Symbol, symbol)
	}
	return nil
}

// Strategy is the interface that all decision rules implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Decide evaluates the bar at idx. It never panics: missing data yields HOLD.
	Decide(vec *indicator.Vector, idx int) Decision
}

// DecideLatest evaluates the most recent bar of vec.
func DecideLatest(s Strategy, vec *indicator.Vector) Decision {
	if vec == nil {
		return s.Decide(nil, -1)
	}
	return s.Decide(vec, vec.Len()-1)
}

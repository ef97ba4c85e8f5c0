package strategy

import (
	"fmt"

	"equity-signalbot/internal/indicator"
)

// Thresholds are the RSI bounds used by Momentum.
type Thresholds struct {
	Oversold   float64 `yaml:"rsi_oversold"`
	Overbought float64 `yaml:"rsi_overbought"`
}

// DefaultThresholds returns the classic 30/70 RSI bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{Oversold: 30, Overbought: 70}
}

// Validate checks 0 <= oversold < overbought <= 100.
func (t Thresholds) Validate() error {
	if t.Oversold < 0 || t.Overbought > 100 || t.Oversold >= t.Overbought {
		return fmt.Errorf("invalid RSI thresholds: oversold=%.2f overbought=%.2f", t.Oversold, t.Overbought)
	}
	return nil
}

// Momentum combines RSI extremes with the MACD/signal relation.
//
// Rules, first match wins:
//
//	BUY  if RSI < oversold AND MACD > signal
//	SELL if RSI > overbought OR MACD < signal
//	HOLD otherwise
//
// SELL is only considered once BUY has failed. Missing RSI, MACD or signal
// values force HOLD.
type Momentum struct {
	th Thresholds
}

// NewMomentum creates a momentum strategy with the given thresholds.
func NewMomentum(th Thresholds) *Momentum {
	return &Momentum{th: th}
}

func (m *Momentum) Name() string { return "RSI_MACD_Momentum" }

// Decide evaluates the bar at idx.
func (m *Momentum) Decide(vec *indicator.Vector, idx int) Decision {
	if vec == nil {
		return Decision{Signal: SignalHold, Index: idx, Reason: "no indicator data"}
	}
	d := Decision{Symbol: vec.Symbol, Signal: SignalHold, Index: idx}

	p, ok := vec.At(idx)
	if !ok {
		d.Reason = fmt.Sprintf("bar %d out of range (len=%d)", idx, vec.Len())
		return d
	}
	d.BarDate = p.Date

	if !p.RSI.HasValue || !p.MACD.HasValue || !p.MACDSignal.HasValue {
		d.Reason = "insufficient data for RSI/MACD"
		return d
	}
	rsi, macd, sig := p.RSI.Value, p.MACD.Value, p.MACDSignal.Value

	switch {
	case rsi < m.th.Oversold && macd > sig:
		d.Signal = SignalBuy
		d.Reason = fmt.Sprintf("RSI %.2f < %.0f and MACD %.4f > signal %.4f", rsi, m.th.Oversold, macd, sig)
	case rsi > m.th.Overbought:
		d.Signal = SignalSell
		d.Reason = fmt.Sprintf("RSI %.2f > %.0f", rsi, m.th.Overbought)
	case macd < sig:
		d.Signal = SignalSell
		d.Reason = fmt.Sprintf("MACD %.4f < signal %.4f", macd, sig)
	default:
		d.Reason = fmt.Sprintf("RSI %.2f, MACD %.4f vs signal %.4f: no rule matched", rsi, macd, sig)
	}
	return d
}

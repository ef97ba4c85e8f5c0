package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one trading day's close for a single symbol.
// Date is normalized to midnight UTC so two bars for the same session compare equal.
type PriceBar struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// NewPriceBar builds a bar with its date truncated to the trading day.
func NewPriceBar(date time.Time, close decimal.Decimal) PriceBar {
	return PriceBar{Date: DayOf(date), Close: close}
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// PriceSeries is an immutable, chronologically ordered run of daily closes.
// Build one with NewPriceSeries; the zero value is an empty series.
type PriceSeries struct {
	symbol string
	source string
	bars   []PriceBar
}

// NewPriceSeries validates and copies bars into a series.
// Bars are sorted by date; duplicate dates and non-positive closes are rejected.
func NewPriceSeries(symbol, source string, bars []PriceBar) (PriceSeries, error) {
	cp := make([]PriceBar, len(bars))
	for i, b := range bars {
		b.Date = DayOf(b.Date)
		if !b.Close.IsPositive() {
			return PriceSeries{}, fmt.Errorf("bar %s: close %s is not positive", b.Date.Format("2006-01-02"), b.Close)
		}
		cp[i] = b
	}
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })
	for i := 1; i < len(cp); i++ {
		if cp[i].Date.Equal(cp[i-1].Date) {
			return PriceSeries{}, fmt.Errorf("duplicate bar for %s", cp[i].Date.Format("2006-01-02"))
		}
	}
	return PriceSeries{symbol: symbol, source: source, bars: cp}, nil
}

// Symbol returns the ticker the series belongs to.
func (s PriceSeries) Symbol() string { return s.symbol }

// Source names the provider that produced the series.
func (s PriceSeries) Source() string { return s.source }

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.bars) }

// Bar returns the i-th bar (0 = oldest).
func (s PriceSeries) Bar(i int) PriceBar { return s.bars[i] }

// Bars returns a copy of the bars so callers cannot mutate the series.
func (s PriceSeries) Bars() []PriceBar {
	out := make([]PriceBar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Last returns the most recent bar. ok is false for an empty series.
func (s PriceSeries) Last() (bar PriceBar, ok bool) {
	if len(s.bars) == 0 {
		return PriceBar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Tail returns a new series holding at most the n most recent bars.
func (s PriceSeries) Tail(n int) PriceSeries {
	if n <= 0 || n >= len(s.bars) {
		return s
	}
	out := make([]PriceBar, n)
	copy(out, s.bars[len(s.bars)-n:])
	return PriceSeries{symbol: s.symbol, source: s.source, bars: out}
}

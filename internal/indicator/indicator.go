// Package indicator provides technical indicator calculations over daily close series.
//
// The building blocks (EMA, SMA, RSI, MACD) are incremental: each Update feeds
// one close and recalculates in O(1). Compute drives them across a whole
// model.PriceSeries and returns a Vector aligned bar-for-bar with the series.
package indicator

// Indicator is the interface for the incremental indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_50", "EMA_12").
	Name() string

	// Update feeds the next close and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Only meaningful when Ready.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// Optional is a value that may be absent, e.g. an SMA whose window is not full yet.
type Optional[T any] struct {
	Value    T
	HasValue bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, HasValue: true}
}

// None returns an absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// sample reads an indicator into an Optional.
func sample(ind Indicator) Optional[float64] {
	if !ind.Ready() {
		return None[float64]()
	}
	return Some(ind.Value())
}

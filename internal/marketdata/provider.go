// Package marketdata fetches daily close series for a symbol from an ordered
// chain of providers.
//
// The chain is a list of Steps tried in sequence. The first step that yields
// enough bars wins and later steps are never called. Provider errors, panics
// and timeouts are absorbed into a uniform Attempt record and never escape
// Fetch; only ErrNotAvailable does, once every step is exhausted or a
// delisting gate stops the chain.
package marketdata

import (
	"context"
	"errors"
	"time"

	"equity-signalbot/internal/model"
)

var (
	// ErrProviderUnavailable marks a failed call to a single provider
	// (network, auth, malformed payload, timeout, open breaker).
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNotAvailable means no provider could supply a series this cycle.
	ErrNotAvailable = errors.New("price series not available")
)

// Provider returns daily closes for a symbol, oldest first or in any order.
// An empty slice with a nil error means the provider has no data.
type Provider interface {
	Name() string
	Bars(ctx context.Context, symbol string, lookback int) ([]model.PriceBar, error)
}

// DelistChecker reports whether a symbol is delisted or inactive.
type DelistChecker interface {
	Delisted(ctx context.Context, symbol string) (bool, error)
}

// Step is one entry in the fallback chain. When Gate is set it is consulted
// before the step runs; a delisted verdict ends the chain.
type Step struct {
	Provider Provider
	Lookback int
	Gate     DelistChecker
}

// Outcome classifies a single step.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeEmpty
	OutcomeFailed
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Attempt is the uniform result of running one step.
type Attempt struct {
	Provider string
	Outcome  Outcome
	Bars     int
	Err      error
	Elapsed  time.Duration
}

// Observer receives every attempt, e.g. for metrics. Implementations must be
// cheap; they are called inline.
type Observer interface {
	ObserveAttempt(symbol string, a Attempt)
	ObserveFallback(symbol, from, to string)
}

package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"equity-signalbot/internal/logger"
	"equity-signalbot/internal/model"
)

// ErrDelisted is returned when a delisting gate stops the chain.
var ErrDelisted = fmt.Errorf("%w: symbol delisted or inactive", ErrNotAvailable)

const defaultTimeout = 15 * time.Second

// Options tunes a Source.
type Options struct {
	// Timeout bounds every provider and gate call. Zero means 15s.
	Timeout time.Duration
	// MinBars is the minimum series length accepted from a step. Zero means 1.
	MinBars int
	// Observer, when set, is notified of every attempt.
	Observer Observer
	Logger   *slog.Logger
}

// Source runs the fallback chain for a symbol.
type Source struct {
	steps []Step
	opts  Options
	log   *slog.Logger
}

// NewSource builds a Source from an ordered list of steps.
func NewSource(steps []Step, opts Options) (*Source, error) {
	if len(steps) == 0 {
		return nil, errors.New("marketdata: at least one step is required")
	}
	for i, st := range steps {
		if st.Provider == nil {
			return nil, fmt.Errorf("marketdata: step %d has no provider", i)
		}
		if st.Lookback <= 0 {
			return nil, fmt.Errorf("marketdata: step %d (%s) lookback must be positive", i, st.Provider.Name())
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MinBars <= 0 {
		opts.MinBars = 1
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Source{
		steps: append([]Step(nil), steps...),
		opts:  opts,
		log:   lg.With(slog.String("component", "marketdata")),
	}, nil
}

// Fetch returns the first acceptable series in chain order.
// The only error it returns wraps ErrNotAvailable.
func (s *Source) Fetch(ctx context.Context, symbol string) (model.PriceSeries, error) {
	series, _, err := s.FetchTrace(ctx, symbol)
	return series, err
}

// FetchTrace is Fetch plus the list of attempts made, in order.
func (s *Source) FetchTrace(ctx context.Context, symbol string) (model.PriceSeries, []Attempt, error) {
	attempts := make([]Attempt, 0, len(s.steps))
	lg := s.log.With(append(logger.Attrs(ctx), slog.String("symbol", symbol))...)

	for i, st := range s.steps {
		if err := ctx.Err(); err != nil {
			return model.PriceSeries{}, attempts, fmt.Errorf("%w: %s: %w", ErrNotAvailable, symbol, err)
		}
		name := st.Provider.Name()
		if i > 0 {
			prev := s.steps[i-1].Provider.Name()
			lg.Warn("falling back to next provider", slog.String("from", prev), slog.String("to", name))
			if s.opts.Observer != nil {
				s.opts.Observer.ObserveFallback(symbol, prev, name)
			}
		}

		if st.Gate != nil {
			delisted, err := s.checkGate(ctx, st.Gate, symbol)
			switch {
			case err != nil:
				lg.Warn("delisting check failed, continuing", slog.String("provider", name), slog.String("reason", err.Error()))
			case delisted:
				a := Attempt{Provider: name, Outcome: OutcomeSkipped, Err: ErrDelisted}
				attempts = append(attempts, a)
				s.observe(symbol, a)
				lg.Warn("symbol flagged delisted, skipping remaining providers", slog.String("provider", name))
				return model.PriceSeries{}, attempts, fmt.Errorf("%s: %w", symbol, ErrDelisted)
			}
		}

		a, series := s.try(ctx, st, symbol)
		attempts = append(attempts, a)
		s.observe(symbol, a)

		switch a.Outcome {
		case OutcomeOK:
			lg.Info("price series fetched",
				slog.String("provider", name),
				slog.Int("bars", a.Bars),
				slog.Duration("elapsed", a.Elapsed))
			return series, attempts, nil
		case OutcomeEmpty:
			lg.Warn("provider returned insufficient data",
				slog.String("provider", name),
				slog.Int("bars", a.Bars),
				slog.Int("min_bars", s.opts.MinBars))
		case OutcomeFailed:
			lg.Error("provider failed",
				slog.String("provider", name),
				slog.String("reason", a.Err.Error()))
		}
	}

	return model.PriceSeries{}, attempts, fmt.Errorf("%w: %s: %d providers exhausted", ErrNotAvailable, symbol, len(s.steps))
}

func (s *Source) observe(symbol string, a Attempt) {
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveAttempt(symbol, a)
	}
}

type barsResult struct {
	bars []model.PriceBar
	err  error
}

// try runs a single step under the per-call timeout. Panics and timeouts
// become failed attempts.
func (s *Source) try(ctx context.Context, st Step, symbol string) (Attempt, model.PriceSeries) {
	name := st.Provider.Name()
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	done := make(chan barsResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- barsResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		bars, err := st.Provider.Bars(cctx, symbol, st.Lookback)
		done <- barsResult{bars: bars, err: err}
	}()

	var res barsResult
	select {
	case res = <-done:
	case <-cctx.Done():
		res.err = fmt.Errorf("timed out after %s: %w", s.opts.Timeout, cctx.Err())
	}

	a := Attempt{Provider: name, Elapsed: time.Since(start)}
	if res.err != nil {
		a.Outcome = OutcomeFailed
		a.Err = fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, name, res.err)
		return a, model.PriceSeries{}
	}

	a.Bars = len(res.bars)
	if len(res.bars) < s.opts.MinBars {
		a.Outcome = OutcomeEmpty
		return a, model.PriceSeries{}
	}

	series, err := model.NewPriceSeries(symbol, name, res.bars)
	if err != nil {
		a.Outcome = OutcomeFailed
		a.Err = fmt.Errorf("%w: %s: malformed bars: %w", ErrProviderUnavailable, name, err)
		return a, model.PriceSeries{}
	}
	a.Outcome = OutcomeOK
	return a, series
}

func (s *Source) checkGate(ctx context.Context, g DelistChecker, symbol string) (delisted bool, err error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	type verdict struct {
		delisted bool
		err      error
	}
	done := make(chan verdict, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- verdict{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		d, err := g.Delisted(cctx, symbol)
		done <- verdict{delisted: d, err: err}
	}()

	select {
	case v := <-done:
		return v.delisted, v.err
	case <-cctx.Done():
		return false, fmt.Errorf("delisting check timed out: %w", cctx.Err())
	}
}

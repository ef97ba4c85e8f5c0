// Package bot runs one trading cycle over the watch-list: read the account
// once, then for each symbol fetch closes, compute indicators, decide, size
// and submit. Symbols are processed sequentially and independently; a failure
// on one symbol is recorded in its SymbolResult and the batch continues.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"equity-signalbot/internal/execution"
	"equity-signalbot/internal/indicator"
	"equity-signalbot/internal/logger"
	"equity-signalbot/internal/metrics"
	"equity-signalbot/internal/model"
	"equity-signalbot/internal/notification"
	"equity-signalbot/internal/strategy"
)

// ErrAccountUnavailable aborts a cycle before any symbol is processed.
var ErrAccountUnavailable = errors.New("account balance unavailable")

// SeriesSource yields the price history for one symbol.
type SeriesSource interface {
	Fetch(ctx context.Context, symbol string) (model.PriceSeries, error)
}

// Deps are the collaborators of a Runner. Notifier, Metrics and Logger are
// optional.
type Deps struct {
	Symbols  []string
	Source   SeriesSource
	Params   indicator.Params
	Strategy strategy.Strategy
	Sizer    *execution.Sizer
	Gateway  execution.Gateway
	Account  execution.AccountReader
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// DryRun stops each symbol after sizing; no order is submitted.
	DryRun bool
}

// Runner executes trading cycles.
type Runner struct {
	d   Deps
	log *slog.Logger
	now func() time.Time
}

// New validates deps and creates a Runner.
func New(d Deps) (*Runner, error) {
	switch {
	case len(d.Symbols) == 0:
		return nil, errors.New("bot: no symbols")
	case d.Source == nil:
		return nil, errors.New("bot: nil source")
	case d.Strategy == nil:
		return nil, errors.New("bot: nil strategy")
	case d.Sizer == nil:
		return nil, errors.New("bot: nil sizer")
	case d.Account == nil:
		return nil, errors.New("bot: nil account reader")
	case d.Gateway == nil && !d.DryRun:
		return nil, errors.New("bot: nil gateway")
	}
	if err := d.Params.Validate(); err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}
	lg := d.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Runner{d: d, log: lg.With(slog.String("component", "bot")), now: time.Now}, nil
}

// RunCycle processes every symbol once. The returned error is non-nil only
// when the cycle could not start (account read failed) or ctx was cancelled
// between symbols; per-symbol failures live in the report.
func (r *Runner) RunCycle(ctx context.Context) (CycleReport, error) {
	started := r.now()
	rep := CycleReport{CycleID: logger.NewCycleID(started), Started: started, DryRun: r.d.DryRun}
	ctx = logger.WithCycleID(ctx, rep.CycleID)
	lg := r.log.With(logger.Attrs(ctx)...)

	acct, err := r.d.Account.Account(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrAccountUnavailable, err)
		lg.Error("cycle aborted", slog.String("reason", err.Error()))
		r.notify(ctx, notification.CycleAborted(err))
		rep.Finished = r.now()
		return rep, err
	}
	rep.Account = acct
	lg.Info("cycle started",
		slog.Int("symbols", len(r.d.Symbols)),
		slog.String("cash", acct.Cash.StringFixed(2)),
		slog.Bool("dry_run", r.d.DryRun))

	var cycleErr error
	for _, sym := range r.d.Symbols {
		if err := ctx.Err(); err != nil {
			lg.Warn("cycle interrupted", slog.String("reason", err.Error()))
			cycleErr = err
			break
		}
		res := r.runSymbol(ctx, sym, acct)
		rep.Results = append(rep.Results, res)
		r.record(res)
	}

	rep.Finished = r.now()
	if m := r.d.Metrics; m != nil {
		m.CycleDuration.Observe(rep.Finished.Sub(rep.Started).Seconds())
		m.LastCycle.Set(float64(rep.Finished.Unix()))
	}
	lg.Info("cycle complete",
		slog.Int("processed", len(rep.Results)),
		slog.Int("orders", rep.Orders()),
		slog.Int("failures", rep.Failures()),
		slog.Duration("elapsed", rep.Finished.Sub(rep.Started)))
	r.notify(ctx, notification.CycleSummary(len(rep.Results), rep.Orders(), rep.Failures()))
	return rep, cycleErr
}

func (r *Runner) runSymbol(ctx context.Context, symbol string, acct model.AccountState) SymbolResult {
	lg := r.log.With(append(logger.Attrs(ctx), slog.String("symbol", symbol))...)
	res := SymbolResult{Symbol: symbol}

	fail := func(stage Stage, err error) SymbolResult {
		res.Stage = stage
		res.Err = err
		lg.Warn("symbol failed", slog.String("stage", string(stage)), slog.String("reason", err.Error()))
		return res
	}

	series, err := r.d.Source.Fetch(ctx, symbol)
	if err != nil {
		return fail(StageFetch, err)
	}
	res.Source = series.Source()

	vec, err := indicator.Compute(series, r.d.Params)
	if err != nil {
		return fail(StageIndicators, err)
	}

	d := strategy.DecideLatest(r.d.Strategy, vec)
	res.Decision = d
	if err := d.ValidFor(symbol); err != nil {
		return fail(StageSignal, err)
	}
	lg.Info("decision",
		slog.String("signal", string(d.Signal)),
		slog.String("bar", d.BarDate.Format("2006-01-02")),
		slog.String("reason", d.Reason))
	if !d.Actionable() {
		res.Stage = StageSignal
		res.Skip = d.Reason
		return res
	}

	var (
		pos  model.Position
		held bool
	)
	if d.Signal == strategy.SignalSell {
		pos, held, err = r.d.Account.Position(ctx, symbol)
		if err != nil {
			return fail(StagePosition, err)
		}
	}

	last, _ := series.Last()
	req, skip, ok := r.d.Sizer.Size(d, last.Close, acct, pos, held)
	if !ok {
		res.Stage = StageSize
		res.Skip = skip
		lg.Info("order skipped", slog.String("reason", skip))
		return res
	}
	res.Order = &req
	if r.d.DryRun {
		res.Stage = StageSize
		lg.Info("dry run, order not sent",
			slog.String("side", string(req.Side)),
			slog.Int64("qty", req.Qty))
		return res
	}

	conf, err := r.d.Gateway.Submit(ctx, req)
	if err != nil {
		var re *execution.OrderRejectedError
		if errors.As(err, &re) {
			r.notify(ctx, notification.OrderRejected(symbol, string(req.Side), req.Qty, re.Reason))
		}
		return fail(StageSubmit, err)
	}
	res.Stage = StageDone
	res.Confirmation = &conf
	lg.Info("order submitted",
		slog.String("order_id", conf.OrderID),
		slog.String("side", string(conf.Side)),
		slog.Int64("qty", conf.Qty),
		slog.String("status", conf.Status))
	return res
}

func (r *Runner) record(res SymbolResult) {
	m := r.d.Metrics
	if m == nil {
		return
	}
	if res.Decision.Signal != "" {
		m.Signals.WithLabelValues(string(res.Decision.Signal)).Inc()
	}
	if res.Err != nil {
		m.SymbolFailures.WithLabelValues(string(res.Stage)).Inc()
	}
	if res.Order == nil {
		return
	}
	side := string(res.Order.Side)
	switch {
	case res.Confirmation != nil:
		m.Orders.WithLabelValues(side, "submitted").Inc()
	case execution.IsRejected(res.Err):
		m.Orders.WithLabelValues(side, "rejected").Inc()
	case res.Stage == StageSubmit:
		m.Orders.WithLabelValues(side, "failed").Inc()
	default:
		m.Orders.WithLabelValues(side, "skipped").Inc()
	}
}

func (r *Runner) notify(ctx context.Context, a notification.Alert) {
	if r.d.Notifier == nil {
		return
	}
	if err := r.d.Notifier.Send(ctx, a); err != nil {
		r.log.Warn("notification failed", slog.String("title", a.Title), slog.String("reason", err.Error()))
	}
}

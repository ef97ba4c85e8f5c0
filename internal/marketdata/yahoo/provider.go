// Package yahoo serves daily closes from the Yahoo Finance chart API and
// doubles as the delisting pre-check for the fallback chain.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"equity-signalbot/internal/model"
)

// FetchFunc loads daily chart bars for [start, end].
type FetchFunc func(ctx context.Context, symbol string, start, end time.Time) ([]finance.ChartBar, error)

// Provider is the Yahoo Finance secondary provider.
type Provider struct {
	fetch     FetchFunc
	checkDays int
	now       func() time.Time
}

// New creates a provider backed by the live chart API.
// checkDays is the calendar window used by Delisted.
func New(checkDays int) *Provider {
	return NewWithFetcher(fetchChart, checkDays)
}

// NewWithFetcher creates a provider with a custom chart loader.
func NewWithFetcher(fetch FetchFunc, checkDays int) *Provider {
	if checkDays <= 0 {
		checkDays = 5
	}
	return &Provider{fetch: fetch, checkDays: checkDays, now: time.Now}
}

func (p *Provider) Name() string { return "yahoo" }

// Bars returns daily closes for the last lookback calendar days.
// The adjusted close is used when Yahoo reports one.
func (p *Provider) Bars(ctx context.Context, symbol string, lookback int) ([]model.PriceBar, error) {
	end := p.now().UTC()
	start := end.AddDate(0, 0, -lookback)

	raw, err := p.fetch(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]model.PriceBar, 0, len(raw))
	for _, b := range raw {
		px := b.AdjClose
		if !px.IsPositive() {
			px = b.Close
		}
		if !px.IsPositive() {
			// Yahoo emits null rows for halted sessions
			continue
		}
		out = append(out, model.NewPriceBar(time.Unix(int64(b.Timestamp), 0), px))
	}
	return out, nil
}

// Delisted probes a short window of history. No bars, or a "no data" error
// from Yahoo, means the symbol is treated as delisted. Any other error is
// returned unchanged so the caller can decide.
func (p *Provider) Delisted(ctx context.Context, symbol string) (bool, error) {
	bars, err := p.Bars(ctx, symbol, p.checkDays)
	if err != nil {
		if looksDelisted(err) {
			return true, nil
		}
		return false, fmt.Errorf("yahoo delisting probe %s: %w", symbol, err)
	}
	return len(bars) == 0, nil
}

func looksDelisted(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "delisted") ||
		strings.Contains(msg, "no data found") ||
		strings.Contains(msg, "not found")
}

func fetchChart(ctx context.Context, symbol string, start, end time.Time) ([]finance.ChartBar, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	var out []finance.ChartBar
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	return out, nil
}

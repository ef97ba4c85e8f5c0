// Package alpaca adapts the Alpaca market data API to marketdata.Provider.
package alpaca

import (
	"context"

	"equity-signalbot/internal/model"
	"equity-signalbot/pkg/alpaca"
)

// BarsClient is the slice of the Alpaca client this provider needs.
type BarsClient interface {
	DailyBars(ctx context.Context, symbol string, limit int) ([]alpaca.Bar, error)
}

// Provider serves daily closes from Alpaca.
type Provider struct {
	client BarsClient
}

// New creates the provider.
func New(client BarsClient) *Provider {
	return &Provider{client: client}
}

func (p *Provider) Name() string { return "alpaca" }

// Bars returns up to lookback daily closes. Only the close column is kept.
func (p *Provider) Bars(ctx context.Context, symbol string, lookback int) ([]model.PriceBar, error) {
	raw, err := p.client.DailyBars(ctx, symbol, lookback)
	if err != nil {
		return nil, err
	}
	out := make([]model.PriceBar, 0, len(raw))
	for _, b := range raw {
		out = append(out, model.NewPriceBar(b.Timestamp, b.Close))
	}
	return out, nil
}

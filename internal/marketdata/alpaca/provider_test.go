package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"equity-signalbot/pkg/alpaca"
)

type stubClient struct {
	bars  []alpaca.Bar
	err   error
	limit int
}

func (s *stubClient) DailyBars(ctx context.Context, symbol string, limit int) ([]alpaca.Bar, error) {
	s.limit = limit
	return s.bars, s.err
}

func TestProvider_MapsCloseAndDay(t *testing.T) {
	stub := &stubClient{bars: []alpaca.Bar{
		{Timestamp: time.Date(2025, 5, 30, 4, 0, 0, 0, time.UTC), Open: decimal.NewFromFloat(1.1), Close: decimal.NewFromFloat(1.25)},
		{Timestamp: time.Date(2025, 5, 29, 4, 0, 0, 0, time.UTC), Open: decimal.NewFromFloat(1.0), Close: decimal.NewFromFloat(1.1)},
	}}
	p := New(stub)

	bars, err := p.Bars(context.Background(), "ACME", 100)
	if err != nil {
		t.Fatal(err)
	}
	if stub.limit != 100 {
		t.Errorf("limit = %d", stub.limit)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars", len(bars))
	}
	if !bars[0].Close.Equal(decimal.NewFromFloat(1.25)) {
		t.Errorf("close = %s", bars[0].Close)
	}
	if !bars[0].Date.Equal(time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", bars[0].Date)
	}
	if p.Name() != "alpaca" {
		t.Errorf("name = %s", p.Name())
	}
}

func TestProvider_PropagatesError(t *testing.T) {
	p := New(&stubClient{err: errors.New("401")})
	if _, err := p.Bars(context.Background(), "ACME", 10); err == nil {
		t.Fatal("expected error")
	}
}

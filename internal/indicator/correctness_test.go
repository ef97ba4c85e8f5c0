package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA after close 3: (100+102+104)/3 = 102
	// SMA after close 4: (102+104+103)/3 = 103
	// SMA after close 5: (104+103+105)/3 = 104
	sma := NewSMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		sma.Update(p)
		if sma.Ready() != ready[i] {
			t.Errorf("close %d: Ready()=%v, want %v", i, sma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(3)", sma.Value(), expected[i], 1e-9)
		}
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5, seeded with the first close.
	// Prices: 100, 102, 104, 103, 105
	//
	// Close 1: EMA = 100 (seed)
	// Close 2: 102*0.5 + 100*0.5   = 101
	// Close 3: 104*0.5 + 101*0.5   = 102.5
	// Close 4: 103*0.5 + 102.5*0.5 = 102.75
	// Close 5: 105*0.5 + 102.75*0.5 = 103.875
	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{100, 101, 102.5, 102.75, 103.875}

	for i, p := range prices {
		ema.Update(p)
		if !ema.Ready() {
			t.Fatalf("close %d: EMA should be ready from the first close", i)
		}
		assertClose(t, "EMA(3)", ema.Value(), expected[i], 1e-9)
	}
}

func TestEMA_SeedEqualsFirstClose(t *testing.T) {
	for _, period := range []int{2, 12, 26, 200} {
		ema := NewEMA(period)
		ema.Update(42.5)
		if ema.Value() != 42.5 {
			t.Errorf("EMA(%d) seed: got %v, want 42.5", period, ema.Value())
		}
	}
}

func TestEMA_ConvergesMonotonicallyOnConstantInput(t *testing.T) {
	ema := NewEMA(12)
	ema.Update(10)

	prevGap := math.Abs(ema.Value() - 20)
	for i := 0; i < 200; i++ {
		ema.Update(20)
		gap := math.Abs(ema.Value() - 20)
		if gap > prevGap {
			t.Fatalf("step %d: gap grew from %v to %v", i, prevGap, gap)
		}
		if ema.Value() > 20 {
			t.Fatalf("step %d: EMA overshot constant input: %v", i, ema.Value())
		}
		prevGap = gap
	}
	assertClose(t, "EMA converged", ema.Value(), 20, 1e-6)
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period3(t *testing.T) {
	// RSI(3): multiplier = 0.5. Prices: 100, 102, 104, 103, 105
	//
	// Close 1: no delta, not ready
	// Close 2: +2 → gain = 1,     loss = 0    → RSI 100
	// Close 3: +2 → gain = 1.5,   loss = 0    → RSI 100
	// Close 4: −1 → gain = 0.75,  loss = 0.5  → RS 1.5 → RSI 60
	// Close 5: +2 → gain = 1.375, loss = 0.25 → RS 5.5 → RSI 84.615385
	rsi := NewRSI(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 100, 100, 60, 84.615385}

	for i, p := range prices {
		rsi.Update(p)
		if i == 0 {
			if rsi.Ready() {
				t.Fatal("RSI should not be ready after a single close")
			}
			continue
		}
		assertClose(t, "RSI(3)", rsi.Value(), expected[i], 1e-6)
	}
}

func TestRSI_ZeroLossIsExactly100(t *testing.T) {
	rsi := NewRSI(14)
	for _, p := range []float64{10, 10, 11, 12, 12, 13} {
		rsi.Update(p)
	}
	if rsi.Value() != 100 {
		t.Errorf("expected exactly 100 with no down moves, got %v", rsi.Value())
	}
	if math.IsNaN(rsi.Value()) || math.IsInf(rsi.Value(), 0) {
		t.Errorf("RSI must be finite, got %v", rsi.Value())
	}
}

func TestRSI_FlatSeriesIs100(t *testing.T) {
	rsi := NewRSI(14)
	rsi.Update(5)
	rsi.Update(5)
	if rsi.Value() != 100 {
		t.Errorf("flat series: expected 100, got %v", rsi.Value())
	}
}

func TestRSI_StaysInRange(t *testing.T) {
	rsi := NewRSI(14)
	price := 50.0
	for i := 0; i < 500; i++ {
		// deterministic zig-zag with drift
		step := math.Sin(float64(i)*0.7)*3 - 0.2
		price = math.Max(1, price+step)
		rsi.Update(price)
		if rsi.Ready() && (rsi.Value() < 0 || rsi.Value() > 100) {
			t.Fatalf("close %d: RSI out of range: %v", i, rsi.Value())
		}
	}
}

// ────────────────────────────────────────────────────────────
// MACD Correctness
// ────────────────────────────────────────────────────────────

func TestMACD_Correctness_Small(t *testing.T) {
	// fast EMA(2) α=2/3, slow EMA(3) α=1/2, signal EMA(2) α=2/3. Prices: 10, 11, 12
	//
	// fast:   10, 10.666667, 11.555556
	// slow:   10, 10.5,      11.25
	// macd:    0, 0.166667,  0.305556
	// signal:  0, 0.111111,  0.240741
	m := NewMACD(2, 3, 2)
	prices := []float64{10, 11, 12}
	wantMACD := []float64{0, 0.166667, 0.305556}
	wantSignal := []float64{0, 0.111111, 0.240741}

	for i, p := range prices {
		m.Update(p)
		assertClose(t, "MACD line", m.Value(), wantMACD[i], 1e-6)
		assertClose(t, "MACD signal", m.Signal(), wantSignal[i], 1e-6)
	}
}

func TestIndicatorNames(t *testing.T) {
	cases := map[string]Indicator{
		"EMA_12":       NewEMA(12),
		"SMA_200":      NewSMA(200),
		"RSI_14":       NewRSI(14),
		"MACD_12_26_9": NewMACD(12, 26, 9),
	}
	for want, ind := range cases {
		if ind.Name() != want {
			t.Errorf("got name %q, want %q", ind.Name(), want)
		}
	}
}

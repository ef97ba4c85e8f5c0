package indicator

import (
	"errors"
	"fmt"
	"time"

	"equity-signalbot/internal/model"
)

// ErrInvalidSeries is returned when a series cannot be fed to the indicators:
// it is empty or a bar carries no usable close.
var ErrInvalidSeries = errors.New("invalid price series")

// Params configures the indicator windows.
type Params struct {
	MACDFast   int `yaml:"macd_fast"`
	MACDSlow   int `yaml:"macd_slow"`
	MACDSignal int `yaml:"macd_signal"`
	RSIPeriod  int `yaml:"rsi_period"`
	SMAShort   int `yaml:"sma_short"`
	SMALong    int `yaml:"sma_long"`
}

// DefaultParams returns the classic 12/26/9 MACD, RSI(14), SMA(50) and SMA(200).
func DefaultParams() Params {
	return Params{
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		RSIPeriod:  14,
		SMAShort:   50,
		SMALong:    200,
	}
}

// Validate checks that every window is positive.
func (p Params) Validate() error {
	for name, v := range map[string]int{
		"macd_fast": p.MACDFast, "macd_slow": p.MACDSlow, "macd_signal": p.MACDSignal,
		"rsi_period": p.RSIPeriod, "sma_short": p.SMAShort, "sma_long": p.SMALong,
	} {
		if v <= 0 {
			return fmt.Errorf("indicator param %s must be positive, got %d", name, v)
		}
	}
	return nil
}

// Point is the indicator snapshot for a single bar.
type Point struct {
	Date       time.Time
	Close      float64
	EMAFast    Optional[float64]
	EMASlow    Optional[float64]
	MACD       Optional[float64]
	MACDSignal Optional[float64]
	RSI        Optional[float64]
	SMAShort   Optional[float64]
	SMALong    Optional[float64]
}

// Vector holds per-bar indicator values aligned index-for-index with the
// series it was computed from.
type Vector struct {
	Symbol string
	Params Params
	points []Point
}

// NewVector builds a vector from precomputed points, e.g. values replayed
// from an export or fixed vectors in tests.
func NewVector(symbol string, p Params, points []Point) *Vector {
	cp := make([]Point, len(points))
	copy(cp, points)
	return &Vector{Symbol: symbol, Params: p, points: cp}
}

// Len returns the number of bars covered, always equal to the series length.
func (v *Vector) Len() int { return len(v.points) }

// At returns the snapshot for bar i. ok is false when i is out of range.
func (v *Vector) At(i int) (p Point, ok bool) {
	if i < 0 || i >= len(v.points) {
		return Point{}, false
	}
	return v.points[i], true
}

// Last returns the snapshot for the most recent bar.
func (v *Vector) Last() (Point, bool) { return v.At(len(v.points) - 1) }

// Compute runs every indicator over the series. The series is only read.
func Compute(series model.PriceSeries, p Params) (*Vector, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no bars", ErrInvalidSeries, series.Symbol())
	}

	macd := NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal)
	rsi := NewRSI(p.RSIPeriod)
	smaShort := NewSMA(p.SMAShort)
	smaLong := NewSMA(p.SMALong)

	points := make([]Point, series.Len())
	for i := 0; i < series.Len(); i++ {
		bar := series.Bar(i)
		if !bar.Close.IsPositive() {
			return nil, fmt.Errorf("%w: %s bar %s has no usable close",
				ErrInvalidSeries, series.Symbol(), bar.Date.Format("2006-01-02"))
		}
		price := bar.Close.InexactFloat64()

		macd.Update(price)
		rsi.Update(price)
		smaShort.Update(price)
		smaLong.Update(price)

		points[i] = Point{
			Date:       bar.Date,
			Close:      price,
			EMAFast:    sample(macd.Fast()),
			EMASlow:    sample(macd.Slow()),
			MACD:       sample(macd),
			MACDSignal: sample(macd.signal),
			RSI:        sample(rsi),
			SMAShort:   sample(smaShort),
			SMALong:    sample(smaLong),
		}
	}

	return &Vector{Symbol: series.Symbol(), Params: p, points: points}, nil
}

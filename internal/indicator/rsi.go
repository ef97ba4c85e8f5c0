package indicator

import "strconv"

// RSI calculates the Relative Strength Index with exponentially smoothed
// up/down moves (alpha = 2/(period+1), the same recursion as EMA).
// The first close only records the price; gains and losses are seeded with 0
// on that bar, so the first value is available from the second close on.
// Update is O(1) per close.
type RSI struct {
	period     int
	multiplier float64
	count      int
	prevClose  float64
	avgGain    float64
	avgLoss    float64
	current    float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (r *RSI) Name() string { return "RSI_" + strconv.Itoa(r.period) }

func (r *RSI) Update(price float64) {
	r.count++

	if r.count == 1 {
		// First close: no delta yet, averages start at zero
		r.prevClose = price
		r.avgGain = 0
		r.avgLoss = 0
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain := 0.0
	loss := 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	r.avgGain = (gain * r.multiplier) + (r.avgGain * (1 - r.multiplier))
	r.avgLoss = (loss * r.multiplier) + (r.avgLoss * (1 - r.multiplier))
	r.current = rsiFrom(r.avgGain, r.avgLoss)
}

// rsiFrom converts smoothed gain/loss into RSI. A zero loss reports 100.
func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > 1 }

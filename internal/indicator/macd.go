package indicator

import "fmt"

// MACD tracks EMA(fast) − EMA(slow) and an EMA(signal) of that difference.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
	line   float64
}

// NewMACD creates a MACD with the given fast, slow and signal periods (typically 12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fast.period, m.slow.period, m.signal.period)
}

func (m *MACD) Update(price float64) {
	m.fast.Update(price)
	m.slow.Update(price)
	m.line = m.fast.Value() - m.slow.Value()
	m.signal.Update(m.line)
}

// Value returns the MACD line.
func (m *MACD) Value() float64 { return m.line }

// Signal returns the signal line.
func (m *MACD) Signal() float64 { return m.signal.Value() }

// Fast and Slow expose the underlying EMAs.
func (m *MACD) Fast() *EMA { return m.fast }
func (m *MACD) Slow() *EMA { return m.slow }

func (m *MACD) Ready() bool { return m.slow.Ready() }

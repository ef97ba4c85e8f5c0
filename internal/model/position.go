package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountState is a read-only snapshot of the brokerage account, taken once per cycle.
type AccountState struct {
	Cash   decimal.Decimal `json:"cash"`
	ReadAt time.Time       `json:"read_at"`
}

// Position is the broker-reported holding for one symbol.
type Position struct {
	Symbol   string          `json:"symbol"`
	Qty      int64           `json:"qty"` // positive = long, negative = short
	AvgPrice decimal.Decimal `json:"avg_price"`
}

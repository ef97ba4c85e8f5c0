package bot

import (
	"time"

	"equity-signalbot/internal/model"
	"equity-signalbot/internal/strategy"
)

// Stage names the pipeline step a symbol reached.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageIndicators Stage = "indicators"
	StageSignal     Stage = "signal"
	StagePosition   Stage = "position"
	StageSize       Stage = "size"
	StageSubmit     Stage = "submit"
	StageDone       Stage = "done"
)

// SymbolResult is the outcome of one symbol in one cycle.
// When Err is set, Stage is where it failed. Skip explains a deliberate stop
// (HOLD, nothing to sell, budget below one share).
type SymbolResult struct {
	Symbol       string
	Stage        Stage
	Source       string
	Decision     strategy.Decision
	Order        *model.OrderRequest
	Confirmation *model.OrderConfirmation
	Skip         string
	Err          error
}

// Failed reports whether the symbol ended with an error.
func (r SymbolResult) Failed() bool { return r.Err != nil }

// CycleReport summarizes one RunCycle call.
type CycleReport struct {
	CycleID  string
	Started  time.Time
	Finished time.Time
	DryRun   bool
	Account  model.AccountState
	Results  []SymbolResult
}

// Orders counts confirmed submissions.
func (c CycleReport) Orders() int {
	n := 0
	for _, r := range c.Results {
		if r.Confirmation != nil {
			n++
		}
	}
	return n
}

// Failures counts symbols that ended with an error.
func (c CycleReport) Failures() int {
	n := 0
	for _, r := range c.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}

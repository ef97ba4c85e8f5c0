package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"equity-signalbot/internal/model"
)

// Fill represents a simulated order fill.
type Fill struct {
	OrderID   string             `json:"order_id"`
	Request   model.OrderRequest `json:"request"`
	FillPrice decimal.Decimal    `json:"fill_price"`
	FilledAt  time.Time          `json:"filled_at"`
	Slippage  decimal.Decimal    `json:"slippage"`
}

// PaperGateway simulates execution without broker calls. It keeps its own
// cash balance and positions so a dry run sizes orders the way a live run
// would. Fills happen at the request's RefPrice plus slippage.
type PaperGateway struct {
	mu        sync.RWMutex
	cash      decimal.Decimal
	positions map[string]model.Position
	fills     []Fill
	orderSeq  int64
	now       func() time.Time

	// Simulation parameters
	slippageBps int64 // basis points of slippage (e.g., 5 = 0.05%)
}

// NewPaperGateway creates a paper gateway with the given starting cash.
func NewPaperGateway(startingCash decimal.Decimal, slippageBps int64) *PaperGateway {
	return &PaperGateway{
		cash:        startingCash,
		positions:   make(map[string]model.Position),
		fills:       make([]Fill, 0, 64),
		slippageBps: slippageBps,
		now:         time.Now,
	}
}

// Fills returns a snapshot of all fills.
func (p *PaperGateway) Fills() []Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// Seed sets an opening position, e.g. to mirror a live account.
func (p *PaperGateway) Seed(pos model.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[pos.Symbol] = pos
}

func (p *PaperGateway) Account(ctx context.Context) (model.AccountState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return model.AccountState{Cash: p.cash, ReadAt: p.now()}, nil
}

func (p *PaperGateway) Position(ctx context.Context, symbol string) (model.Position, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[symbol]
	if !ok || pos.Qty == 0 {
		return model.Position{}, false, nil
	}
	return pos, true, nil
}

// Submit fills req immediately or rejects it for lack of cash or shares.
func (p *PaperGateway) Submit(ctx context.Context, req model.OrderRequest) (model.OrderConfirmation, error) {
	if !req.Valid() {
		return model.OrderConfirmation{}, &OrderRejectedError{Symbol: req.Symbol, Reason: "invalid order request"}
	}
	if !req.RefPrice.IsPositive() {
		return model.OrderConfirmation{}, &OrderRejectedError{Symbol: req.Symbol, Reason: "paper fill needs a reference price"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fillPrice := req.RefPrice
	slippage := decimal.Zero
	if p.slippageBps > 0 {
		slippage = fillPrice.Mul(decimal.New(p.slippageBps, -4))
		if req.Side == model.SideBuy {
			fillPrice = fillPrice.Add(slippage) // buy higher
		} else {
			fillPrice = fillPrice.Sub(slippage) // sell lower
		}
	}
	notional := fillPrice.Mul(decimal.NewFromInt(req.Qty))
	pos := p.positions[req.Symbol]
	pos.Symbol = req.Symbol

	switch req.Side {
	case model.SideBuy:
		if notional.GreaterThan(p.cash) {
			return model.OrderConfirmation{}, &OrderRejectedError{
				Symbol: req.Symbol,
				Reason: fmt.Sprintf("insufficient cash: need %s, have %s", notional.StringFixed(2), p.cash.StringFixed(2)),
			}
		}
		cost := pos.AvgPrice.Mul(decimal.NewFromInt(pos.Qty)).Add(notional)
		pos.Qty += req.Qty
		pos.AvgPrice = cost.Div(decimal.NewFromInt(pos.Qty))
		p.cash = p.cash.Sub(notional)
	case model.SideSell:
		if pos.Qty < req.Qty {
			return model.OrderConfirmation{}, &OrderRejectedError{
				Symbol: req.Symbol,
				Reason: fmt.Sprintf("insufficient shares: need %d, have %d", req.Qty, pos.Qty),
			}
		}
		pos.Qty -= req.Qty
		if pos.Qty == 0 {
			pos.AvgPrice = decimal.Zero
		}
		p.cash = p.cash.Add(notional)
	}
	p.positions[req.Symbol] = pos

	p.orderSeq++
	orderID := fmt.Sprintf("PAPER-%d", p.orderSeq)
	now := p.now()
	p.fills = append(p.fills, Fill{
		OrderID:   orderID,
		Request:   req,
		FillPrice: fillPrice,
		FilledAt:  now,
		Slippage:  slippage,
	})

	log.Printf("[paper] %s %s qty=%d price=%s (slip=%s) order=%s",
		req.Side, req.Symbol, req.Qty, fillPrice.StringFixed(4), slippage.StringFixed(4), orderID)

	return model.OrderConfirmation{
		OrderID:       orderID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Qty:           req.Qty,
		Side:          req.Side,
		Status:        "filled",
		SubmittedAt:   now,
	}, nil
}

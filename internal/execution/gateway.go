// Package execution turns trade decisions into broker orders.
//
// A Gateway submits one OrderRequest and reports the broker's confirmation.
// Submission is single-shot: exactly one remote call per Submit, no retries.
// A broker error surfaces as *OrderRejectedError and ends that symbol's cycle.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"equity-signalbot/internal/model"
	"equity-signalbot/pkg/alpaca"
)

// Gateway submits orders to a broker.
type Gateway interface {
	Submit(ctx context.Context, req model.OrderRequest) (model.OrderConfirmation, error)
}

// AccountReader exposes the read-only account endpoints used for sizing.
type AccountReader interface {
	Account(ctx context.Context) (model.AccountState, error)
	// Position returns the holding in symbol; ok is false when there is none.
	Position(ctx context.Context, symbol string) (pos model.Position, ok bool, err error)
}

// OrderRejectedError is returned when the broker declines an order.
type OrderRejectedError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected for %s: %s", e.Symbol, e.Reason)
}

func (e *OrderRejectedError) Unwrap() error { return e.Err }

// IsRejected reports whether err carries an OrderRejectedError.
func IsRejected(err error) bool {
	var re *OrderRejectedError
	return errors.As(err, &re)
}

// OrderClient is the slice of the Alpaca client used for trading.
type OrderClient interface {
	SubmitOrder(ctx context.Context, p alpaca.OrderParams) (*alpaca.Order, error)
	Account(ctx context.Context) (*alpaca.Account, error)
	Position(ctx context.Context, symbol string) (*alpaca.Position, error)
}

// BrokerGateway submits orders to Alpaca and reads the account.
type BrokerGateway struct {
	client OrderClient
	now    func() time.Time
}

// NewBrokerGateway creates a live gateway.
func NewBrokerGateway(client OrderClient) *BrokerGateway {
	return &BrokerGateway{client: client, now: time.Now}
}

// Submit sends req to the broker with exactly one call.
func (g *BrokerGateway) Submit(ctx context.Context, req model.OrderRequest) (model.OrderConfirmation, error) {
	if !req.Valid() {
		return model.OrderConfirmation{}, &OrderRejectedError{Symbol: req.Symbol, Reason: "invalid order request"}
	}

	params := alpaca.OrderParams{
		Symbol:        req.Symbol,
		Qty:           strconv.FormatInt(req.Qty, 10),
		Side:          string(req.Side),
		Type:          string(req.Type),
		TimeInForce:   string(req.TimeInForce),
		ClientOrderID: req.ClientOrderID,
	}
	if req.Type == model.OrderLimit {
		params.LimitPrice = req.RefPrice.StringFixed(2)
	}

	ord, err := g.client.SubmitOrder(ctx, params)
	if err != nil {
		log.Printf("[executor] %s %d %s rejected: %v", req.Side, req.Qty, req.Symbol, err)
		return model.OrderConfirmation{}, &OrderRejectedError{Symbol: req.Symbol, Reason: err.Error(), Err: err}
	}

	submitted := ord.SubmittedAt
	if submitted.IsZero() {
		submitted = g.now()
	}
	conf := model.OrderConfirmation{
		OrderID:       ord.ID,
		ClientOrderID: ord.ClientOrderID,
		Symbol:        ord.Symbol,
		Qty:           ord.Qty.IntPart(),
		Side:          model.Side(ord.Side),
		Status:        ord.Status,
		SubmittedAt:   submitted,
	}
	log.Printf("[executor] %s %d %s submitted: order=%s status=%s", conf.Side, conf.Qty, conf.Symbol, conf.OrderID, conf.Status)
	return conf, nil
}

// Account reads the cash balance.
func (g *BrokerGateway) Account(ctx context.Context) (model.AccountState, error) {
	acct, err := g.client.Account(ctx)
	if err != nil {
		return model.AccountState{}, fmt.Errorf("read account: %w", err)
	}
	return model.AccountState{Cash: acct.Cash, ReadAt: g.now()}, nil
}

// Position reads the open position in symbol.
func (g *BrokerGateway) Position(ctx context.Context, symbol string) (model.Position, bool, error) {
	pos, err := g.client.Position(ctx, symbol)
	if errors.Is(err, alpaca.ErrNoPosition) {
		return model.Position{}, false, nil
	}
	if err != nil {
		return model.Position{}, false, fmt.Errorf("read position %s: %w", symbol, err)
	}
	return model.Position{
		Symbol:   pos.Symbol,
		Qty:      pos.Qty.IntPart(),
		AvgPrice: pos.AvgEntryPrice,
	}, true, nil
}

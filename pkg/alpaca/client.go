// Package alpaca is a small REST client for the Alpaca trading and market
// data APIs. It covers what the signal bot needs: daily bars, the account
// cash balance, single-symbol positions and order submission.
//
// Usage example:
//
//	c := alpaca.New(alpaca.Config{KeyID: "...", SecretKey: "..."})
//	acct, err := c.Account(ctx)
//	if err != nil { log.Fatal(err) }
//	fmt.Println("cash:", acct.Cash)
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	defaultTradingURL = "https://paper-api.alpaca.markets"
	defaultDataURL    = "https://data.alpaca.markets"
	defaultFeed       = "iex"
	defaultTimeout    = 10 * time.Second
)

var routes = map[string]string{
	"account":     "/v2/account",
	"position":    "/v2/positions/{symbol}",
	"orders":      "/v2/orders",
	"stocks.bars": "/v2/stocks/{symbol}/bars",
}

// ErrNoPosition is returned by Position when the account holds none of the symbol.
var ErrNoPosition = errors.New("alpaca: no open position")

// Config configures the client. Empty URLs fall back to the paper trading
// endpoint and the public data endpoint.
type Config struct {
	KeyID      string
	SecretKey  string
	TradingURL string
	DataURL    string
	Feed       string // iex or sip
	Timeout    time.Duration
	Debug      bool
}

// Client talks to the Alpaca REST APIs. It never retries a request.
type Client struct {
	trading *resty.Client
	data    *resty.Client
	feed    string
	now     func() time.Time
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.TradingURL == "" {
		cfg.TradingURL = defaultTradingURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = defaultDataURL
	}
	if cfg.Feed == "" {
		cfg.Feed = defaultFeed
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	mk := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(strings.TrimRight(base, "/")).
			SetTimeout(cfg.Timeout).
			SetRetryCount(0).
			SetDebug(cfg.Debug).
			SetHeader("Accept", "application/json").
			SetHeader("APCA-API-KEY-ID", cfg.KeyID).
			SetHeader("APCA-API-SECRET-KEY", cfg.SecretKey)
	}

	return &Client{
		trading: mk(cfg.TradingURL),
		data:    mk(cfg.DataURL),
		feed:    cfg.Feed,
		now:     time.Now,
	}
}

// APIError is the error payload Alpaca returns on non-2xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("alpaca: %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("alpaca: %d: %s", e.StatusCode, e.Message)
}

func apiError(resp *resty.Response) error {
	e := &APIError{StatusCode: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(resp.String())
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode())
		}
	}
	return e
}

// ---- Market data ----

// Bar is one OHLCV bar from the data API.
type Bar struct {
	Timestamp time.Time       `json:"t"`
	Open      decimal.Decimal `json:"o"`
	High      decimal.Decimal `json:"h"`
	Low       decimal.Decimal `json:"l"`
	Close     decimal.Decimal `json:"c"`
	Volume    int64           `json:"v"`
}

type barsResponse struct {
	Bars          []Bar   `json:"bars"`
	Symbol        string  `json:"symbol"`
	NextPageToken *string `json:"next_page_token"`
}

// DailyBars returns up to limit of the most recent daily bars, newest first.
func (c *Client) DailyBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("alpaca: bar limit must be positive, got %d", limit)
	}
	// Weekends and holidays: look back far enough for limit trading days.
	start := c.now().UTC().AddDate(0, 0, -(limit*7/5 + 10))

	var out barsResponse
	resp, err := c.data.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"timeframe":  "1Day",
			"limit":      strconv.Itoa(limit),
			"start":      start.Format(time.RFC3339),
			"adjustment": "raw",
			"feed":       c.feed,
			"sort":       "desc",
		}).
		Get(routes["stocks.bars"])
	if err != nil {
		return nil, fmt.Errorf("alpaca: bars %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	if err := decode(resp, &out, "bars "+symbol); err != nil {
		return nil, err
	}
	return out.Bars, nil
}

// ---- Trading ----

// Account is the subset of the account payload the bot uses.
type Account struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Currency    string          `json:"currency"`
	Cash        decimal.Decimal `json:"cash"`
	BuyingPower decimal.Decimal `json:"buying_power"`
	PatternDay  bool            `json:"pattern_day_trader"`
}

// Account reads the trading account.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var out Account
	resp, err := c.trading.R().
		SetContext(ctx).
		Get(routes["account"])
	if err != nil {
		return nil, fmt.Errorf("alpaca: account: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	if err := decode(resp, &out, "account"); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("alpaca: account: response has no account id")
	}
	return &out, nil
}

// Position is an open position in one symbol.
type Position struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	Side          string          `json:"side"`
	MarketValue   decimal.Decimal `json:"market_value"`
}

// Position returns the open position in symbol, or ErrNoPosition.
func (c *Client) Position(ctx context.Context, symbol string) (*Position, error) {
	var out Position
	resp, err := c.trading.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		Get(routes["position"])
	if err != nil {
		return nil, fmt.Errorf("alpaca: position %s: %w", symbol, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNoPosition
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	if err := decode(resp, &out, "position "+symbol); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderParams is the body of POST /v2/orders.
type OrderParams struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	LimitPrice    string `json:"limit_price,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// Order is the broker's view of a submitted order.
type Order struct {
	ID            string          `json:"id"`
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	TimeInForce   string          `json:"time_in_force"`
	Status        string          `json:"status"`
	SubmittedAt   time.Time       `json:"submitted_at"`
}

// SubmitOrder places an order. Exactly one HTTP request is made.
func (c *Client) SubmitOrder(ctx context.Context, p OrderParams) (*Order, error) {
	var out Order
	resp, err := c.trading.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		Post(routes["orders"])
	if err != nil {
		return nil, fmt.Errorf("alpaca: submit order %s: %w", p.Symbol, err)
	}
	if resp.IsError() {
		apiErr := apiError(resp)
		log.Printf("[alpaca] order rejected: %s %s %s: %v", p.Side, p.Qty, p.Symbol, apiErr)
		return nil, apiErr
	}
	if err := decode(resp, &out, "submit order "+p.Symbol); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("alpaca: submit order %s: response has no order id", p.Symbol)
	}
	return &out, nil
}

// decode unmarshals a 2xx body into out. An empty body is an error.
func decode(resp *resty.Response, out any, what string) error {
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 {
		return fmt.Errorf("alpaca: %s: empty response body (status %d)", what, resp.StatusCode())
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("alpaca: %s: decode response: %w", what, err)
	}
	return nil
}

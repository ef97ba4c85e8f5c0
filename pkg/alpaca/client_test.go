package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":40110000,"message":"request is not authorized"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{KeyID: "key", SecretKey: "secret", TradingURL: srv.URL, DataURL: srv.URL, Timeout: 2 * time.Second})
	c.now = func() time.Time { return time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC) }
	return c, &hits
}

func TestDailyBars(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/stocks/ACME/bars" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("timeframe") != "1Day" || q.Get("limit") != "3" || q.Get("feed") != "iex" || q.Get("sort") != "desc" {
			t.Errorf("query = %v", q)
		}
		if q.Get("start") == "" {
			t.Error("start must be set")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"ACME","next_page_token":null,"bars":[
			{"t":"2025-05-30T04:00:00Z","o":1.1,"h":1.3,"l":1.0,"c":1.25,"v":1200},
			{"t":"2025-05-29T04:00:00Z","o":1.0,"h":1.2,"l":0.9,"c":1.1,"v":900}]}`))
	})

	bars, err := c.DailyBars(context.Background(), "ACME", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars", len(bars))
	}
	if bars[0].Close.String() != "1.25" || bars[0].Volume != 1200 {
		t.Errorf("bar[0] = %+v", bars[0])
	}
	if !bars[1].Timestamp.Equal(time.Date(2025, 5, 29, 4, 0, 0, 0, time.UTC)) {
		t.Errorf("bar[1].t = %v", bars[1].Timestamp)
	}
}

func TestDailyBars_InvalidLimit(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := c.DailyBars(context.Background(), "ACME", 0); err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 0 {
		t.Error("no request should be sent")
	}
}

func TestDailyBars_APIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":42210000,"message":"invalid symbol"}`))
	})
	_, err := c.DailyBars(context.Background(), "???", 10)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != 422 || apiErr.Code != 42210000 || apiErr.Message != "invalid symbol" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestAccount(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/account" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc","status":"ACTIVE","currency":"USD","cash":"1523.47","buying_power":"3046.94"}`))
	})
	acct, err := c.Account(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if acct.Cash.String() != "1523.47" || acct.Status != "ACTIVE" {
		t.Errorf("acct = %+v", acct)
	}
}

func TestAccount_Unauthorized(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.trading.SetHeader("APCA-API-KEY-ID", "wrong")
	_, err := c.Account(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestPosition(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/positions/ACME":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"symbol":"ACME","qty":"12","avg_entry_price":"2.5","side":"long"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":40410000,"message":"position does not exist"}`))
		}
	})

	pos, err := c.Position(context.Background(), "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if pos.Qty.IntPart() != 12 {
		t.Errorf("qty = %s", pos.Qty)
	}

	if _, err := c.Position(context.Background(), "NONE"); !errors.Is(err, ErrNoPosition) {
		t.Errorf("expected ErrNoPosition, got %v", err)
	}
}

func TestSubmitOrder_SingleRequest(t *testing.T) {
	var body OrderParams
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/orders" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ord-1","client_order_id":"cid-1","symbol":"ACME","qty":"5","side":"buy",
			"type":"market","time_in_force":"day","status":"accepted","submitted_at":"2025-06-02T14:00:01Z"}`))
	})

	ord, err := c.SubmitOrder(context.Background(), OrderParams{
		Symbol: "ACME", Qty: "5", Side: "buy", Type: "market", TimeInForce: "day", ClientOrderID: "cid-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1", hits.Load())
	}
	if ord.ID != "ord-1" || ord.Status != "accepted" || ord.Qty.IntPart() != 5 {
		t.Errorf("order = %+v", ord)
	}
	if body.Symbol != "ACME" || body.TimeInForce != "day" || body.ClientOrderID != "cid-1" {
		t.Errorf("body = %+v", body)
	}
}

func TestSubmitOrder_RejectedNoRetry(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":40310000,"message":"insufficient buying power"}`))
	})

	_, err := c.SubmitOrder(context.Background(), OrderParams{Symbol: "ACME", Qty: "5", Side: "buy", Type: "market", TimeInForce: "day"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "insufficient buying power" {
		t.Fatalf("got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1", hits.Load())
	}
}

func TestSubmitOrder_ServerErrorNoRetry(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := c.SubmitOrder(context.Background(), OrderParams{Symbol: "ACME", Qty: "1", Side: "sell", Type: "market", TimeInForce: "day"}); err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1", hits.Load())
	}
}

func TestDecode_Empty2xxBodyIsError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if acct, err := c.Account(context.Background()); err == nil {
		t.Fatalf("expected error, got account %+v", acct)
	}
	if ord, err := c.SubmitOrder(context.Background(), OrderParams{Symbol: "ACME", Qty: "1", Side: "buy", Type: "market", TimeInForce: "gtc"}); err == nil {
		t.Fatalf("expected error, got order %+v", ord)
	}
	if _, err := c.DailyBars(context.Background(), "ACME", 5); err == nil {
		t.Fatal("expected error for empty bars body")
	}
}

func TestDecode_Undecodable2xxBodyIsError(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"plain text", "text/plain", "ok"},
		{"html", "text/html", "<html>maintenance</html>"},
		{"json without id", "application/json", `{"status":"accepted"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.Write([]byte(tt.body))
			})
			ord, err := c.SubmitOrder(context.Background(), OrderParams{Symbol: "ACME", Qty: "1", Side: "buy", Type: "market", TimeInForce: "gtc"})
			if err == nil {
				t.Fatalf("expected error, got order %+v", ord)
			}
			if hits.Load() != 1 {
				t.Errorf("requests = %d, want 1", hits.Load())
			}
			if _, err := c.Account(context.Background()); err == nil {
				t.Error("expected account error")
			}
		})
	}
}

func TestAccount_NoContentTypeStillDecodes(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write([]byte(`{"id":"abc","status":"ACTIVE","cash":"10.5"}`))
	})
	acct, err := c.Account(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if acct.Cash.String() != "10.5" {
		t.Errorf("cash = %s", acct.Cash)
	}
}

package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"equity-signalbot/internal/model"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(JournalConfig{DBPath: filepath.Join(t.TempDir(), "orders.db")})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := openJournal(t)

	req := model.OrderRequest{
		Symbol: "ACME", Qty: 10, Side: model.SideBuy, Type: model.OrderMarket,
		TimeInForce: model.TIFDay, ClientOrderID: "cid-1", RefPrice: decimal.RequireFromString("9.87"),
	}
	conf := &model.OrderConfirmation{OrderID: "ord-1", Status: "accepted", SubmittedAt: time.Now()}
	if err := j.RecordOrder(req, conf, ""); err != nil {
		t.Fatal(err)
	}

	rej := req
	rej.ClientOrderID = "cid-2"
	rej.Side = model.SideSell
	if err := j.RecordOrder(rej, nil, "insufficient shares"); err != nil {
		t.Fatal(err)
	}

	rows, err := j.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// newest first
	if rows[0].ClientOrderID != "cid-2" || rows[0].Status != "rejected" || rows[0].RejectReason != "insufficient shares" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].OrderID != "ord-1" || rows[1].Status != "accepted" || rows[1].RefPrice != "9.87" || rows[1].Qty != 10 {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[1].RecordedAt == "" {
		t.Error("recorded_at must be set")
	}
}

func TestJournal_RecentLimit(t *testing.T) {
	j := openJournal(t)
	req := model.OrderRequest{Symbol: "ACME", Qty: 1, Side: model.SideBuy, Type: model.OrderMarket, TimeInForce: model.TIFDay}
	for i := 0; i < 5; i++ {
		if err := j.RecordOrder(req, nil, "x"); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := j.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("got %d rows, want 3", len(rows))
	}
}

// Package sqlite persists the order journal: one row per submission attempt,
// accepted or rejected, for audit and offline analysis.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"equity-signalbot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// JournalConfig configures the SQLite journal.
type JournalConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/orders.db"
}

// Journal implements model.OrderRecorder on SQLite.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

var _ model.OrderRecorder = (*Journal)(nil)

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// New opens (or creates) the journal database in WAL mode.
func New(cfg JournalConfig) (*Journal, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[journal] opened order journal at %s", cfg.DBPath)
	return &Journal{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			client_order_id TEXT    NOT NULL,
			order_id        TEXT,
			symbol          TEXT    NOT NULL,
			side            TEXT    NOT NULL,
			qty             INTEGER NOT NULL,
			order_type      TEXT    NOT NULL,
			time_in_force   TEXT    NOT NULL,
			ref_price       TEXT,
			status          TEXT    NOT NULL,
			reject_reason   TEXT,
			recorded_at     TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
		CREATE INDEX IF NOT EXISTS idx_orders_recorded_at ON orders(recorded_at);
	`)
	return err
}

// RecordOrder stores one submission attempt. conf is nil for rejections.
func (j *Journal) RecordOrder(req model.OrderRequest, conf *model.OrderConfirmation, rejectReason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	orderID, status := "", "rejected"
	if conf != nil {
		orderID, status = conf.OrderID, conf.Status
	}

	_, err := j.db.Exec(
		`INSERT INTO orders (client_order_id, order_id, symbol, side, qty, order_type, time_in_force,
		                     ref_price, status, reject_reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ClientOrderID,
		orderID,
		req.Symbol,
		string(req.Side),
		req.Qty,
		string(req.Type),
		string(req.TimeInForce),
		req.RefPrice.String(),
		status,
		rejectReason,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("journal insert %s: %w", req.Symbol, err)
	}
	return nil
}

// OrderRecord represents a row from the orders table.
type OrderRecord struct {
	ID            int64  `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	OrderID       string `json:"order_id"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Qty           int64  `json:"qty"`
	RefPrice      string `json:"ref_price"`
	Status        string `json:"status"`
	RejectReason  string `json:"reject_reason"`
	RecordedAt    string `json:"recorded_at"`
}

// Recent returns the last N journal rows, newest first.
func (j *Journal) Recent(limit int) ([]OrderRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, client_order_id, COALESCE(order_id, ''), symbol, side, qty, COALESCE(ref_price, ''),
		        status, COALESCE(reject_reason, ''), recorded_at
		 FROM orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var r OrderRecord
		if err := rows.Scan(&r.ID, &r.ClientOrderID, &r.OrderID, &r.Symbol, &r.Side, &r.Qty,
			&r.RefPrice, &r.Status, &r.RejectReason, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

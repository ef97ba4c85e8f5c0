package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the pipeline from concrete storage implementations
// (Redis, SQLite).

// DelistStore remembers delisting verdicts between runs.
type DelistStore interface {
	// GetDelisted returns the cached verdict. found is false on a cache miss.
	GetDelisted(ctx context.Context, symbol string) (delisted, found bool, err error)

	// SetDelisted stores a verdict for ttl.
	SetDelisted(ctx context.Context, symbol string, delisted bool, ttl time.Duration) error
}

// OrderRecorder persists every order submission attempt.
type OrderRecorder interface {
	// RecordOrder stores the request together with its confirmation or rejection reason.
	RecordOrder(req OrderRequest, conf *OrderConfirmation, rejectReason string) error

	// Close releases underlying resources.
	Close() error
}

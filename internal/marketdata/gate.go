package marketdata

import (
	"context"
	"log"
	"time"

	"equity-signalbot/internal/model"
)

// CachedGate remembers delisting verdicts in a DelistStore so that dead
// symbols are not re-probed every cycle. Store failures degrade to a live
// probe; they never fail the check.
type CachedGate struct {
	Checker DelistChecker
	Store   model.DelistStore
	TTL     time.Duration
}

// NewCachedGate wraps checker with store. A nil store returns checker as-is.
func NewCachedGate(checker DelistChecker, store model.DelistStore, ttl time.Duration) DelistChecker {
	if store == nil {
		return checker
	}
	return &CachedGate{Checker: checker, Store: store, TTL: ttl}
}

func (g *CachedGate) Delisted(ctx context.Context, symbol string) (bool, error) {
	delisted, found, err := g.Store.GetDelisted(ctx, symbol)
	if err != nil {
		log.Printf("[marketdata] delist cache read %s: %v", symbol, err)
	} else if found {
		return delisted, nil
	}

	delisted, err = g.Checker.Delisted(ctx, symbol)
	if err != nil {
		return false, err
	}
	if err := g.Store.SetDelisted(ctx, symbol, delisted, g.TTL); err != nil {
		log.Printf("[marketdata] delist cache write %s: %v", symbol, err)
	}
	return delisted, nil
}

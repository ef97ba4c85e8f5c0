package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memDelistStore struct {
	verdicts map[string]bool
	ttls     map[string]time.Duration
	readErr  error
	writeErr error
}

func newMemDelistStore() *memDelistStore {
	return &memDelistStore{verdicts: map[string]bool{}, ttls: map[string]time.Duration{}}
}

func (m *memDelistStore) GetDelisted(ctx context.Context, symbol string) (bool, bool, error) {
	if m.readErr != nil {
		return false, false, m.readErr
	}
	v, ok := m.verdicts[symbol]
	return v, ok, nil
}

func (m *memDelistStore) SetDelisted(ctx context.Context, symbol string, delisted bool, ttl time.Duration) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.verdicts[symbol] = delisted
	m.ttls[symbol] = ttl
	return nil
}

func TestCachedGate_MissProbesAndStores(t *testing.T) {
	store := newMemDelistStore()
	checker := &fakeGate{delisted: true}
	g := NewCachedGate(checker, store, 24*time.Hour)

	for i := 0; i < 3; i++ {
		d, err := g.Delisted(context.Background(), "DEAD")
		if err != nil || !d {
			t.Fatalf("call %d: delisted=%v err=%v", i, d, err)
		}
	}
	if checker.calls.Load() != 1 {
		t.Errorf("checker called %d times, want 1", checker.calls.Load())
	}
	if store.ttls["DEAD"] != 24*time.Hour {
		t.Errorf("ttl = %v", store.ttls["DEAD"])
	}
}

func TestCachedGate_ActiveVerdictIsCachedToo(t *testing.T) {
	store := newMemDelistStore()
	checker := &fakeGate{}
	g := NewCachedGate(checker, store, time.Hour)

	g.Delisted(context.Background(), "ACME")
	g.Delisted(context.Background(), "ACME")
	if checker.calls.Load() != 1 {
		t.Errorf("checker called %d times, want 1", checker.calls.Load())
	}
}

func TestCachedGate_StoreErrorsDegradeToProbe(t *testing.T) {
	store := newMemDelistStore()
	store.readErr = errors.New("redis down")
	store.writeErr = errors.New("redis down")
	checker := &fakeGate{delisted: true}
	g := NewCachedGate(checker, store, time.Hour)

	d, err := g.Delisted(context.Background(), "DEAD")
	if err != nil || !d {
		t.Fatalf("delisted=%v err=%v", d, err)
	}
}

func TestCachedGate_CheckerErrorNotCached(t *testing.T) {
	store := newMemDelistStore()
	checker := &fakeGate{err: errors.New("yahoo down")}
	g := NewCachedGate(checker, store, time.Hour)

	if _, err := g.Delisted(context.Background(), "ACME"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := store.verdicts["ACME"]; ok {
		t.Error("failed probe must not be cached")
	}
}

func TestNewCachedGate_NilStore(t *testing.T) {
	checker := &fakeGate{}
	if g := NewCachedGate(checker, nil, time.Hour); g != DelistChecker(checker) {
		t.Error("nil store should return the checker unchanged")
	}
}

// Package redis caches delisting verdicts so dead symbols are not re-probed
// on every cycle.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"equity-signalbot/internal/model"
)

const keyPrefix = "signalbot:delisted:"

// Config configures the Redis connection.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// DelistStore implements model.DelistStore on Redis string keys with a TTL.
type DelistStore struct {
	client *goredis.Client
}

var _ model.DelistStore = (*DelistStore)(nil)

// Client returns the underlying Redis client for health checks.
func (s *DelistStore) Client() *goredis.Client { return s.client }

// New creates a store and pings the server.
func New(cfg Config) (*DelistStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &DelistStore{client: client}, nil
}

func delistKey(symbol string) string {
	return keyPrefix + strings.ToUpper(symbol)
}

func encodeVerdict(delisted bool) string {
	if delisted {
		return "1"
	}
	return "0"
}

func decodeVerdict(v string) (bool, error) {
	switch v {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected delist verdict %q", v)
	}
}

// GetDelisted returns the cached verdict; found is false on a miss.
func (s *DelistStore) GetDelisted(ctx context.Context, symbol string) (delisted, found bool, err error) {
	v, err := s.client.Get(ctx, delistKey(symbol)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	d, err := decodeVerdict(v)
	if err != nil {
		return false, false, err
	}
	return d, true, nil
}

// SetDelisted stores the verdict for ttl.
func (s *DelistStore) SetDelisted(ctx context.Context, symbol string, delisted bool, ttl time.Duration) error {
	if err := s.client.Set(ctx, delistKey(symbol), encodeVerdict(delisted), ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", symbol, err)
	}
	return nil
}

// Forget drops a cached verdict, e.g. after a symbol is relisted.
func (s *DelistStore) Forget(ctx context.Context, symbol string) error {
	return s.client.Del(ctx, delistKey(symbol)).Err()
}

// Close closes the Redis client.
func (s *DelistStore) Close() error {
	return s.client.Close()
}

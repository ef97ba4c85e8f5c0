package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"equity-signalbot/internal/marketdata"
)

// Metrics holds all Prometheus metrics for the signal bot.
type Metrics struct {
	// Market data
	FetchAttempts *prometheus.CounterVec   // labels: provider, outcome
	FetchDuration *prometheus.HistogramVec // labels: provider
	Fallbacks     *prometheus.CounterVec   // labels: from, to

	// Circuit breakers
	BreakerState *prometheus.GaugeVec   // labels: provider; 0=closed, 1=open, 2=half-open
	BreakerTrips *prometheus.CounterVec // labels: provider

	// Pipeline
	Signals        *prometheus.CounterVec // labels: signal
	Orders         *prometheus.CounterVec // labels: side, result
	SymbolFailures *prometheus.CounterVec // labels: stage
	CycleDuration  prometheus.Histogram
	LastCycle      prometheus.Gauge

	// Market session
	MarketState prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_fetch_attempts_total",
			Help: "Price series fetch attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalbot_fetch_duration_seconds",
			Help:    "Provider call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"provider"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_fallbacks_total",
			Help: "Times the chain moved on to the next provider",
		}, []string{"from", "to"}),

		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalbot_provider_breaker_state",
			Help: "Provider circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"provider"}),
		BreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_provider_breaker_trips_total",
			Help: "Times a provider circuit breaker tripped open",
		}, []string{"provider"}),

		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_signals_total",
			Help: "Decisions emitted by signal",
		}, []string{"signal"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_orders_total",
			Help: "Order submissions by side and result (submitted, rejected, failed, skipped)",
		}, []string{"side", "result"}),
		SymbolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_symbol_failures_total",
			Help: "Symbols that ended a cycle early, by pipeline stage",
		}, []string{"stage"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_cycle_duration_seconds",
			Help:    "Wall time of one full watch-list cycle",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished",
		}),

		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
	}

	reg.MustRegister(
		m.FetchAttempts,
		m.FetchDuration,
		m.Fallbacks,
		m.BreakerState,
		m.BreakerTrips,
		m.Signals,
		m.Orders,
		m.SymbolFailures,
		m.CycleDuration,
		m.LastCycle,
		m.MarketState,
	)

	return m
}

// ObserveAttempt records one provider attempt.
func (m *Metrics) ObserveAttempt(symbol string, a marketdata.Attempt) {
	m.FetchAttempts.WithLabelValues(a.Provider, a.Outcome.String()).Inc()
	if a.Outcome != marketdata.OutcomeSkipped {
		m.FetchDuration.WithLabelValues(a.Provider).Observe(a.Elapsed.Seconds())
	}
}

// ObserveFallback records a move to the next provider.
func (m *Metrics) ObserveFallback(symbol, from, to string) {
	m.Fallbacks.WithLabelValues(from, to).Inc()
}

// BreakerHook returns an OnStateChange callback for provider's breaker.
func (m *Metrics) BreakerHook(provider string) func(from, to marketdata.BreakerState) {
	m.BreakerState.WithLabelValues(provider).Set(float64(marketdata.StateClosed))
	return func(from, to marketdata.BreakerState) {
		m.BreakerState.WithLabelValues(provider).Set(float64(to))
		if to == marketdata.StateOpen {
			m.BreakerTrips.WithLabelValues(provider).Inc()
		}
		log.Printf("[metrics] %s breaker %s -> %s", provider, from, to)
	}
}

// HealthStatus represents the bot health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteEnabled  bool      `json:"sqlite_enabled"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastCycleAt    time.Time `json:"last_cycle_at"`
	LastCycleErr   string    `json:"last_cycle_error"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

// SetCycleResult records the end of a cycle; err is nil on success.
func (h *HealthStatus) SetCycleResult(at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastCycleAt = at
	h.LastCycleErr = ""
	if err != nil {
		h.LastCycleErr = err.Error()
	}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the journal database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteEnabled = true
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil dependencies are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckSQLite(probeCtx, sqlDB)
		}
	}
	check()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	redisDown := h.RedisEnabled && !h.RedisConnected
	sqliteDown := h.SQLiteEnabled && !h.SQLiteOK
	if redisDown || sqliteDown || h.LastCycleErr != "" {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleAt.IsZero() {
		lastCycle = h.LastCycleAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteEnabled   bool    `json:"sqlite_enabled"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCycleAt     string  `json:"last_cycle_at"`
		LastCycleErr    string  `json:"last_cycle_error,omitempty"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteEnabled:   h.SQLiteEnabled,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCycleAt:     lastCycle,
		LastCycleErr:    h.LastCycleErr,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. gatherer is usually
// prometheus.DefaultGatherer.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

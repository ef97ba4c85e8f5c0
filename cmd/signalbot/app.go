package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"equity-signalbot/config"
	"equity-signalbot/internal/bot"
	"equity-signalbot/internal/execution"
	"equity-signalbot/internal/marketdata"
	mdalpaca "equity-signalbot/internal/marketdata/alpaca"
	"equity-signalbot/internal/marketdata/yahoo"
	"equity-signalbot/internal/metrics"
	"equity-signalbot/internal/model"
	"equity-signalbot/internal/notification"
	redisstore "equity-signalbot/internal/store/redis"
	sqlitestore "equity-signalbot/internal/store/sqlite"
	"equity-signalbot/internal/strategy"
	"equity-signalbot/pkg/alpaca"
)

const paperSlippageBps = 5

// app holds every wired component for one process run.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	prom   *metrics.Metrics
	health *metrics.HealthStatus

	broker  *alpaca.Client          // nil without credentials
	delist  *redisstore.DelistStore // nil without REDIS_ADDR
	journal *sqlitestore.Journal    // nil without JOURNAL_PATH
	source  *marketdata.Source
	notify  notification.Notifier
	paper   *execution.PaperGateway // set in paper mode
	server  *metrics.Server
}

func newApp(cfg *config.Config, lg *slog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		log:    lg,
		prom:   metrics.NewMetrics(prometheus.DefaultRegisterer),
		health: metrics.NewHealthStatus(),
	}

	if cfg.Alpaca.Enabled() {
		a.broker = alpaca.New(alpaca.Config{
			KeyID:      cfg.Alpaca.KeyID,
			SecretKey:  cfg.Alpaca.SecretKey,
			TradingURL: cfg.Alpaca.TradingURL,
			DataURL:    cfg.Alpaca.DataURL,
			Feed:       cfg.Alpaca.Feed,
			Timeout:    cfg.Alpaca.Timeout,
		})
	} else {
		log.Printf("[signalbot] WARNING: no Alpaca credentials, using Yahoo only")
	}

	if cfg.Redis.Addr != "" {
		store, err := redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Printf("[signalbot] WARNING: redis unavailable: %v (delisting checks run uncached)", err)
		} else {
			a.delist = store
		}
	}

	if cfg.JournalPath != "" {
		a.journal = openJournal(cfg.JournalPath)
	}

	src, err := a.buildSource()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.source = src
	a.notify = a.buildNotifier()
	return a, nil
}

// openJournal opens the order journal at path, creating its directory.
// It returns nil when the journal cannot be opened.
func openJournal(path string) *sqlitestore.Journal {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("[signalbot] WARNING: cannot create journal dir %s: %v", dir, err)
			return nil
		}
	}
	j, err := sqlitestore.New(sqlitestore.JournalConfig{DBPath: path})
	if err != nil {
		log.Printf("[signalbot] WARNING: order journal init failed: %v", err)
		return nil
	}
	return j
}

func (a *app) buildSource() (*marketdata.Source, error) {
	sc := a.cfg.Source
	var steps []marketdata.Step

	if a.broker != nil {
		steps = append(steps, marketdata.Step{
			Provider: a.guard(mdalpaca.New(a.broker)),
			Lookback: sc.PrimaryLookback,
		})
	}

	yh := yahoo.New(sc.DelistCheckDays)
	var store model.DelistStore
	if a.delist != nil {
		store = a.delist
	}
	steps = append(steps, marketdata.Step{
		Provider: a.guard(yh),
		Lookback: sc.SecondaryPeriodDays,
		Gate:     marketdata.NewCachedGate(yh, store, a.cfg.Redis.DelistTTL),
	})

	return marketdata.NewSource(steps, marketdata.Options{
		Timeout:  sc.ProviderTimeout,
		MinBars:  sc.MinBars,
		Observer: a.prom,
		Logger:   a.log,
	})
}

func (a *app) guard(p marketdata.Provider) marketdata.Provider {
	cb := marketdata.NewCircuitBreaker(a.cfg.Source.BreakerMaxFailures, a.cfg.Source.BreakerReset)
	cb.OnStateChange = a.prom.BreakerHook(p.Name())
	return marketdata.WithBreaker(p, cb)
}

func (a *app) buildNotifier() notification.Notifier {
	n := notification.Multi{notification.NewLogNotifier()}
	if url := a.cfg.Notify.WebhookURL; url != "" {
		n = append(n, notification.NewWebhookNotifier(url))
	}
	if tok := a.cfg.Notify.TelegramBotToken; tok != "" {
		n = append(n, notification.NewTelegramNotifier(tok, a.cfg.Notify.TelegramChatID))
	}
	return n
}

// gateway returns the order gateway and account reader for this run.
// Paper mode, or a live config without credentials, routes to the simulator.
func (a *app) gateway(ctx context.Context) (execution.Gateway, execution.AccountReader) {
	var recorder model.OrderRecorder
	if a.journal != nil {
		recorder = a.journal
	}

	if a.cfg.Trading.Paper || a.broker == nil {
		paper := execution.NewPaperGateway(decimal.NewFromFloat(a.cfg.Trading.PaperCash), paperSlippageBps)
		if a.broker != nil {
			a.mirrorPositions(ctx, paper)
		}
		a.paper = paper
		return execution.NewJournaled(paper, recorder), paper
	}

	live := execution.NewBrokerGateway(a.broker)
	return execution.NewJournaled(live, recorder), live
}

// mirrorPositions seeds the simulator with the live holdings of the watch-list.
func (a *app) mirrorPositions(ctx context.Context, paper *execution.PaperGateway) {
	live := execution.NewBrokerGateway(a.broker)
	for _, sym := range a.cfg.Symbols {
		pos, held, err := live.Position(ctx, sym)
		if err != nil {
			log.Printf("[signalbot] position %s not mirrored: %v", sym, err)
			continue
		}
		if held {
			paper.Seed(pos)
		}
	}
}

func (a *app) runner(ctx context.Context, dryRun bool) (*bot.Runner, error) {
	gw, acct := a.gateway(ctx)
	return bot.New(bot.Deps{
		Symbols:  a.cfg.Symbols,
		Source:   a.source,
		Params:   a.cfg.Indicators,
		Strategy: strategy.NewMomentum(a.cfg.Strategy),
		Sizer: execution.NewSizer(execution.SizingConfig{
			Capital:     a.cfg.Trading.Capital(),
			OrderType:   model.OrderType(a.cfg.Trading.OrderType),
			TimeInForce: model.TimeInForce(a.cfg.Trading.TimeInForce),
		}),
		Gateway:  gw,
		Account:  acct,
		Notifier: a.notify,
		Metrics:  a.prom,
		Logger:   a.log,
		DryRun:   dryRun,
	})
}

// startObservability starts /metrics, /healthz and the dependency probes
// when METRICS_ADDR is set.
func (a *app) startObservability(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}
	var (
		rdb *goredis.Client
		db  *sql.DB
	)
	if a.delist != nil {
		rdb = a.delist.Client()
	}
	if a.journal != nil {
		db = a.journal.DB()
	}
	a.health.StartLivenessChecker(ctx, rdb, db, 30*time.Second)
	a.server = metrics.NewServer(a.cfg.MetricsAddr, a.health, prometheus.DefaultGatherer)
	a.server.Start()
}

// Close releases every resource; safe to call on a partially built app.
func (a *app) Close() error {
	var errs []error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.server.Stop(ctx)
		cancel()
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.delist != nil {
		errs = append(errs, a.delist.Close())
	}
	return errors.Join(errs...)
}

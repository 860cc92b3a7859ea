package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rsqm/internal/brain"
	"github.com/wonny/rsqm/internal/export"
	"github.com/wonny/rsqm/internal/external/yahoo"
	"github.com/wonny/rsqm/internal/s0_data"
	"github.com/wonny/rsqm/internal/s0_data/collector"
	"github.com/wonny/rsqm/internal/s0_data/quality"
	"github.com/wonny/rsqm/internal/s1_universe"
	"github.com/wonny/rsqm/internal/s2_signals"
	"github.com/wonny/rsqm/internal/strategyconfig"
	"github.com/wonny/rsqm/pkg/config"
	"github.com/wonny/rsqm/pkg/database"
	"github.com/wonny/rsqm/pkg/httputil"
	"github.com/wonny/rsqm/pkg/logger"
	"github.com/wonny/rsqm/pkg/redis"
)

// app holds everything a command needs, built once from env + strategy file
type app struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	log      *logger.Logger

	db    *database.DB  // nil when DATABASE_URL is unset
	redis *redis.Client // disabled client when REDIS_ENABLED=false
	cache *redis.Cache

	resolver     *s1_universe.Resolver
	orchestrator *brain.Orchestrator
	archive      *export.PostgresExporter // nil without db
}

// loadSettings reads env config and the strategy file, applying global flags
func loadSettings() (*config.Config, *strategyconfig.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if configFile != "" {
		cfg.StrategyPath = configFile
	}

	strategy, err := strategyconfig.LoadOrDefault(cfg.StrategyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load strategy %s: %w", cfg.StrategyPath, err)
	}
	return cfg, strategy, nil
}

// newApp wires the pipeline. override, when non-nil, adjusts the strategy before wiring.
func newApp(override func(*strategyconfig.Config)) (*app, error) {
	cfg, strategy, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(strategy)
		if err := strategyconfig.Validate(strategy); err != nil {
			return nil, fmt.Errorf("invalid options: %w", err)
		}
	}

	// 1. Logger
	log := logger.New(cfg)
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	a := &app{cfg: cfg, strategy: strategy, log: log}

	// 2. Redis (optional: shared rate limit + cache)
	a.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.cache = redis.NewCache(a.redis, "rsqm")

	// 3. Database (optional: final table sink)
	a.db, err = database.New(context.Background(), cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		a.db = nil
		if strategy.HasFormat(strategyconfig.FormatPostgres) {
			log.Warn("postgres export requested but DATABASE_URL is not set")
		}
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		a.archive = export.NewPostgresExporter(a.db.Pool, log)
	}

	// 4. HTTP clients
	// 재시도는 collector RetryPolicy 가 담당 → chart 클라이언트는 재시도 끔
	chartHTTP := httputil.New(cfg, log).
		WithHeader("User-Agent", cfg.NSE.UserAgent).
		DisableRetry()
	nseHTTP := httputil.New(cfg, log).
		WithHeader("User-Agent", cfg.NSE.UserAgent).
		WithHeader("Accept", "text/csv,text/html,*/*")
	var shared *redis.RateLimiter
	if a.redis.Enabled() {
		shared = redis.NewRateLimiter(a.redis, "rsqm")
	}
	limitOutbound(chartHTTP, nseHTTP, shared, cfg.Yahoo)

	// 5. S1: Universe
	a.resolver = s1_universe.NewResolver(nseHTTP, s1_universe.Config{
		LocalDir:   strategy.Universe.LocalDir,
		ArchiveURL: cfg.NSE.ArchiveURL,
		HTMLURL:    strategy.Universe.HTMLURL,
		Suffix:     strategy.Universe.Suffix,
	}, log).WithCache(a.cache)

	// 6. S0: Collector
	retry := strategy.Fetch.Retry
	col := collector.NewCollector(
		yahoo.NewClient(chartHTTP, cfg.Yahoo.BaseURL, log),
		yahoo.NewBatchClient(log),
		s0_data.RetryPolicy{
			MaxAttempts:  retry.MaxAttempts,
			InitialDelay: retry.InitialDelay,
			MaxDelay:     retry.MaxDelay,
			Multiplier:   retry.Multiplier,
		},
		log,
	)

	// 7. S5: Exporters
	var pool *pgxpool.Pool
	if a.db != nil {
		pool = a.db.Pool
	}
	exporters := export.FromConfig(strategy.Export, pool, log)

	// 8. Orchestrator
	a.orchestrator = brain.NewOrchestrator(
		a.resolver,
		col,
		quality.NewQualityGate(quality.DefaultConfig()),
		s2_signals.NewBuilder(log),
		exporters,
		log,
	)

	return a, nil
}

// limitOutbound applies the shared Redis quotas to both clients when shared is set.
// Without Redis only the chart client is throttled, with a local token bucket.
func limitOutbound(chartHTTP, nseHTTP *httputil.Client, shared *redis.RateLimiter, yahoo config.YahooConfig) {
	if shared == nil {
		chartHTTP.WithRate(yahoo.RatePerSec, yahoo.Burst)
		return
	}
	chartHTTP.WithLimiter(shared.Bind(redis.YahooRateLimit))
	nseHTTP.WithLimiter(shared.Bind(redis.NSERateLimit))
}

// runConfig returns the strategy defaults for scope
func (a *app) runConfig(scope int) brain.RunConfig {
	rc := brain.RunConfigFrom(a.strategy)
	rc.Scope = scope
	return rc
}

// location returns the strategy timezone, falling back to local time
func (a *app) location() *time.Location {
	loc, err := time.LoadLocation(a.strategy.Meta.Timezone)
	if err != nil {
		a.log.WithError(err).WithField("timezone", a.strategy.Meta.Timezone).Warn("Unknown timezone, using local time")
		return time.Local
	}
	return loc
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
}

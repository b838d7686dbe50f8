package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/ioutracker/internal/adapter/http"
	"github.com/iho/ioutracker/internal/adapter/http/handler"
	"github.com/iho/ioutracker/internal/adapter/http/middleware"
	"github.com/iho/ioutracker/internal/adapter/repository/cached"
	"github.com/iho/ioutracker/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/ioutracker/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/ioutracker/internal/adapter/repository/redis"
	sqliteRepo "github.com/iho/ioutracker/internal/adapter/repository/sqlite"
	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/infrastructure/config"
	"github.com/iho/ioutracker/internal/infrastructure/idgen"
	"github.com/iho/ioutracker/internal/infrastructure/logger"
	"github.com/iho/ioutracker/internal/infrastructure/metrics"
	"github.com/iho/ioutracker/internal/infrastructure/postgres"
	"github.com/iho/ioutracker/internal/infrastructure/redis"
	"github.com/iho/ioutracker/internal/usecase"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := newApp(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go a.cleanupRateLimiter(ctx, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("backend", cfg.StorageBackend).Str("version", version).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// app is the wired service.
type app struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) cleanupRateLimiter(ctx context.Context, every time.Duration) {
	if a.rateLimiter == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.rateLimiter.CleanupLimiters(every)
		}
	}
}

type stores struct {
	entries usecase.EntryRepository
	users   usecase.UserRepository
	checks  []handler.Check
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	gen, err := idgen.New(cfg.IDFormat)
	if err != nil {
		return nil, err
	}

	mode, err := usecase.ParseSettlementMode(cfg.SettlementMode)
	if err != nil {
		return nil, err
	}

	st, err := openStores(ctx, cfg, log, gen, a)
	if err != nil {
		return nil, err
	}

	// Cache and idempotency: Redis when configured, process memory otherwise.
	var (
		cache       usecase.Cache = memory.NewCache()
		idempotency usecase.IdempotencyStore = memory.NewIdempotencyStore()
	)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		log.Info().Msg("connected to redis")

		cache = redisRepo.NewCache(client)
		idempotency = redisRepo.NewIdempotencyStore(client)
		st.checks = append(st.checks, handler.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}

	m := metrics.New(reg)
	cacheOpts := cached.Options{Cache: cache, TTL: cfg.CacheTTL, Logger: log, Stats: m}
	entries := cached.WrapEntries(st.entries, cacheOpts)
	users := cached.NewUserRepository(st.users, cacheOpts)

	entryUC := usecase.NewEntryUseCase(entries, domain.Validator{AllowSelfEntries: cfg.AllowSelfEntries}, m)
	settlementUC, err := usecase.NewSettlementUseCase(entries, mode, log, m)
	if err != nil {
		return nil, err
	}

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	var metricsHandler http.Handler
	if gatherer, isGatherer := reg.(prometheus.Gatherer); isGatherer {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		EntryHandler: handler.NewEntryHandler(entryUC),
		IOUHandler: handler.NewIOUHandler(
			usecase.NewBalanceUseCase(entries),
			usecase.NewSplitUseCase(entryUC, m),
			settlementUC,
		),
		UserHandler:      handler.NewUserHandler(usecase.NewUserUseCase(users)),
		HealthHandler:    handler.NewHealthHandler(version, st.checks...),
		IdempotencyStore: idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      a.rateLimiter,
		MetricsHandler:   metricsHandler,
		APIToken:         cfg.APIToken,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		Logger:           log,
	})

	ok = true
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger, gen usecase.IDGenerator, a *app) (*stores, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		return &stores{
			entries: memory.NewEntryRepository(gen),
			users:   memory.NewUserRepository(),
		}, nil

	case config.BackendSQLite:
		db, err := sqliteRepo.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { db.Close() })
		log.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite database")

		return &stores{
			entries: sqliteRepo.NewEntryRepository(db, gen),
			users:   sqliteRepo.NewUserRepository(db),
			checks:  []handler.Check{{Name: "sqlite", Ping: db.PingContext}},
		}, nil

	case config.BackendPostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return nil, err
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Info().Msg("connected to postgres")

		return &stores{
			entries: postgresRepo.NewEntryRepository(pool, gen, postgresRepo.NewRetrier(log)),
			users:   postgresRepo.NewUserRepository(pool),
			checks:  []handler.Check{{Name: "postgres", Ping: pool.Ping}},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/internal/config"
	"MiniCatalog/pkg/kit"
)

func main() {
	service := "catalog"

	cfg, err := config.Load()
	if err != nil {
		kit.NewLogger(service, "info").Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err), zap.String("backend", string(cfg.Backend)))
	}
	defer closeStore()

	if cfg.Backend != config.BackendFile && cfg.Backend != config.BackendMemory {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		seeded, err := catalog.SeedIfEmpty(ctx, store, catalog.NewFileStore(cfg.DataFile))
		cancel()
		if err != nil {
			log.Warn("seed catalog failed", zap.Error(err))
		} else if seeded {
			log.Info("catalog seeded", zap.String("from", cfg.DataFile))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := catalog.NewService(store,
		catalog.WithLogger(log),
		catalog.WithMetrics(catalog.NewMetrics(reg)),
	)

	s := &catalog.Server{Service: svc, Log: log}
	if cfg.ReviewLimitPerMin > 0 {
		s.ReviewLimiter = kit.NewIPRateLimiter(cfg.ReviewLimitPerMin, time.Minute)
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	log.Info("catalog ready",
		zap.String("backend", string(cfg.Backend)),
		zap.String("port", cfg.Port),
	)

	if err := kit.RunHTTPServer(context.Background(), ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(cfg config.Config, log *zap.Logger) (catalog.Store, func(), error) {
	breaker := catalog.BreakerConfig{
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}

	switch cfg.Backend {
	case config.BackendFile:
		return catalog.NewFileStore(cfg.DataFile), func() {}, nil

	case config.BackendMemory:
		seed, err := catalog.NewFileStore(cfg.DataFile).Load(context.Background())
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewMemStore(seed), func() {}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store := catalog.NewRedisStore(client, cfg.RedisKey)
		return catalog.NewBreakerStore(store, breaker, log), func() { _ = client.Close() }, nil

	case config.BackendPostgres, config.BackendSQLite:
		dialect, dsn := catalog.DialectPostgres, cfg.DatabaseURL
		if cfg.Backend == config.BackendSQLite {
			dialect, dsn = catalog.DialectSQLite, cfg.SQLitePath
		}

		db, err := catalog.OpenSQL(dialect, dsn)
		if err != nil {
			return nil, nil, err
		}
		store := catalog.NewSQLStore(db, dialect)
		if err := store.RunMigrations(); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return catalog.NewBreakerStore(store, breaker, log), func() { _ = store.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

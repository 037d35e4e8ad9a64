package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/dailywell/aigov/pkg/config"
	"github.com/dailywell/aigov/pkg/governor"
	"github.com/dailywell/aigov/pkg/metrics"
	"github.com/dailywell/aigov/pkg/policy"
	"github.com/dailywell/aigov/pkg/store"
	"github.com/dailywell/aigov/pkg/store/redis"
	"github.com/dailywell/aigov/pkg/store/sqlite"
)

// app bundles the wired components one command needs.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    store.Store
	health   func(ctx context.Context) error
	policy   *policy.Holder
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	engine   *governor.Engine
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

// newApp loads config and opens the store, policy and engine. withMetrics
// registers prometheus collectors; one-shot CLI commands skip them.
func newApp(configPath string, withMetrics bool) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.openStore(); err != nil {
		_ = logger.Sync()
		return nil, err
	}

	a.policy, err = policy.Open(cfg.Policy.Path, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load policy: %w", err)
	}

	if withMetrics && cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.metrics = metrics.New(a.registry)
	}

	a.engine = governor.New(a.store, a.policy, governor.Options{
		Logger:             logger,
		Metrics:            a.metrics,
		StrictReservations: cfg.Governance.StrictReservations,
		ReservationTTL:     cfg.Governance.ReservationTTL,
		DefaultPlan:        cfg.Governance.DefaultPlan,
		MaxRetries:         cfg.Governance.MaxRetries,
	})
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		a.store = store.NewMemory(a.cfg.Store.MaxInteractions)
	case config.DriverRedis:
		rcfg := a.cfg.Store.Redis
		if rcfg.MaxInteractions == 0 {
			rcfg.MaxInteractions = a.cfg.Store.MaxInteractions
		}
		rs, err := redis.New(rcfg, a.logger)
		if err != nil {
			return fmt.Errorf("init redis store: %w", err)
		}
		a.store = rs
		a.health = rs.Health
	default:
		ss, err := sqlite.New(a.cfg.Store.Path,
			sqlite.WithRetention(a.cfg.Store.Retention()),
			sqlite.WithLogger(a.logger),
		)
		if err != nil {
			return fmt.Errorf("init sqlite store: %w", err)
		}
		a.store = ss
	}
	return nil
}

func (a *app) close() {
	if a.policy != nil {
		a.policy.StopWatch()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

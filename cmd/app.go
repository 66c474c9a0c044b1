package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/cache"
	"github.com/Kosench/go-url-tracker/internal/config"
	"github.com/Kosench/go-url-tracker/internal/database"
	"github.com/Kosench/go-url-tracker/internal/expiry"
	"github.com/Kosench/go-url-tracker/internal/metrics"
	"github.com/Kosench/go-url-tracker/internal/notifier"
	"github.com/Kosench/go-url-tracker/internal/repository"
	"github.com/Kosench/go-url-tracker/internal/service"
)

// app holds the dependencies shared by every command.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *sql.DB
	redis    *cache.RedisClient
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	repo       repository.RecordRepository
	notifier   notifier.Notifier
	breaker    *notifier.BreakerNotifier
	records    *service.RecordService
	reconciler *service.Reconciler
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.repo = a.withCache(store)

	calc, err := expiry.NewCalculator(cfg.DurationMode(), cfg.App.ShortOffset, cfg.App.LongOffset)
	if err != nil {
		a.Close()
		return nil, err
	}

	var notifyTimeout time.Duration
	a.notifier, notifyTimeout = a.newNotifier()
	a.records = service.NewRecordService(a.repo, calc, expiry.RealClock{}, log,
		service.WithMaxRetries(cfg.App.MaxRetries),
		service.WithMetrics(a.metrics))
	a.reconciler = service.NewReconciler(a.repo, a.notifier, expiry.RealClock{}, log, a.metrics, notifyTimeout)

	log.Info("application initialized",
		zap.String("storage", cfg.App.Storage),
		zap.String("duration_mode", string(calc.Mode)),
		zap.Duration("expiry_offset", calc.Offset()),
		zap.Bool("cache_enabled", a.redis != nil),
		zap.Bool("telegram_enabled", cfg.Telegram.Enabled))

	return a, nil
}

func (a *app) openStore() (repository.RecordRepository, error) {
	if a.cfg.App.Storage == config.StorageMemory {
		a.log.Warn("using in-memory storage, records are lost on restart")
		return repository.NewMemoryRecordRepository(), nil
	}

	db, err := database.Connect(a.cfg.Database.GetDSN(), database.PoolConfig{
		MaxOpenConns:    a.cfg.Database.MaxOpenConns,
		MaxIdleConns:    a.cfg.Database.MaxIdleConns,
		ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: a.cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	a.db = db
	a.log.Info("connected to database")

	return repository.NewPostgresRecordRepository(db), nil
}

// withCache puts Redis in front of store when enabled. A Redis outage at
// startup leaves the service running uncached.
func (a *app) withCache(store repository.RecordRepository) repository.RecordRepository {
	if !a.cfg.Redis.Enabled {
		return store
	}

	client, err := cache.NewRedisClient(cache.RedisConfig{
		Host:         a.cfg.Redis.Host,
		Port:         a.cfg.Redis.Port,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		CacheTTL:     a.cfg.Redis.CacheTTL,
		Namespace:    a.cfg.Redis.Namespace,
	})
	if err != nil {
		a.log.Warn("failed to connect to Redis, running without cache", zap.Error(err))
		return repository.NewCachedRecordRepository(store, cache.NewNullCache(), a.log)
	}

	a.redis = client
	a.log.Info("connected to Redis")
	return repository.NewCachedRecordRepository(store, client, a.log)
}

// newNotifier also returns how long the reconciler should wait for one
// notification, covering every retry the sink may make.
func (a *app) newNotifier() (notifier.Notifier, time.Duration) {
	tc := a.cfg.Telegram
	if !tc.Enabled {
		return notifier.NewNoOpNotifier(), tc.Timeout
	}

	telegramCfg := notifier.TelegramConfig{
		Enabled:           tc.Enabled,
		BotToken:          tc.BotToken,
		ChatID:            tc.ChatID,
		APIBaseURL:        tc.APIBaseURL,
		Timeout:           tc.Timeout,
		RequestsPerSecond: tc.RequestsPerSecond,
		Burst:             tc.Burst,
		MaxAttempts:       tc.MaxAttempts,
		RetryDelay:        tc.RetryDelay,
	}
	telegram := notifier.NewTelegramNotifier(telegramCfg, a.log)

	a.breaker = notifier.NewBreakerNotifier(telegram, notifier.DefaultBreakerConfig("telegram"), a.log)
	return a.breaker, telegramCfg.NotifyBudget()
}

// notifierState is the breaker state shown on /info.
func (a *app) notifierState() string {
	if a.breaker == nil {
		return "disabled"
	}
	return a.breaker.State().String()
}

func (a *app) databaseCheck() func(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return database.HealthCheck(ctx, a.db)
	}
}

func (a *app) cacheCheck() func(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.HealthCheck
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close Redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

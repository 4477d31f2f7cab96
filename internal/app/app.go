package app

import (
	"context"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-orders/config"
	"github.com/athebyme/gomarket-orders/internal/adapters/cache"
	"github.com/athebyme/gomarket-orders/internal/adapters/marketplace"
	"github.com/athebyme/gomarket-orders/internal/adapters/messaging"
	"github.com/athebyme/gomarket-orders/internal/adapters/metrics"
	"github.com/athebyme/gomarket-orders/internal/adapters/storage"
	"github.com/athebyme/gomarket-orders/internal/api/handlers"
	"github.com/athebyme/gomarket-orders/internal/domain/services"
	"github.com/athebyme/gomarket-orders/internal/scheduler"
	"github.com/athebyme/gomarket-orders/internal/utils"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
	"github.com/athebyme/gomarket-orders/pkg/tx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const startupTimeout = 10 * time.Second

// App зависимости процесса импорта, общие для api и worker
type App struct {
	Storage   *storage.OrderStorage
	Cache     *cache.RedisCache         // nil, если redis отключен
	Messaging *messaging.KafkaMessaging // nil, если kafka отключена
	Importer  *services.OrderImporter
	Scheduler *scheduler.Scheduler
	Registry  *prometheus.Registry

	logger interfaces.LoggerPort
}

// New поднимает соединения и собирает цепочку импорта
func New(ctx context.Context, cfg *config.Config, logger interfaces.LoggerPort) (*App, error) {
	a := &App{
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if err := a.initStorage(startCtx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	var (
		locker    interfaces.LockerPort
		runCache  interfaces.CachePort
		publisher interfaces.PublisherPort
	)

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(startCtx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка инициализации кэша: %w", err)
		}
		a.Cache = redisCache
		locker, runCache = redisCache, redisCache
		logger.Info("Кэш инициализирован")
	}

	if cfg.Kafka.Enabled {
		kafkaClient, err := messaging.NewKafkaMessaging(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ClientID, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка инициализации системы обмена сообщениями: %w", err)
		}
		a.Messaging = kafkaClient
		publisher = kafkaClient

		if cfg.Kafka.CreateTopics {
			if err := kafkaClient.EnsureTopics(startCtx, 1, 1, cfg.Kafka.ProducerTopic, cfg.Kafka.ConsumerTopic); err != nil {
				logger.Warn("Не удалось создать топики Kafka",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}
		logger.Info("Система обмена сообщениями инициализирована")
	}

	client, err := marketplace.NewClient(ctx, marketplace.Config{
		APIKey:  cfg.Marketplace.APIKey,
		BaseURL: cfg.Marketplace.BaseURL,
		Timeout: cfg.Marketplace.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	importMetrics := metrics.NewImportMetrics(a.Registry)
	resolver := services.NewProductResolver(a.Storage, cfg.Products.CacheTTL)

	a.Importer = services.NewOrderImporter(
		client,
		a.Storage,
		services.NewDuplicateDetector(a.Storage),
		services.NewOrderMapper(resolver),
		publisher,
		importMetrics,
		logger,
		services.ImporterConfig{
			WindowDays:       cfg.Marketplace.WindowDays,
			UnresolvedPolicy: services.UnresolvedPolicy(cfg.Importer.UnresolvedPolicy),
			PublishTimeout:   cfg.Importer.PublishTimeout,
			EventsTopic:      cfg.Kafka.ProducerTopic,
		},
	)

	a.Scheduler = scheduler.New(a.Importer, locker, runCache, logger, scheduler.Config{
		Interval:    cfg.Scheduler.Interval,
		RunOnEnable: cfg.Scheduler.RunOnEnable,
		LockTTL:     cfg.Scheduler.LockTTL,
	})

	return a, nil
}

func (a *App) initStorage(ctx context.Context, cfg *config.Config) error {
	dsn, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Port,
		cfg.Postgres.PoolSize,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		return fmt.Errorf("ошибка инициализации строки подключения базы: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("ошибка создания пула соединений: %w", err)
	}

	orderStorage, err := storage.NewOrderStorage(ctx, pool, tx.NewTxManager(pool, a.logger))
	if err != nil {
		pool.Close()
		return fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}
	a.Storage = orderStorage

	if cfg.Postgres.InitSchema {
		if err := orderStorage.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	a.logger.Info("Хранилище инициализировано")
	return nil
}

type connection struct {
	name string
	conn interfaces.StoragePort
}

// connections открытые соединения с хранилищами, порядок закрытия
func (a *App) connections() []connection {
	var conns []connection
	if a.Cache != nil {
		conns = append(conns, connection{name: "redis", conn: a.Cache})
	}
	if a.Storage != nil {
		conns = append(conns, connection{name: "postgres", conn: a.Storage})
	}
	return conns
}

// HealthChecks зависимости для /health
func (a *App) HealthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{}
	for _, c := range a.connections() {
		checks[c.name] = c.conn
	}
	return checks
}

// Shutdown выключает планировщик и закрывает соединения
func (a *App) Shutdown(ctx context.Context) {
	if a.Scheduler != nil {
		if err := a.Scheduler.Disable(ctx); err != nil {
			a.logger.Error("Ошибка остановки планировщика",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
	a.Close()
}

// Close закрывает соединения с зависимостями. Повторный вызов ничего не делает
func (a *App) Close() {
	if a.Messaging != nil {
		if err := a.Messaging.Close(); err != nil {
			a.logger.Error("Ошибка при закрытии Kafka",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
		a.Messaging = nil
	}

	for _, c := range a.connections() {
		if err := c.conn.Close(); err != nil {
			a.logger.Error("Ошибка при закрытии соединения",
				interfaces.LogField{Key: "dependency", Value: c.name},
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
	a.Cache = nil
	a.Storage = nil
}

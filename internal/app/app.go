package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	platformhealth "github.com/shestoi/stocksync/platform/health/grpc"
	platformlogging "github.com/shestoi/stocksync/platform/logging"
	platformobservability "github.com/shestoi/stocksync/platform/observability"
	platformshutdown "github.com/shestoi/stocksync/platform/shutdown"

	httpapi "github.com/shestoi/stocksync/internal/api/http"
	"github.com/shestoi/stocksync/internal/config"
	eventkafka "github.com/shestoi/stocksync/internal/event/kafka"
	"github.com/shestoi/stocksync/internal/feed"
	"github.com/shestoi/stocksync/internal/lock"
	lockmemory "github.com/shestoi/stocksync/internal/lock/memory"
	lockredis "github.com/shestoi/stocksync/internal/lock/redis"
	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/repository/memory"
	mongorepo "github.com/shestoi/stocksync/internal/repository/mongo"
	"github.com/shestoi/stocksync/internal/repository/postgres"
	"github.com/shestoi/stocksync/internal/scheduler"
	"github.com/shestoi/stocksync/internal/service"
	"github.com/shestoi/stocksync/internal/stock"
)

const serviceName = "stocksync"

// App содержит все зависимости для запуска и корректного shutdown stocksync
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	store       repository.ProductStore
	rebalancer  *service.Rebalancer
	inventory   *service.InventoryService
	syncService *service.SyncService
	scheduler   *scheduler.TickerScheduler
	httpServer  *http.Server
	grpcServer  *grpc.Server
	health      *platformhealth.Health
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости stocksync.
// Серверы, планировщик и consumer запускаются только в Run.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Building stocksync", zap.String("op", op))
	cfg.Log(logger)

	// Создаём shutdown manager; функции регистрируются в обратном порядке выполнения
	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	a := &App{
		cfg:         cfg,
		logger:      logger,
		shutdownMgr: shutdownMgr,
	}

	if err := a.build(ctx); err != nil {
		shutdownMgr.Shutdown()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	otelShutdown, err := platformobservability.Init(ctx, platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           serviceName,
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	a.shutdownMgr.Add("otel", otelShutdown)

	// Создаём health check с начальным статусом NOT_SERVING
	a.health = platformhealth.New(grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	store, err := a.buildStore(ctx)
	if err != nil {
		return err
	}
	a.store = store

	runLock, err := a.buildRunLock(ctx)
	if err != nil {
		return err
	}

	var publisher service.SyncEventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := eventkafka.NewSyncEventPublisher(logger, cfg.Kafka, cfg.KafkaSyncCompletedTopic)
		a.shutdownMgr.Add("kafka_writer", platformshutdown.Close(kafkaPublisher))
		publisher = kafkaPublisher
		logger.Info("Kafka publisher enabled", zap.String("topic", cfg.KafkaSyncCompletedTopic))
	} else {
		publisher = eventkafka.NewNoOpSyncEventPublisher(logger)
	}

	settings := service.NewStaticSettings(service.Settings{
		Endpoint:       cfg.Sync.Endpoint,
		APIKey:         cfg.Sync.APIKey,
		DefaultStatus:  stock.Status(cfg.Sync.DefaultStatus),
		EnableAutoSync: cfg.Sync.AutoEnabled,
		SyncInterval:   cfg.Sync.Interval,
		Timeout:        cfg.Sync.Timeout,
	})

	feedClient := feed.NewClient(logger, cfg.Sync.Timeout)
	applier := service.NewApplier(logger, store)
	a.syncService = service.NewSyncService(logger, settings, feedClient, applier, runLock, cfg.Sync.LockTTL, publisher, newSyncMetricsRecorder(otel.Meter(serviceName)))
	a.addSyncDrain()
	a.rebalancer = service.NewRebalancer(logger, store)
	a.inventory = service.NewInventoryService(logger, store, a.rebalancer)

	if cfg.Sync.AutoEnabled {
		interval, err := scheduler.ParseInterval(cfg.Sync.Interval)
		if err != nil {
			return err
		}
		a.scheduler = scheduler.NewTickerScheduler(logger, interval, scheduler.DefaultInitialDelay)
		a.scheduler.OnTick(func(ctx context.Context) {
			// ошибки таймерного прогона только логируются
			if _, err := a.syncService.Sync(ctx, service.TriggerTimer); err != nil {
				logger.Error("timer-triggered sync failed", zap.Error(err))
			}
		})
	}

	var nextRun httpapi.NextRunFunc
	if a.scheduler != nil {
		nextRun = a.scheduler.NextRun
	}
	handler := httpapi.NewHandler(logger, a.syncService, a.inventory, nextRun)
	router := httpapi.NewRouter(handler, store.Ping, cfg.Sync.TriggerToken, logger)

	a.httpServer = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
		// запись покрывает синхронный прогон по POST /sync
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Sync.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.grpcServer = grpc.NewServer()
	a.health.Register(a.grpcServer)

	a.health.SetServing("")
	logger.Info("Readiness status set to SERVING")
	return nil
}

func (a *App) buildStore(ctx context.Context) (repository.ProductStore, error) {
	cfg := a.cfg
	logger := a.logger

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StoreMongo:
		logger.Info("Connecting to MongoDB")
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, err
		}
		a.shutdownMgr.Add("mongodb", platformshutdown.DisconnectMongo(client))

		if err := client.Ping(connectCtx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping mongodb: %w", err)
		}
		logger.Info("MongoDB connection established")
		return mongorepo.NewRepository(client, cfg.MongoDB), nil

	case config.StorePostgres:
		logger.Info("Running PostgreSQL migrations")
		if err := postgres.Migrate(connectCtx, cfg.PostgresDSN); err != nil {
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}

		logger.Info("Connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))

		if err := pool.Ping(connectCtx); err != nil {
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		logger.Info("PostgreSQL connection established")
		return postgres.NewRepository(pool), nil

	default:
		logger.Warn("Using in-memory product store, data is lost on restart")
		return memory.NewMemoryRepository(), nil
	}
}

func (a *App) buildRunLock(ctx context.Context) (lock.RunLock, error) {
	if a.cfg.Sync.LockDriver != config.LockRedis {
		return lockmemory.New(), nil
	}

	a.logger.Info("Connecting to Redis", zap.String("addr", a.cfg.RedisAddr))
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.shutdownMgr.Add("redis_client", platformshutdown.Close(client))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	a.logger.Info("Redis connection established")

	return lockredis.New(client, lockredis.DefaultKey, a.logger), nil
}

// Logger возвращает logger приложения
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Sync выполняет один прогон синхронизации (ручной запуск из CLI)
func (a *App) Sync(ctx context.Context, trigger service.Trigger) (service.Result, error) {
	return a.syncService.Sync(ctx, trigger)
}

// addSyncDrain регистрирует ожидание начатого прогона синхронизации.
// Регистрируется после хранилищ и publisher, поэтому выполняется раньше их закрытия,
// но позже остановки серверов, планировщика и consumer.
func (a *App) addSyncDrain() {
	lockTTL := a.cfg.Sync.LockTTL
	a.shutdownMgr.Add("sync_drain", func(ctx context.Context) error {
		// прогон держит блокировку не дольше lockTTL, общий таймаут shutdown здесь слишком короткий
		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockTTL)
		defer cancel()
		return a.syncService.Wait(waitCtx)
	})
}

// addServerShutdown регистрирует остановку серверов.
// Readiness регистрируется последним: NOT_SERVING выставляется до остановки HTTP и gRPC.
func (a *App) addServerShutdown() {
	a.shutdownMgr.Add("grpc_server", platformshutdown.ShutdownGRPCServer(a.grpcServer))
	a.shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(a.httpServer))
	a.shutdownMgr.Add("health_readiness", platformshutdown.SetHealthNotServing(a.health))
}

// Stock возвращает сводный остаток товара по SKU
func (a *App) Stock(ctx context.Context, sku string) (service.StockView, error) {
	return a.inventory.GetStock(ctx, sku)
}

// Close освобождает ресурсы без запуска серверов
func (a *App) Close() {
	a.shutdownMgr.Shutdown()
	platformlogging.Sync(a.logger)
}

// Run запускает сервис и блокируется до сигнала shutdown или отмены ctx
func (a *App) Run(ctx context.Context) error {
	defer platformlogging.Sync(a.logger)

	listener, err := net.Listen("tcp", a.cfg.GRPCHealthAddr)
	if err != nil {
		a.Close()
		return fmt.Errorf("failed to listen grpc health: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.cfg.Kafka.Enabled {
		consumer := eventkafka.NewStockReducedConsumer(a.logger, a.cfg.Kafka, a.cfg.KafkaStockReducedGroup, a.cfg.KafkaStockReducedTopic, a.rebalancer)
		a.shutdownMgr.Add("kafka_consumer", platformshutdown.Close(consumer))

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := consumer.Start(runCtx); err != nil {
				a.logger.Error("Kafka consumer error", zap.Error(err))
			}
		}()
		// consumer останавливается отменой контекста раньше, чем закрывается reader
		a.shutdownMgr.Add("kafka_consumer_stop", func(context.Context) error {
			cancel()
			return nil
		})
	}

	if a.scheduler != nil {
		a.scheduler.Start(runCtx)
		a.shutdownMgr.Add("scheduler", a.scheduler.Stop)
	}

	a.addServerShutdown()
	a.logger.Debug("Shutdown order", zap.Strings("order", a.shutdownMgr.Order()))

	a.logger.Info("Starting stocksync",
		zap.String("http_addr", a.httpServer.Addr),
		zap.String("grpc_health_addr", listener.Addr().String()),
	)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.grpcServer.Serve(listener); err != nil {
			a.logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Ожидаем сигнал и выполняем shutdown
	a.shutdownMgr.Wait(ctx)

	a.wg.Wait()
	a.logger.Info("stocksync stopped")
	return nil
}

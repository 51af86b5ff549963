package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/api/handler"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/collaborator"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/config"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/container"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/infrastructure/audit"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/infrastructure/broker"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/infrastructure/monitor"
	pgInfra "github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/infrastructure/postgres"
	redisInfra "github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/infrastructure/redis"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/router"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/services"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/services/lifecycle"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/pkg/crypto"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/pkg/httpcontext"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/pkg/logger"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
	memoryRepo "github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository/memory"
	pgRepo "github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository/postgres"
	redisRepo "github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository/redis"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase/tenant"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	// Storage backends. Postgres is only dialed when selected; Redis usage
	// tracking falls back to in-memory counters when disabled.
	var pool *pgxpool.Pool
	if cfg.Storage.Backend == config.StoragePostgres {
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err = pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
	}

	var redisClient *goRedis.Client
	var usageRepo repository.UsageRepository
	if cfg.Redis.Enabled {
		redisClient, err = redisInfra.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.Error(err))
		}
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
		usageRepo = redisRepo.NewUsageRepository(redisClient)
	} else {
		usageRepo = memoryRepo.NewUsageRepository()
	}

	signer, err := crypto.New(cfg.Security.MasterSecret)
	if err != nil {
		zapLogger.Fatal("crypto init failed", zap.Error(err))
	}

	auditStore, err := audit.Open(cfg.Audit.Path, cfg.Audit.Bucket, signer, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open audit store", zap.Error(err))
	}
	manager.Register("audit_store", func(ctx context.Context) error {
		return auditStore.Close()
	})

	publisher := broker.NewPublisher(broker.PublisherConfig{
		Brokers:           cfg.Broker.Brokers,
		MaxReconnects:     cfg.Broker.MaxReconnects,
		ReconnectBackoff:  cfg.Broker.ReconnectBackoff,
		WriteTimeout:      cfg.Broker.WriteTimeout,
		AllowAutoCreation: cfg.Broker.AutoCreateTopics,
	}, zapLogger)
	if err := publisher.Connect(appCtx); err != nil {
		zapLogger.Fatal("broker connection failed", zap.Error(err))
	}
	manager.Register("publisher", func(ctx context.Context) error {
		return publisher.Disconnect()
	})

	tenantProvider := tenant.NewProvider(zapLogger)

	repoFactory := func(tenantID string) (repository.OrderRepository, error) {
		if cfg.Storage.Backend == config.StoragePostgres {
			return pgRepo.NewOrderRepository(pool, tenantID), nil
		}
		return memoryRepo.NewOrderRepository(tenantID), nil
	}

	di, err := container.New(container.Dependencies{
		Tenants:      tenantProvider,
		Usage:        usageRepo,
		Publisher:    publisher,
		Audit:        auditStore,
		Repositories: repoFactory,
		Logger:       zapLogger,
	})
	if err != nil {
		zapLogger.Fatal("container init failed", zap.Error(err))
	}

	collaborators := collaborator.NewHTTPClients(collaborator.Config{
		DocumentURL:     cfg.Collab.DocumentURL,
		NotificationURL: cfg.Collab.NotificationURL,
		InventoryURL:    cfg.Collab.InventoryURL,
		FinanceURL:      cfg.Collab.FinanceURL,
		RequestTimeout:  cfg.Collab.RequestTimeout,
	}, zapLogger)
	zapLogger.Info("collaborators wired", zap.String("endpoints", collaborators.Describe()))

	reactor := services.NewEventReactor(
		tenantProvider,
		collaborators,
		collaborators,
		collaborators,
		collaborators,
		zapLogger,
	)

	consumer, err := broker.NewConsumer(broker.ConsumerConfig{
		Brokers:        cfg.Broker.Brokers,
		GroupID:        cfg.Broker.GroupID,
		HandlerTimeout: cfg.Broker.HandlerTimeout,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("consumer init failed", zap.Error(err))
	}
	reactor.RegisterAll(consumer)
	consumer.Start(appCtx)
	manager.Register("consumer", func(ctx context.Context) error {
		return consumer.Stop(ctx)
	})

	scanner := services.NewOverdueScanner(
		tenantProvider,
		di.OrderRepository,
		auditStore,
		zapLogger,
		services.ScannerConfig{Interval: cfg.Scanner.Interval},
	)
	scanner.Start()
	manager.Register("overdue_scanner", func(ctx context.Context) error {
		scanner.Stop(ctx)
		return nil
	})

	mon := monitor.New(publisher, pool, redisClient, auditStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Health: apiHandler.NewHealthHandler(mon, di, ctxAdapter, zapLogger),
	}
	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-contracts/internal/config"
	"github.com/ignatzorin/freelance-contracts/internal/db"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/events"
	"github.com/ignatzorin/freelance-contracts/internal/goroutine"
	"github.com/ignatzorin/freelance-contracts/internal/http/middleware"
	httpRouter "github.com/ignatzorin/freelance-contracts/internal/http/router"
	"github.com/ignatzorin/freelance-contracts/internal/infrastructure/memory"
	"github.com/ignatzorin/freelance-contracts/internal/infrastructure/persistence"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/handler"
	"github.com/ignatzorin/freelance-contracts/internal/logger"
	"github.com/ignatzorin/freelance-contracts/internal/observability"
	"github.com/ignatzorin/freelance-contracts/internal/service"
	"github.com/ignatzorin/freelance-contracts/internal/storage"
	"github.com/ignatzorin/freelance-contracts/internal/usecase/lifecycle"
	"github.com/ignatzorin/freelance-contracts/internal/worker"
)

// backend - хранилище жизненного цикла вместе с очередью событий.
type backend interface {
	repository.LifecycleStore
	repository.OutboxStore
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	log := logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
	goroutine.SetLogger(log)

	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: "freelance-contracts",
		Environment: cfg.Env,
		Endpoint:    cfg.Otel.Endpoint,
		Insecure:    cfg.Otel.Insecure,
		Headers:     observability.ParseHeaders(cfg.Otel.Headers),
		SampleRatio: cfg.Otel.SampleRatio,
	})

	var (
		store        backend
		catalog      repository.ServiceCatalog
		attachments  repository.AttachmentResolver
		healthChecks = map[string]handler.HealthCheck{}
	)

	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn("main: хранилище в памяти, данные не переживут перезапуск")
		store = memory.NewStore()
		memCatalog, err := memory.LoadCatalog(cfg.MemoryServicesFile)
		if err != nil {
			log.Fatalf("main: не удалось загрузить каталог услуг: %v", err)
		}
		if cfg.MemoryServicesFile == "" {
			log.Warn("main: MEMORY_SERVICES_FILE не задан, каталог услуг пуст")
		}
		catalog = memCatalog
		attachments = memory.NewAttachments()
	default:
		// Подключение к базе и миграции.
		dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer safeClose(log, dbConn)

		if err := db.RunMigrations(dbConn); err != nil {
			log.Fatalf("main: ошибка миграций: %v", err)
		}

		attachmentStore, err := storage.NewAttachmentStore(storage.NewMediaRepository(dbConn), cfg.MediaStoragePath, logger.Component("attachments"))
		if err != nil {
			log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
		}

		store = persistence.NewLifecycleStore(dbConn, logger.Component("persistence"))
		catalog = persistence.NewServiceCatalog(dbConn)
		attachments = attachmentStore
		healthChecks["database"] = dbConn.PingContext
	}

	engine := lifecycle.NewEngine(store, catalog, attachments, lifecycle.Config{
		MaxNumberRetries: cfg.NumberMaxRetries,
		ContractTopic:    cfg.Kafka.ContractTopic,
		OrderTopic:       cfg.Kafka.OrderTopic,
	}, lifecycle.WithLogger(logger.Component("lifecycle")))

	// События: Kafka, если настроена, иначе журнал.
	var publisher events.Publisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, logger.Component("publisher"))
		if err != nil {
			log.Fatalf("main: ошибка подключения к Kafka: %v", err)
		}
		publisher = kafkaPublisher
	} else {
		publisher = events.NewLogPublisher(logger.Component("publisher"))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("main: ошибка закрытия издателя событий")
		}
	}()

	relay := worker.NewOutboxRelay(store, publisher, cfg.Outbox.Interval, cfg.Outbox.BatchSize, logger.Component("outbox"))
	repair := worker.NewOrderRepair(engine, cfg.Repair.Interval, cfg.Repair.BatchSize, logger.Component("repair"))
	goroutine.SafeGoWithContext(ctx, "outbox-relay", relay.Run)
	goroutine.SafeGoWithContext(ctx, "order-repair", repair.Run)

	if cfg.Kafka.Enabled() {
		consumer, err := events.NewDisputeConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.DisputeTopic,
			events.NewDisputeHandler(engine, logger.Component("disputes")), logger.Component("disputes"))
		if err != nil {
			log.Fatalf("main: ошибка создания потребителя споров: %v", err)
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				log.WithError(err).Warn("main: ошибка закрытия потребителя споров")
			}
		}()
		goroutine.SafeGoWithContext(ctx, "dispute-consumer", func(ctx context.Context) {
			if err := consumer.Start(ctx); err != nil {
				log.WithError(err).Error("main: потребитель споров остановлен")
			}
		})
	}

	rateStore, err := middleware.NewRateLimitStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, 0)
	router := httpRouter.SetupRouter(cfg, logger.Component("http"),
		handler.NewContractHandler(engine),
		handler.NewOrderHandler(engine),
		handler.NewDisputeHandler(engine),
		handler.NewHealthHandler(healthChecks),
		tokenManager,
		rateStore,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	log.Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	// Фоновые задачи дописывают текущую пачку и выходят по отменённому контексту.
	goroutine.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.WithError(err).Warn("main: ошибка остановки трассировки")
	}
	log.Info("main: сервис остановлен")
}

func safeClose(log logrus.FieldLogger, db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.WithError(err).Error("main: ошибка закрытия базы")
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appdelivery "github.com/erp/gs1bridge/internal/application/delivery"
	appgs1 "github.com/erp/gs1bridge/internal/application/gs1"
	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/infrastructure/archive"
	"github.com/erp/gs1bridge/internal/infrastructure/cache"
	"github.com/erp/gs1bridge/internal/infrastructure/config"
	"github.com/erp/gs1bridge/internal/infrastructure/event"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/infrastructure/persistence"
	"github.com/erp/gs1bridge/internal/infrastructure/queue"
	"github.com/erp/gs1bridge/internal/infrastructure/scheduler"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
	"github.com/erp/gs1bridge/internal/infrastructure/transport"
	"github.com/erp/gs1bridge/internal/interfaces/http/handler"
	"github.com/erp/gs1bridge/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := baseLog

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting GS1 bridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("queue_backend", cfg.GS1.QueueBackend),
	)

	// Telemetry: logs first so every later component logs through the bridge
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		log.Fatal("Failed to initialize OTLP logs", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, loggerProvider, logger.ParseLevel(cfg.Log.Level))
		log = telemetry.NewBridgedLogger(baseLog, otelCore)
	}
	defer func() { _ = log.Sync() }()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              cfg.Profiling.Enabled,
		ServerAddress:        cfg.Profiling.ServerAddress,
		ApplicationName:      cfg.Profiling.ApplicationName,
		BasicAuthUser:        cfg.Profiling.BasicAuthUser,
		BasicAuthPassword:    cfg.Profiling.BasicAuthPassword,
		ProfileTypes:         cfg.Profiling.ProfileTypes,
		MutexProfileFraction: cfg.Profiling.MutexProfileFraction,
		BlockProfileRate:     cfg.Profiling.BlockProfileRate,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Persistence
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database schema", zap.Error(err))
		}
		log.Info("Database schema migrated")
	}

	opts := translationOptions(cfg.GS1)

	authorities := persistence.NewGormAuthorityRepository(db.DB)
	places := persistence.NewGormPlaceRepository(db.DB)
	materials := persistence.NewGormMaterialRepository(db.DB)
	acts := persistence.NewGormActRepository(db.DB, log)

	// Queues
	var redisClient *redis.Client
	if cfg.GS1.QueueBackend == config.QueueBackendRedis {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	}
	factoryOpts := []queue.FactoryOption{queue.WithDatabase(db.DB), queue.WithLogger(log)}
	if redisClient != nil {
		factoryOpts = append(factoryOpts, queue.WithRedis(redisClient))
	}
	queues, err := queue.NewFactory(factoryOpts...).Create(cfg.GS1.QueueBackend)
	if err != nil {
		log.Fatal("Failed to create queue backend", zap.Error(err))
	}
	deadQueue := delivery.DeadLetterQueue(opts.QueueName)

	metrics, err := telemetry.NewGS1Metrics(telemetry.GS1MetricsConfig{
		Meter:           meterProvider.Meter("gs1bridge"),
		Logger:          log,
		Depth:           queues,
		Queues:          []string{opts.QueueName, deadQueue},
		CollectInterval: cfg.Telemetry.QueueDepthInterval,
	})
	if err != nil {
		log.Fatal("Failed to create GS1 metrics", zap.Error(err))
	}

	msgArchive, err := newArchive(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to create message archive", zap.Error(err))
	}

	// Translation services
	resolver := appgs1.NewResolver(authorities, places, materials, acts, opts, log)
	despatchService := appgs1.NewDespatchService(resolver, acts, log)
	despatchService.SetMetrics(metrics)
	orderResponseService := appgs1.NewOrderResponseService(resolver, acts, log)
	orderResponseService.SetMetrics(metrics)
	composer := appgs1.NewComposer(resolver, acts, appgs1.NewStaticTermResolver(opts), opts, log)

	// Change trigger: store insert events feed the outbound queue
	eventBus := event.NewInMemoryEventBus(log)
	trigger := appgs1.NewTrigger(composer, queues, opts, log)
	trigger.SetMetrics(metrics)
	eventBus.Subscribe(trigger)
	acts.SetEventPublisher(eventBus)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Delivery
	var dispatcher *queue.Dispatcher
	if cfg.GS1.BrokerAddress == "" {
		log.Warn("No broker address configured; outbound messages stay queued")
	} else {
		client, err := transport.NewClient(transport.Config{
			BrokerAddress:      cfg.GS1.BrokerAddress,
			Username:           cfg.GS1.BrokerUsername,
			Password:           cfg.GS1.BrokerPassword,
			UseAS2MimeEncoding: cfg.GS1.UseAS2MimeEncoding,
			Timeout:            cfg.GS1.SendTimeout,
		}, log)
		if err != nil {
			log.Fatal("Failed to create broker client", zap.Error(err))
		}
		dispatcher = queue.NewDispatcher(queues, client, queue.DispatcherConfig{
			Queue:        opts.QueueName,
			PollInterval: cfg.GS1.PollInterval,
			SendTimeout:  cfg.GS1.SendTimeout,
		}, log)
		dispatcher.SetArchive(msgArchive)
		dispatcher.SetMetrics(metrics)
		if err := dispatcher.Start(ctx); err != nil {
			log.Fatal("Failed to start dispatcher", zap.Error(err))
		}
	}
	metrics.StartPeriodicCollection(ctx)

	deadLetters := appdelivery.NewDeadLetterService(queues, opts.QueueName, log)
	var requeueScheduler *scheduler.RequeueScheduler
	if cfg.GS1.DeadLetterRetryInterval > 0 {
		requeueScheduler, err = scheduler.NewRequeueScheduler(scheduler.RequeueSchedulerConfig{
			Interval:  cfg.GS1.DeadLetterRetryInterval,
			BatchSize: cfg.GS1.DeadLetterRetryBatch,
		}, deadLetters, log)
		if err != nil {
			log.Fatal("Failed to create requeue scheduler", zap.Error(err))
		}
		if err := requeueScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start requeue scheduler", zap.Error(err))
		}
	}

	// HTTP
	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = redisPinger{redisClient}
	}
	engine, err := router.New(router.Config{
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   tracerProvider.IsEnabled(),
		ProfilingEnabled: profiler.IsEnabled(),
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		Meter:            meterProvider.Meter("gs1bridge/http"),
		Logger:           log,
	}, router.Handlers{
		GS1:         handler.NewGS1Handler(despatchService, orderResponseService, msgArchive, log),
		DeadLetters: handler.NewDeadLetterHandler(deadLetters),
		Health:      handler.NewHealthHandler(cfg.App.Version, checks),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop intake first, then background work, then the stores it writes to
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if requeueScheduler != nil {
		if err := requeueScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping requeue scheduler", zap.Error(err))
		}
	}
	if dispatcher != nil {
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping dispatcher", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	metrics.Stop()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// translationOptions maps configuration onto the translator options
func translationOptions(c config.GS1Config) appgs1.Options {
	return appgs1.Options{
		QueueName:                    c.QueueName,
		LocationAuthority:            c.LocationAuthority,
		ProductAuthority:             c.ProductAuthority,
		DefaultContentOwnerAuthority: c.DefaultContentOwnerAuthority,
		AutoCreateMaterials:          c.AutoCreateMaterials,
		SenderGLN:                    c.SenderGLN,
		ReceiverGLN:                  c.ReceiverGLN,
		OrderTypeCodes:               c.OrderTypeCodes,
		OrderTypeCodeList:            c.OrderTypeCodeList,
	}
}

// newArchive builds the message archive and makes sure its bucket exists
func newArchive(ctx context.Context, cfg *config.StorageConfig, log *zap.Logger) (delivery.Archive, error) {
	a, err := archive.New(ctx, cfg, archive.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if s3a, ok := a.(*archive.S3Archive); ok {
		if err := s3a.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		log.Info("Message archive enabled", zap.String("bucket", s3a.Bucket()))
	}
	return a, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

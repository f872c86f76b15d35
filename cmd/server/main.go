package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/shopcat/backend/api/handler"
	"github.com/shopcat/backend/internal/config"
	"github.com/shopcat/backend/internal/infrastructure/journal"
	"github.com/shopcat/backend/internal/infrastructure/monitor"
	pgInfra "github.com/shopcat/backend/internal/infrastructure/postgres"
	redisInfra "github.com/shopcat/backend/internal/infrastructure/redis"
	"github.com/shopcat/backend/internal/router"
	"github.com/shopcat/backend/internal/services"
	"github.com/shopcat/backend/internal/services/lifecycle"
	"github.com/shopcat/backend/pkg/httpcontext"
	"github.com/shopcat/backend/pkg/logger"
	"github.com/shopcat/backend/repository/postgres"
	redisRepo "github.com/shopcat/backend/repository/redis"
	catalogUC "github.com/shopcat/backend/usecase/catalog"
	"github.com/shopcat/backend/usecase/pricing"
	statisticsUC "github.com/shopcat/backend/usecase/statistics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		AppName:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient := redisInfra.MaybeNewClient(cfg.Redis, zapLogger)
	if redisClient != nil {
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	journalStore, err := journal.Open(cfg.Journal.Path, "journal")
	if err != nil {
		zapLogger.Fatal("failed to open mutation journal", zap.Error(err))
	}
	manager.Register("journal", func(ctx context.Context) error {
		return journalStore.Close()
	})

	mon := monitor.New(pool, redisClient, journalStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	catalogRepo := postgres.NewCatalogRepository(pool)
	snapshotRepo := postgres.NewSnapshotRepository(pool)

	aggregator := pricing.New(catalogRepo, snapshotRepo, cfg.Pricing.Fanout, zapLogger)

	catalogUseCase := catalogUC.New(catalogRepo, aggregator, zapLogger)
	if redisClient != nil {
		catalogUseCase.UseCache(redisRepo.NewTreeCache(redisClient, cfg.Cache.TreeTTL))
	}
	catalogUseCase.UseRecorder(services.NewJournalRecorder(journalStore))

	statisticsUseCase := statisticsUC.New(catalogRepo, snapshotRepo, aggregator, cfg.Sales.Lookback, zapLogger)

	janitor := services.NewJournalJanitor(journalStore, zapLogger, services.JanitorConfig{
		Interval:  cfg.Journal.PruneInterval,
		Retention: cfg.Journal.Retention,
	})
	janitor.Start()
	manager.Register("journal_janitor", func(ctx context.Context) error {
		janitor.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Unit:       apiHandler.NewUnitHandler(catalogUseCase, ctxAdapter, zapLogger),
		Statistics: apiHandler.NewStatisticsHandler(statisticsUseCase, ctxAdapter, zapLogger),
		Journal:    apiHandler.NewJournalHandler(journalStore, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/beverage-pos/api/routes"
	"github.com/angelmondragon/beverage-pos/internal/catalog"
	"github.com/angelmondragon/beverage-pos/internal/cron"
	"github.com/angelmondragon/beverage-pos/internal/inventoryapi"
	"github.com/angelmondragon/beverage-pos/internal/journal"
	"github.com/angelmondragon/beverage-pos/internal/snapshot"
	"github.com/angelmondragon/beverage-pos/internal/terminal"
	"github.com/angelmondragon/beverage-pos/pkg/config"
	"github.com/angelmondragon/beverage-pos/pkg/db"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
	"github.com/angelmondragon/beverage-pos/pkg/metrics"
	"github.com/angelmondragon/beverage-pos/pkg/migrate"
	"github.com/angelmondragon/beverage-pos/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "terminal-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "terminal-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": cfg.App.InstanceID,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	journalRepo := journal.NewRepository(dbClient.DB())
	if cfg.DB.IsSQLite() {
		requireResource(ctx, logg, "journal schema", journalRepo.AutoMigrate(ctx))
	} else {
		requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	inventory, err := inventoryapi.NewClient(cfg.Inventory)
	requireResource(ctx, logg, "inventory client", err)

	loadCatalog := func(ctx context.Context) ([]catalog.Product, error) {
		loaded, rejected, err := inventory.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range rejected {
			logg.Error(logg.WithProductID(ctx, r.ProductID), "product rejected from catalog", r.Err)
		}
		return loaded, nil
	}
	loaded, err := loadCatalog(ctx)
	requireResource(ctx, logg, "product catalog", err)
	products := catalog.New(loaded, catalog.ActiveOnly(), catalog.SellableCategories(cfg.POS.SellableCategoryIDs...))
	logg.Info(logg.WithField(ctx, "products", products.Len()), "catalog loaded")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	posMetrics := metrics.NewPOSMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	cache, err := snapshot.NewRedisCache(redisClient, cfg.Redis.SnapshotCacheTTL)
	requireResource(ctx, logg, "snapshot cache", err)

	store, err := snapshot.NewStore(snapshot.StoreParams{
		Source:    inventory,
		Cache:     cache,
		Logger:    logg,
		Metrics:   posMetrics,
		BatchSize: cfg.Inventory.BulkBatchSize,
	})
	requireResource(ctx, logg, "snapshot store", err)

	if warmed, err := store.WarmStart(ctx, products.IDs()); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "snapshot warm start failed")
	} else {
		logg.Info(logg.WithField(ctx, "snapshots", warmed), "snapshots warmed from cache")
	}
	if err := store.Refresh(ctx, products.IDs()); err != nil {
		// cached snapshots keep the terminal usable until the next scheduled refresh
		logg.Error(ctx, "initial snapshot refresh failed", err)
	}

	refreshJob := snapshot.NewRefreshJob(store, products.IDs)
	refresher := snapshot.NewRefresher(ctx, refreshJob, cfg.POS.PostCommitDelay, logg)
	defer refresher.Stop()

	sessions, err := terminal.NewRegistry(terminal.RegistryParams{
		Catalog:               products,
		Snapshots:             store,
		Committer:             inventory,
		Journal:               journalRepo,
		Refresher:             refresher,
		Sequencer:             redisClient,
		Logger:                logg,
		Metrics:               posMetrics,
		DefaultCommitMode:     cfg.POS.CommitMode(),
		PartialDueDays:        cfg.POS.PartialDueDays,
		RequireCustomerOnHold: cfg.POS.RequireCustomerOnHold,
		IdleTimeout:           cfg.POS.SessionIdleTimeout,
	})
	requireResource(ctx, logg, "terminal registry", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cfg.App.InstanceID), 0)
	requireResource(ctx, logg, "job lock", err)

	jobs := cron.NewRegistry()
	jobs.Register(refreshJob, cfg.POS.SnapshotRefresh)
	jobs.Register(catalog.NewReloadJob(products, loadCatalog), cfg.POS.CatalogReload)
	jobs.Register(terminal.NewSweepJob(sessions), cfg.POS.SessionSweepInterval)

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
	})
	requireResource(ctx, logg, "job scheduler", err)

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "job scheduler stopped", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Idempotency: redisClient,
			Sessions:    sessions,
			Journal:     journalRepo,
			Jobs:        scheduler,
			Snapshots:   store,
			Gatherer:    reg,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting terminal api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(serverCtx, "terminal api server stopped unexpectedly", err)
			stop()
			<-schedulerDone
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "shutting down terminal api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "graceful shutdown failed", err)
	}
	<-schedulerDone
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}

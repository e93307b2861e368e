package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/diewo77/fairscanner/internal/auth"
	"github.com/diewo77/fairscanner/internal/config"
	"github.com/diewo77/fairscanner/internal/db"
	"github.com/diewo77/fairscanner/internal/remote"
	"github.com/diewo77/fairscanner/internal/services"
	"github.com/diewo77/fairscanner/internal/store"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Seed the demo catalog and exit")
	syncOnlyFlag    = flag.Bool("sync-only", false, "Sync products and orders from the backend and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg.App)

	dbConn, err := db.Open(db.SQLiteDSN(cfg.Database.Path), cfg.Database.Debug)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open local database")
	}
	defer func() { _ = db.Close(dbConn) }()

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("migrations completed successfully")
		return
	}

	if err := db.Prepare(dbConn, cfg.App.Migrations); err != nil {
		log.Fatal().Err(err).Msg("schema preparation failed")
	}

	if *seedOnlyFlag || cfg.App.Seed {
		n, err := db.SeedDemoCatalog(dbConn)
		if err != nil {
			log.Fatal().Err(err).Msg("seeding failed")
		}
		log.Info().Int("products", n).Msg("demo catalog seeded")
		if *seedOnlyFlag {
			return
		}
	}

	st := store.New(dbConn)
	catalog, orders, finalizer, closeRemote, err := connectRemote(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect remote backend")
	}
	defer closeRemote()

	cache := services.NewProductCache(st, catalog, services.ProductCacheConfig{
		Interval: cfg.Sync.Interval,
		PageSize: cfg.Sync.PageSize,
	})
	gateway := services.NewSyncGateway(st, finalizer, orders, cfg.Remote.FinalizeTimeout)
	cart := services.NewCartManager(st, cache, gateway, auth.Identity{Fallback: cfg.App.DefaultUserEmail}, services.CartConfig{
		FairName: cfg.App.FairName,
		SalesRep: cfg.App.SalesRep,
	})

	if *syncOnlyFlag {
		runSyncOnce(cache, cart)
		return
	}

	bg := services.NewBackgroundSync(cache, cart, cfg.Sync.BackgroundInterval)
	if cfg.Sync.BackgroundInterval > 0 {
		if err := bg.Start(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to start background sync")
		}
	}

	appHandler := NewApp(st, cache, cart)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(appHandler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Str("remote", cfg.Remote.Mode).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	if bg.Running() {
		if err := bg.Stop(5 * time.Second); err != nil {
			log.Warn().Err(err).Msg("background sync did not stop in time")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped gracefully")
}

func setupLogging(app config.AppConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(app.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if app.Dev {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// connectRemote picks the catalog and order source for the configured mode.
// Finalize always goes through the REST function endpoint.
func connectRemote(cfg *config.Config) (remote.CatalogSource, remote.OrderSource, remote.Finalizer, func(), error) {
	client := remote.NewClient(remote.ClientConfig{
		BaseURL:  cfg.Remote.URL,
		APIKey:   cfg.Remote.AnonKey,
		Timeout:  cfg.Remote.HTTPTimeout,
		PageSize: cfg.Sync.PageSize,
	})
	if cfg.Remote.Mode != config.RemoteModePostgres {
		log.Info().Str("url", cfg.Remote.URL).Msg("using REST backend")
		return client, client, client, func() {}, nil
	}

	dsn := db.NormalizePostgresDSN(cfg.Remote.DatabaseDSN)
	log.Info().Str("dsn", db.MaskDSN(dsn)).Msg("connecting to remote database")
	pg, err := remote.OpenPostgres(dsn, 5, 2*time.Second, cfg.Database.Debug)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	src := remote.NewPostgresSource(pg, cfg.Sync.PageSize)
	return src, src, client, func() { closeGorm(pg) }, nil
}

func closeGorm(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func runSyncOnce(cache *services.ProductCache, cart *services.CartManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := cache.ForceSync(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("product sync failed")
	}
	log.Info().Int("upserted", res.Upserted).Int("pages", res.Pages).Msg("products synced")
	ores, err := cart.SyncOrders(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("order sync failed")
	}
	log.Info().Int("orders", ores.Orders).Int("created", ores.Created).Msg("orders synced")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

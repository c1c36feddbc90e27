package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pych2536/rpca70/internal/auth"
	"github.com/pych2536/rpca70/internal/member/exporter"
	memberhandler "github.com/pych2536/rpca70/internal/member/handler"
	"github.com/pych2536/rpca70/internal/member/importer"
	"github.com/pych2536/rpca70/internal/member/metrics"
	"github.com/pych2536/rpca70/internal/member/service"
	"github.com/pych2536/rpca70/internal/member/store"
	"github.com/pych2536/rpca70/internal/platform/config"
	"github.com/pych2536/rpca70/internal/platform/database"
	"github.com/pych2536/rpca70/internal/platform/health"
	"github.com/pych2536/rpca70/internal/platform/logger"
	"github.com/pych2536/rpca70/internal/platform/middleware"
	"github.com/pych2536/rpca70/internal/settings"
	"github.com/pych2536/rpca70/migrations"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing alumni service",
		"addr", cfg.Addr,
		"settings_path", cfg.SettingsPath,
	)

	if len(cfg.InsecureDefaults) > 0 {
		if os.Getenv("ALLOW_INSECURE_DEFAULTS") != "true" {
			log.Error("refusing to start with published development credentials; set the variables or ALLOW_INSECURE_DEFAULTS=true",
				"unset", cfg.InsecureDefaults)
			os.Exit(1)
		}
		log.Warn("running with published development credentials", "unset", cfg.InsecureDefaults)
	}

	loc := time.Local
	if cfg.TimeZone != "" {
		l, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			log.Warn("unknown TIME_ZONE, using local zone", "time_zone", cfg.TimeZone, "error", err)
		} else {
			loc = l
		}
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	var recordStore store.Store
	if pool != nil {
		defer pool.Close()
		migCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := pool.Migrate(migCtx, migrations.FS)
		cancel()
		if err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		recordStore = store.NewPostgres(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		recordStore = store.NewInMemory()
	}

	settingsStore := settings.NewStore(cfg.SettingsPath)
	m := metrics.New()

	authService, err := auth.NewService(cfg.JWTSigningKey, cfg.AdminUsername, cfg.AdminPassword, cfg.SessionTTL)
	if err != nil {
		log.Error("auth init failed", "error", err)
		os.Exit(1)
	}

	recordService := service.New(recordStore, settingsStore, log, m, service.WithLocation(loc))
	importPipeline := importer.New(recordStore, settingsStore, log, m)
	exportWriter := exporter.New(recordStore, settingsStore, m)

	healthHandler := health.New(recordStore)
	if pool != nil {
		healthHandler.RegisterCheck("database", pool.Health)
	}

	authHandler := auth.NewHandler(authService, log)
	recordHandler := memberhandler.New(recordService, importPipeline, exportWriter, settingsStore, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))

	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	authHandler.Register(r)
	recordHandler.Register(r)
	r.Group(func(admin chi.Router) {
		admin.Use(auth.RequireAdmin(authService, log))
		admin.Use(middleware.BodyLimit(cfg.MaxUploadSize))
		recordHandler.RegisterAdmin(admin)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffee-backoffice/internal/audit"
	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/config"
	"coffee-backoffice/internal/httpapi"
	"coffee-backoffice/internal/ownerwallets"
	"coffee-backoffice/internal/wallet"
	"coffee-backoffice/pkg/logger"
	"coffee-backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// slotTTL bounds how long a concurrency slot survives a crashed replica.
const slotTTL = 30 * time.Second

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	wallets := ownerwallets.NewService(
		wallet.NewProcedures(db),
		wallet.NewRepository(db),
		ownerwallets.Options{
			FallbackEnabled: cfg.Wallets.FallbackEnabled,
			MaxPage:         cfg.Wallets.MaxPage,
			Auditor:         audit.NewService(audit.NewPostgresRepo(db)),
		},
	)
	if !cfg.Wallets.FallbackEnabled {
		log.Warn("owner wallet fallback disabled; missing procedures will surface as 503")
	}

	deps := routeDeps{
		cfg:      cfg,
		db:       db,
		handlers: httpapi.Handlers{Auth: authManager, Wallets: wallets},
		authMW:   auth.RequireAccessToken(authManager),
		limiter:  httpapi.NewRateLimiter(rootCtx, cfg.RateLimit.RPS, cfg.RateLimit.Burst, 3*time.Minute),
		slots:    httpapi.NewRedisSlots(rdb, cfg.RateLimit.OwnerConcurrencyCap, slotTTL),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(httpapi.MetricsMiddleware())

	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"coffee-backoffice/internal/config"
	"coffee-backoffice/pkg/logger"
	"coffee-backoffice/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// migrate applies the local/dev schema. Usage: migrate [up|down]
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	dir := utils.MigrateUp
	if len(os.Args) > 1 {
		dir = utils.MigrateDirection(os.Args[1])
	}
	if dir == utils.MigrateDown && cfg.IsProduction() {
		log.Error("refusing to roll back migrations in production")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := utils.RunMigrations(db, cfg.App.MigrationsPath, dir); err != nil {
		log.Error("migrations failed", "err", err, "direction", dir)
		os.Exit(1)
	}
	log.Info("migrations applied", "direction", dir, "path", cfg.App.MigrationsPath)
}

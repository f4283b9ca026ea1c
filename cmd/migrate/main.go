package main

import (
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/skywardops/telemetry-quality-engine/internal/infrastructure/config"
	"github.com/skywardops/telemetry-quality-engine/internal/infrastructure/database"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down")
		source = flag.String("source", "migrations", "Path to migration files")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.Database.URL == "" {
		logger.Fatal("database url is not configured")
	}

	switch *action {
	case "up":
		err = database.MigrateUp(cfg.Database.URL, *source, logger)
	case "down":
		err = database.MigrateDown(cfg.Database.URL, *source, logger)
	default:
		logger.Fatal("unknown action", zap.String("action", *action))
	}

	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/migrations"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down]")
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Initialize logger: %v", err)
	}
	defer appLogger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		appLogger.Fatal("Connect to database", zap.Error(err))
	}
	defer db.Close()

	applied, err := migrations.Run(context.Background(), db, direction)
	if err != nil {
		appLogger.Fatal("Run migrations", zap.String("direction", direction), zap.Error(err))
	}

	for _, name := range applied {
		appLogger.Info("Applied migration", zap.String("file", name))
	}
	appLogger.Info("Migrations complete", zap.Int("count", len(applied)), zap.String("direction", direction))
}

package main

import (
	"context"
	"flag"
	"log"

	"tenantry-backend/internal/config"
	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	command := flag.String("command", "up", "Migration command: 'up' or 'status'")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if cfg.Database.Driver != "postgres" {
		log.Fatalf("Migrations require the postgres driver, got %q", cfg.Database.Driver)
	}

	db, err := postgres.Open(context.Background(), cfg.GetDatabaseConnectionString(), 1)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch *command {
	case "up":
		err = postgres.Migrate(db)
	case "status":
		err = postgres.MigrationStatus(db)
	default:
		log.Fatalf("Unknown command %q", *command)
	}
	if err != nil {
		logger.Error("Migration failed", "command", *command, "error", err)
		log.Fatalf("Migration failed: %v", err)
	}
	logger.Info("Migration command completed", "command", *command)
}

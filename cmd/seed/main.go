package main

import (
	"context"
	"flag"
	"log"

	"wastebank-backend/internal/config"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository/postgres"
	"wastebank-backend/internal/repository/postgres/migrations"
	"wastebank-backend/internal/seed"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	seedPath := flag.String("data", "config/seed.dev.yaml", "Path to seed data file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if cfg.Database.Driver == "memory" {
		log.Fatalf("Seeding needs PostgreSQL; the memory store lives inside the server process")
	}

	data, err := seed.Load(*seedPath)
	if err != nil {
		log.Fatalf("Failed to read seed data: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	sum, err := seed.Apply(ctx, postgres.NewStore(db), data)
	if err != nil {
		log.Fatalf("Failed to populate data: %v", err)
	}
	logger.Info("Seed data populated",
		"locations", sum.Locations,
		"users", sum.Users,
		"categories", sum.Categories,
		"rewards", sum.Rewards,
		"skipped", sum.Skipped)
}

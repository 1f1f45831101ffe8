package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/storage"
	"github.com/gravadigital/urna-api/internal/storage/migrations"
	"github.com/gravadigital/urna-api/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Log.Level)
	log := logger.Migration()

	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	status := flag.Bool("status", false, "List applied migrations and exit")
	stats := flag.Bool("stats", false, "Print table and index statistics (postgres only) and exit")
	flag.Parse()

	log.Info("Starting migration process", "driver", cfg.DB.Driver, "rollback", *rollback)

	factory, err := storage.FactoryFor(cfg)
	if err != nil {
		log.Error("Unsupported storage", "error", err)
		os.Exit(1)
	}
	db, err := factory.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer postgres.Close(db)

	switch {
	case *stats:
		report, err := postgres.CollectStats(context.Background(), db)
		if err != nil {
			log.Error("Could not collect statistics", "error", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	case *status:
		applied, err := migrations.AppliedMigrations(db)
		if err != nil {
			log.Error("Could not read migration status", "error", err)
			os.Exit(1)
		}
		for _, a := range applied {
			fmt.Printf("%s  %-40s %s\n", a.ID, a.Name, a.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("%d of %d migrations applied\n", len(applied), len(migrations.GetMigrations()))
		return
	case *rollback:
		log.Info("Rolling back migrations...")
		if err := migrations.RollbackMigration(db); err != nil {
			log.Error("Migration rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migration rollback completed successfully")
	default:
		log.Info("Running migrations...")
		if err := migrations.RunMigrations(db); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")
	}

	fmt.Println("Migration process completed!")
}

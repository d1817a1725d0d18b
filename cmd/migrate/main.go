package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/config"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "Migration action: up, down, version, force")
	version := flag.Int("version", 0, "Target version (force only)")
	flag.Parse()

	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)

	db, dbName, err := database.OpenSQL(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator, err := database.NewMigrator(db, dbName)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	logger.Info("running migration", slog.String("action", *action), slog.String("database", dbName))

	out, err := migrator.Apply(*action, *version)
	if err != nil {
		return fmt.Errorf("migration %s: %w", *action, err)
	}

	logger.Info(out)
	return nil
}

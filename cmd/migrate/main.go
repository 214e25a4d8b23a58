package main

// Apply or inspect the embedded schema migrations:
//   go run ./cmd/migrate              # up
//   go run ./cmd/migrate -command status

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/telemetry"
)

func main() {
	command := flag.String("command", "up", "migration command: up, down, status or version")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg.DatabaseURL, *command); err != nil {
		cancel()
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, command string) error {
	switch command {
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	sqlDB, err := db.Connect(ctx, databaseURL, db.OptionsFromEnv(db.ProfileCLI))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command})
	return nil
}

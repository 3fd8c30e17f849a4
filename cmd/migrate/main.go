// Package main applies, rolls back or lists database migrations.
//
// Usage:
//
//	migrate [-command up|down|status]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/natibo/natibo/config"
	"github.com/natibo/natibo/internal/infrastructure/persistence/postgres"
	"github.com/natibo/natibo/pkg/logger"
)

func main() {
	cmd := flag.String("command", "up", "migration command: up, down or status")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cmd); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.UsesDatabase() {
		return fmt.Errorf("DATABASE_URL is required")
	}

	log := logger.New(logger.Options{Level: logger.ParseLevel(cfg.Log.Level)})

	pgConfig := postgres.DefaultConfig()
	pgConfig.URL = cfg.Database.URL
	pgConfig.MaxConns = 2
	pgConfig.MinConns = 0
	pgConfig.ConnectTimeout = cfg.Database.ConnectTimeout

	conn, err := postgres.NewConnection(ctx, pgConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	migrator := postgres.NewMigrator(conn)

	switch cmd {
	case "up":
		if err := migrator.Migrate(ctx); err != nil {
			return err
		}
		log.Info("migrations applied")
	case "down":
		if err := migrator.Rollback(ctx); err != nil {
			return err
		}
		log.Info("last migration rolled back")
	case "status":
		migrations, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
		for _, m := range migrations {
			applied := "pending"
			if m.IsApplied {
				applied = m.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", m.Version, m.Name, applied)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

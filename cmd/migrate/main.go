// Command migrate applies or rolls back the database schema outside of the server.
//
//	migrate [-config config.yaml] up
//	migrate [-config config.yaml] -steps 1 down
//	migrate [-config config.yaml] version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/db"
	"github.com/kumagoya/kumagoya/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	steps := flag.Int("steps", 1, "Number of migrations to roll back with down")
	timeout := flag.Duration("timeout", time.Minute, "Give up after this long")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	l := logger.New("info", true)
	config.SetLogger(logger.Component(l, "config"))
	db.SetLogger(logger.Component(l, "db"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, flag.Arg(0), *steps, l); err != nil {
		l.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Migration failed")
	}
}

func run(ctx context.Context, cfg *config.Config, command string, steps int, l zerolog.Logger) error {
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, db.Pool{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxIdleTime:  cfg.Database.MaxIdleTime,
	})
	if err != nil {
		return err
	}
	if err := d.Init(ctx); err != nil {
		return err
	}
	defer d.Close()

	switch command {
	case "up":
		return db.Migrate(ctx, d)
	case "down":
		if steps < 1 {
			return fmt.Errorf("steps must be positive, got %d", steps)
		}
		if err := db.MigrateDown(ctx, d, steps); err != nil {
			return err
		}
		l.Info().Int("steps", steps).Msg("Rolled back migrations")
		return nil
	case "version":
		version, dirty, err := db.MigrationVersion(ctx, d)
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/config"
	"github.com/pedrolabre/personal-finance-manager/internal/infra/sqlite"
	"github.com/pedrolabre/personal-finance-manager/internal/logger"
)

func main() {
	cfg := config.Load()

	var (
		dbPath    = flag.String("db", cfg.DBPath, "SQLite database path (or set PFM_DB_PATH)")
		appliedBy = flag.String("applied-by", "migrate-cli", "Name recorded for applied migrations")
		status    = flag.Bool("status", false, "List applied and pending migrations without applying")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sqlite.OpenWithoutMigrations(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer db.Close()

	migrations, err := sqlite.LoadMigrations()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	applied, err := sqlite.AppliedMigrations(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}

	pending := pendingMigrations(migrations, applied)
	log.Info().
		Str("db", *dbPath).
		Int("found", len(migrations)).
		Int("applied", len(applied)).
		Int("pending", len(pending)).
		Msg("Loaded migrations")

	if *status {
		for _, line := range statusLines(migrations, applied) {
			fmt.Println(line)
		}
		return
	}

	n, err := sqlite.Migrate(ctx, db, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Int("applied", n).Msg("Migration failed")
	}
	if n == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}
	log.Info().Int("applied", n).Msg("Migrations applied")
}

func pendingMigrations(all []sqlite.Migration, applied []sqlite.AppliedMigration) []sqlite.Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}
	var pending []sqlite.Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

func statusLines(all []sqlite.Migration, applied []sqlite.AppliedMigration) []string {
	byVersion := make(map[int]sqlite.AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}
	lines := make([]string, 0, len(all))
	for _, m := range all {
		am, ok := byVersion[m.Version]
		switch {
		case !ok:
			lines = append(lines, fmt.Sprintf("  [PENDING] %04d_%s", m.Version, m.Name))
		case am.Checksum != "" && am.Checksum != m.Checksum:
			lines = append(lines, fmt.Sprintf("  [CHANGED] %04d_%s", m.Version, m.Name))
		default:
			lines = append(lines, fmt.Sprintf("  [APPLIED] %04d_%s (%s by %s)", m.Version, m.Name,
				am.AppliedAt.Format(time.RFC3339), am.AppliedBy))
		}
	}
	return lines
}

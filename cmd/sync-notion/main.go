package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/config"
	"github.com/pedrolabre/personal-finance-manager/internal/infra/sqlite"
	"github.com/pedrolabre/personal-finance-manager/internal/logger"
	"github.com/pedrolabre/personal-finance-manager/internal/notionsync"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithLevel(cfg.LogLevel)

	dbPath := flag.String("db", cfg.DBPath, "SQLite database path (or set PFM_DB_PATH)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set PFM_NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDebtsDBID, "Notion debts database ID (or set PFM_NOTION_DEBTS_DB_ID)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	db, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer db.Close()

	debts := service.NewDebtService(
		sqlite.NewDebtRepository(db),
		sqlite.NewCardRepository(db),
		sqlite.NewInstallmentRepository(db),
		nil, cfg.DefaultIntervalDays, log,
	)

	report, err := notionsync.SyncDebts(ctx, debts, notionsync.NewNotionClient(*notionToken), *notionDBID, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived, %d failed.\n",
		report.Created, report.Updated, report.Archived, report.Failed)
}

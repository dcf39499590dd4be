package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/config"
	"github.com/pedrolabre/personal-finance-manager/internal/infra/sqlite"
	"github.com/pedrolabre/personal-finance-manager/internal/logger"
	"github.com/pedrolabre/personal-finance-manager/internal/notify"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
)

// StatusRefresher marks overdue installments and debts.
type StatusRefresher interface {
	RefreshStatuses(ctx context.Context) (service.RefreshReport, error)
}

// Dispatcher delivers reminders that are due.
type Dispatcher interface {
	DispatchDue(ctx context.Context, now time.Time) (int, error)
}

func main() {
	cfg := config.Load()

	var (
		dbPath   = flag.String("db", cfg.DBPath, "SQLite database path (or set PFM_DB_PATH)")
		interval = flag.Duration("interval", time.Hour, "Time between runs")
		once     = flag.Bool("once", false, "Run a single pass and exit")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	db, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer db.Close()

	var sender service.Sender = notify.NewLogSender(log)
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID, logger.Component(log, "telegram"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram sender")
		}
		sender = tg
	} else {
		log.Warn().Msg("Telegram not configured - reminders will only be logged")
	}

	debtsRepo := sqlite.NewDebtRepository(db)
	instRepo := sqlite.NewInstallmentRepository(db)
	cards := service.NewCardService(sqlite.NewCardRepository(db), debtsRepo, log)
	dashboard := service.NewDashboardService(debtsRepo, instRepo, sqlite.NewReceivableRepository(db), cards, logger.Component(log, "dashboard"))

	notifyCfg := service.DefaultNotificationConfig()
	notifyCfg.DaysAhead = cfg.ReminderDaysAhead
	notifications := service.NewNotificationService(sqlite.NewNotificationRepository(db), instRepo, sender, notifyCfg, logger.Component(log, "notifications"))

	if *once {
		if err := runOnce(ctx, dashboard, notifications, time.Now(), log); err != nil {
			log.Fatal().Err(err).Msg("Worker pass failed")
		}
		return
	}

	log.Info().Dur("interval", *interval).Msg("Worker service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		if err := runOnce(ctx, dashboard, notifications, time.Now(), log); err != nil {
			log.Error().Err(err).Msg("Worker pass failed")
		}
		select {
		case <-quit:
			log.Info().Msg("Worker service exited")
			return
		case <-ticker.C:
		}
	}
}

// runOnce refreshes statuses and then sends due reminders. A refresh
// failure does not block delivery.
func runOnce(ctx context.Context, refresher StatusRefresher, dispatcher Dispatcher, now time.Time, log zerolog.Logger) error {
	report, refreshErr := refresher.RefreshStatuses(ctx)
	if refreshErr != nil {
		log.Error().Err(refreshErr).Msg("Failed to refresh statuses")
	} else {
		log.Info().
			Int("installments_marked", report.InstallmentsMarked).
			Int("debts_marked", report.DebtsMarked).
			Msg("Statuses refreshed")
	}

	sent, err := dispatcher.DispatchDue(ctx, now)
	if err != nil {
		return fmt.Errorf("runOnce: dispatch: %w", err)
	}
	log.Debug().Int("sent", sent).Msg("Reminders dispatched")

	if refreshErr != nil {
		return fmt.Errorf("runOnce: refresh: %w", refreshErr)
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/api"
	"github.com/pedrolabre/personal-finance-manager/internal/api/handlers"
	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/classifier"
	"github.com/pedrolabre/personal-finance-manager/internal/config"
	"github.com/pedrolabre/personal-finance-manager/internal/events"
	"github.com/pedrolabre/personal-finance-manager/internal/gcsuploader"
	"github.com/pedrolabre/personal-finance-manager/internal/infra/sqlite"
	"github.com/pedrolabre/personal-finance-manager/internal/jobs"
	"github.com/pedrolabre/personal-finance-manager/internal/jobs/inmemory"
	"github.com/pedrolabre/personal-finance-manager/internal/logger"
	"github.com/pedrolabre/personal-finance-manager/internal/notify"
	"github.com/pedrolabre/personal-finance-manager/internal/pipeline"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
)

func main() {
	cfg := config.Load()

	var (
		port   = flag.String("port", cfg.HTTPPort, "HTTP server port (or set PFM_HTTP_PORT)")
		dbPath = flag.String("db", cfg.DBPath, "SQLite database path (or set PFM_DB_PATH)")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	db, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer db.Close()

	cardsRepo := sqlite.NewCardRepository(db)
	debtsRepo := sqlite.NewDebtRepository(db)
	instRepo := sqlite.NewInstallmentRepository(db)
	receivablesRepo := sqlite.NewReceivableRepository(db)
	bus := events.NewBus()

	debts := service.NewDebtService(debtsRepo, cardsRepo, instRepo, bus, cfg.DefaultIntervalDays, logger.Component(log, "debts"))
	cards := service.NewCardService(cardsRepo, debtsRepo, logger.Component(log, "cards"))
	installments := service.NewInstallmentService(instRepo, debtsRepo, bus, logger.Component(log, "installments"))
	agreements := service.NewAgreementService(sqlite.NewAgreementRepository(db), debtsRepo, instRepo, debts, logger.Component(log, "agreements"))
	receivables := service.NewReceivableService(receivablesRepo, bus, logger.Component(log, "receivables"))
	dashboard := service.NewDashboardService(debtsRepo, instRepo, receivablesRepo, cards, logger.Component(log, "dashboard"))

	// Reminders are scheduled here and delivered by cmd/worker.
	notifyCfg := service.DefaultNotificationConfig()
	notifyCfg.DaysAhead = cfg.ReminderDaysAhead
	notifications := service.NewNotificationService(sqlite.NewNotificationRepository(db), instRepo,
		notify.NewLogSender(log), notifyCfg, logger.Component(log, "notifications"))
	for _, sub := range notifications.Subscribe(bus) {
		defer sub.Unsubscribe()
	}

	opts := []pipeline.Option{}
	if cfg.GCSBucket != "" {
		opts = append(opts, pipeline.WithFetcher(gcsuploader.NewGCSStorageService()))
	} else {
		log.Warn().Msg("No GCS bucket configured - imports from gs:// URIs are disabled")
	}
	if cfg.ClassifyWithAI {
		gen, err := classifier.NewGeminiGenerator(ctx, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		opts = append(opts, pipeline.WithClassifier(classifier.New(gen, logger.Component(log, "classifier"))))
	}
	importer := pipeline.NewImporter(cardsRepo, debts, logger.Component(log, "import"), opts...)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.JobWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.JobWorkers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewImportHandler(importer, logger.Component(log, "jobs"))); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	mux := api.NewMux(api.Handlers{
		Imports:      handlers.NewImportsHandler(importer, jobQueue, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
		Cards:        handlers.NewCardsHandler(cards, log),
		Debts:        handlers.NewDebtsHandler(debts, installments, log),
		Installments: handlers.NewInstallmentsHandler(installments, cfg.DefaultIntervalDays, log),
		Agreements:   handlers.NewAgreementsHandler(agreements, log),
		Receivables:  handlers.NewReceivablesHandler(receivables, log),
		Dashboard:    handlers.NewDashboardHandler(dashboard, log),
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      middleware.Chain(mux, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Str("db", *dbPath).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight imports finish before the database closes.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/classifier"
	"github.com/pedrolabre/personal-finance-manager/internal/config"
	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/gcsuploader"
	infraBQ "github.com/pedrolabre/personal-finance-manager/internal/infra/bigquery"
	"github.com/pedrolabre/personal-finance-manager/internal/infra/sqlite"
	"github.com/pedrolabre/personal-finance-manager/internal/installments"
	"github.com/pedrolabre/personal-finance-manager/internal/logger"
	"github.com/pedrolabre/personal-finance-manager/internal/parser"
	"github.com/pedrolabre/personal-finance-manager/internal/pipeline"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithLevel(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		runImport(cfg, log)
	case "cards":
		runCards(cfg, log)
	case "debts":
		runDebts(cfg, log)
	case "installments":
		runInstallments(cfg, log)
	case "pay":
		runPay(cfg, log)
	case "dashboard":
		runDashboard(cfg, log)
	case "refresh-status":
		runRefresh(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "export-bq":
		runExportBQ(cfg, log)
	case "bq-schedule":
		runBQSchedule(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Personal Finance Manager CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import          Import debts from a file, GCS object or stdin")
	fmt.Println("  cards           List cards (cards list) or create one (cards add -name NAME)")
	fmt.Println("  debts           List debts")
	fmt.Println("  installments    List stored installments, or print a plan with -total and -count")
	fmt.Println("  pay             Mark an installment as paid")
	fmt.Println("  dashboard       Show the dashboard summary")
	fmt.Println("  refresh-status  Mark overdue installments and debts")
	fmt.Println("  upload          Upload a statement file to GCS")
	fmt.Println("  export-bq       Export debts and installments to BigQuery")
	fmt.Println("  bq-schedule     Show unpaid totals per month from the last export")
	fmt.Println("  help            Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// app holds the services a command needs, backed by one database handle.
type app struct {
	db           *sql.DB
	cardsRepo    *sqlite.CardRepository
	debtsRepo    *sqlite.DebtRepository
	instRepo     *sqlite.InstallmentRepository
	debts        *service.DebtService
	cards        *service.CardService
	installments *service.InstallmentService
	dashboard    *service.DashboardService
}

func openApp(ctx context.Context, cfg config.Config, dbPath string, log zerolog.Logger) *app {
	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", dbPath).Msg("Failed to open database")
	}
	a := &app{
		db:        db,
		cardsRepo: sqlite.NewCardRepository(db),
		debtsRepo: sqlite.NewDebtRepository(db),
		instRepo:  sqlite.NewInstallmentRepository(db),
	}
	a.debts = service.NewDebtService(a.debtsRepo, a.cardsRepo, a.instRepo, nil, cfg.DefaultIntervalDays, log)
	a.cards = service.NewCardService(a.cardsRepo, a.debtsRepo, log)
	a.installments = service.NewInstallmentService(a.instRepo, a.debtsRepo, nil, log)
	a.dashboard = service.NewDashboardService(a.debtsRepo, a.instRepo, sqlite.NewReceivableRepository(db), a.cards, log)
	return a
}

func (a *app) Close() {
	a.db.Close()
}

func dbFlag(fs *flag.FlagSet, cfg config.Config) *string {
	return fs.String("db", cfg.DBPath, "SQLite database path (or set PFM_DB_PATH)")
}

func runImport(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	file := fs.String("file", "", "Path to the file to import (default: stdin)")
	gcsURI := fs.String("gcs-uri", "", "gs:// URI of the file to import")
	formatName := fs.String("format", "auto", "Input format: auto, simple, csv or json")
	dryRun := fs.Bool("dry-run", false, "Parse and validate without storing")
	archive := fs.Bool("archive", false, "Copy the imported file to the GCS bucket (PFM_GCS_BUCKET)")
	fs.Parse(os.Args[2:])

	if *file != "" && *gcsURI != "" {
		log.Fatal().Msg("Error: use either --file or --gcs-uri, not both")
	}
	format, err := pipeline.ParseFormat(*formatName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid format")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := openApp(ctx, cfg, *dbPath, log)
	defer a.Close()

	opts := []pipeline.Option{pipeline.WithFetcher(gcsuploader.NewGCSStorageService())}
	if cfg.ClassifyWithAI {
		gen, err := classifier.NewGeminiGenerator(ctx, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		opts = append(opts, pipeline.WithClassifier(classifier.New(gen, log)))
	}
	importer := pipeline.NewImporter(a.cardsRepo, a.debts, log, opts...)

	var res *pipeline.Result
	switch {
	case *gcsURI != "":
		res, err = importer.ImportGCS(ctx, *gcsURI, format, *dryRun)
	case *file != "":
		res, err = importer.ImportFile(ctx, *file, format, *dryRun)
	default:
		res, err = importer.ImportReader(ctx, os.Stdin, format, *dryRun)
	}
	if res != nil {
		printResult(res, *dryRun)
	}
	if err != nil || res == nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	if *archive && *file != "" && !*dryRun && res.Succeeded {
		if cfg.GCSBucket == "" {
			log.Fatal().Msg("Error: --archive needs PFM_GCS_BUCKET")
		}
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read file for archiving")
		}
		uri, err := gcsuploader.ArchiveImport(ctx, cfg.GCSBucket, filepath.Base(*file), data, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("Archive failed")
		}
		fmt.Printf("Archived to %s\n", uri)
	}

	if !res.Succeeded {
		os.Exit(1)
	}
}

func printResult(res *pipeline.Result, dryRun bool) {
	if dryRun {
		fmt.Printf("Preview (%s): %d record(s) parsed\n", res.FormatUsed, len(res.Records))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tAMOUNT\tDATE\tTYPE\tCARD")
		for _, r := range res.Records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Amount.StringFixed(2), r.Date.Format("02/01/2006"), r.DebtType, r.CardLabel)
		}
		w.Flush()
	} else {
		fmt.Printf("Import (%s): %s\n", res.FormatUsed, res.Summary())
	}
	for _, e := range res.Errors {
		fmt.Printf("  error:   %s\n", e)
	}
	for _, wn := range res.Warnings {
		fmt.Printf("  warning: %s\n", wn)
	}
}

// subcommand splits "cards add -name X" into "add" and the remaining
// flags. Without an action the default is used.
func subcommand(args []string, def string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return def, args
}

func runCards(cfg config.Config, log zerolog.Logger) {
	action, args := subcommand(os.Args[2:], "list")

	fs := flag.NewFlagSet("cards "+action, flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	name := fs.String("name", "", "Name of the new card")
	bank := fs.String("bank", "", "Issuing bank of the new card")
	closingDay := fs.Int("closing-day", 1, "Statement closing day of the new card")
	dueDay := fs.Int("due-day", 10, "Due day of the new card")
	activeOnly := fs.Bool("active", false, "List active cards only")
	fs.Parse(args)

	ctx := logger.WithContext(context.Background(), log)
	a := openApp(ctx, cfg, *dbPath, log)
	defer a.Close()

	switch action {
	case "add":
		c, err := a.cards.Create(ctx, service.CardInput{Name: *name, Bank: *bank, ClosingDay: *closingDay, DueDay: *dueDay})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create card")
		}
		fmt.Printf("Created card %d: %s\n", c.ID, c.Name)
	case "list":
		list := a.cards.List
		if *activeOnly {
			list = a.cards.ListActive
		}
		cards, err := list(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list cards")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBANK\tCLOSING\tDUE\tACTIVE\tDEBTS\tTOTAL")
		for _, c := range cards {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%t\t%d\t%s\n",
				c.ID, c.Name, c.Bank, c.ClosingDay, c.DueDay, c.Active, c.DebtCount, c.TotalDebts.StringFixed(2))
		}
		w.Flush()
	default:
		log.Fatal().Str("action", action).Msg("Usage: cli cards [list|add] [options]")
	}
}

func runDebts(cfg config.Config, log zerolog.Logger) {
	action, args := subcommand(os.Args[2:], "list")
	if action != "list" {
		log.Fatal().Str("action", action).Msg("Usage: cli debts [list] [options]")
	}

	fs := flag.NewFlagSet("debts list", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	status := fs.String("status", "", "Filter by status (EmAberto, Atrasada, Acordada, Quitada)")
	fs.Parse(args)

	ctx := logger.WithContext(context.Background(), log)
	a := openApp(ctx, cfg, *dbPath, log)
	defer a.Close()

	var (
		views []service.DebtView
		err   error
	)
	if *status != "" {
		views, err = a.debts.ListByStatus(ctx, domain.ParseDebtStatus(*status))
	} else {
		views, err = a.debts.List(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list debts")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tTOTAL\tPAID\tREMAINING\tPARCELAS\tNEXT DUE")
	for _, v := range views {
		next := "-"
		if v.NextDueDate != nil {
			next = v.NextDueDate.Format("02/01/2006")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			v.ID, v.Name, v.Status, v.Total.StringFixed(2), v.Paid.StringFixed(2), v.Remaining.StringFixed(2),
			v.PaidCount, v.InstallmentCount, next)
	}
	w.Flush()
}

func runInstallments(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("installments", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	debtID := fs.Int64("debt", 0, "List the installments of this debt")
	days := fs.Int("upcoming", service.UpcomingWindowDays, "List pending installments due within this many days")
	total := fs.String("total", "", "Print a plan splitting this amount instead of listing stored installments")
	count := fs.Int("count", 1, "Number of installments in the plan")
	start := fs.String("start", "", "First due date of the plan (default: today)")
	interval := fs.Int("interval", cfg.DefaultIntervalDays, "Days between plan installments")
	fs.Parse(os.Args[2:])

	if *total != "" {
		printPlan(*total, *count, *start, *interval, log)
		return
	}

	ctx := logger.WithContext(context.Background(), log)
	a := openApp(ctx, cfg, *dbPath, log)
	defer a.Close()

	var (
		items []domain.Installment
		err   error
	)
	if *debtID > 0 {
		items, err = a.installments.ListByDebt(ctx, *debtID)
	} else {
		items, err = a.installments.Upcoming(ctx, *days)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list installments")
	}
	printInstallments(items)
}

func printPlan(totalText string, count int, startText string, interval int, log zerolog.Logger) {
	total := parser.ParseAmount(totalText)
	if !total.IsPositive() {
		log.Fatal().Str("total", totalText).Msg("Error: --total must be a positive amount")
	}
	start := time.Now().UTC().Truncate(24 * time.Hour)
	if startText != "" {
		start = parser.ParseDate(startText)
		if start.IsZero() {
			log.Fatal().Str("start", startText).Msg("Error: invalid --start date")
		}
	}

	plan, err := installments.Generate(total, count, start, interval)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate plan")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tAMOUNT\tDUE")
	for _, p := range plan {
		fmt.Fprintf(w, "%d\t%s\t%s\n", p.Number, p.Amount.StringFixed(2), p.DueDate.Format("02/01/2006"))
	}
	w.Flush()
	fmt.Printf("Total: %s\n", installments.Sum(plan).StringFixed(2))
}

func printInstallments(items []domain.Installment) {
	total := decimal.Zero
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDEBT\tNUMBER\tAMOUNT\tDUE\tSTATUS")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\n",
			it.ID, it.DebtID, it.Number, it.Amount.StringFixed(2), it.DueDate.Format("02/01/2006"), it.Status)
		total = total.Add(it.Amount)
	}
	w.Flush()
	fmt.Printf("Total: %s\n", total.StringFixed(2))
}

func runPay(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		log.Fatal().Msg("Usage: cli pay [-db PATH] INSTALLMENT_ID")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid installment ID")
	}

	ctx := logger.WithContext(context.Background(), log)
	a := openApp(ctx, cfg, *dbPath, log)
	defer a.Close()

	it, err := a.installments.Pay(ctx, id, time.Now())
	if err != nil {
		log.Fatal().Err(err).Int64("installment_id", id).Msg("Failed to pay installment")
	}
	fmt.Printf("Installment %d of debt %d paid (%s).\n", it.Number, it.DebtID, it.Amount.StringFixed(2))
}

func runDashboard(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	a := openApp(ctx, cfg, *dbPath, log)
	defer a.Close()

	sum, err := a.dashboard.Summary(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build summary")
	}

	fmt.Println("\n=== Dashboard ===")
	fmt.Printf("Open debts:        %s (%d debts, %d overdue)\n", sum.OpenDebtTotal.StringFixed(2), sum.DebtCount, sum.OverdueDebtCount)
	fmt.Printf("Paid so far:       %s\n", sum.PaidTotal.StringFixed(2))
	fmt.Printf("Due in %d days:    %s (%d installments)\n", service.UpcomingWindowDays, sum.UpcomingTotal.StringFixed(2), len(sum.Upcoming))
	fmt.Printf("Receivables:       %s of %s received (%d overdue)\n",
		sum.ReceivableReceived.StringFixed(2), sum.ReceivableExpected.StringFixed(2), sum.OverdueReceivableCount)
	if len(sum.Cards) > 0 {
		fmt.Println("\nCards:")
		for _, c := range sum.Cards {
			fmt.Printf("  %-20s %s (%d debts)\n", c.Name, c.TotalDebts.StringFixed(2), c.DebtCount)
		}
	}
	fmt.Println()
}

func runRefresh(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("refresh-status", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	a := openApp(ctx, cfg, *dbPath, log)
	defer a.Close()

	report, err := a.dashboard.RefreshStatuses(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to refresh statuses")
	}
	fmt.Printf("Marked %d installment(s) and %d debt(s) as overdue.\n", report.InstallmentsMarked, report.DebtsMarked)
}

func runUpload(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", cfg.GCSBucket, "GCS bucket name (or set PFM_GCS_BUCKET)")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := gcsuploader.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runExportBQ(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("export-bq", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	project := fs.String("project", cfg.GCPProjectID, "GCP project ID (or set GCP_PROJECT_ID)")
	dataset := fs.String("dataset", cfg.BQDataset, "BigQuery dataset (or set PFM_BQ_DATASET)")
	fs.Parse(os.Args[2:])

	if *project == "" {
		log.Fatal().Msg("Error: --project is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := openApp(ctx, cfg, *dbPath, log)
	defer a.Close()

	debts, err := a.debtsRepo.ListDebts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list debts")
	}
	var items []domain.Installment
	for _, d := range debts {
		its, err := a.instRepo.ListInstallmentsByDebt(ctx, d.ID)
		if err != nil {
			log.Fatal().Err(err).Int64("debt_id", d.ID).Msg("Failed to list installments")
		}
		items = append(items, its...)
	}

	exporter, err := infraBQ.NewExporter(ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
	}
	defer exporter.Close()

	if err := exporter.EnsureTables(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare BigQuery tables")
	}

	snap := infraBQ.BuildSnapshot(debts, items, time.Now())
	if err := exporter.Export(ctx, snap); err != nil {
		log.Fatal().Err(err).Str("run_id", snap.RunID).Msg("Export failed")
	}

	fmt.Printf("Exported %d debts and %d installments (run %s).\n", len(snap.Debts), len(snap.Installments), snap.RunID)
}

func runBQSchedule(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("bq-schedule", flag.ExitOnError)
	project := fs.String("project", cfg.GCPProjectID, "GCP project ID (or set GCP_PROJECT_ID)")
	dataset := fs.String("dataset", cfg.BQDataset, "BigQuery dataset (or set PFM_BQ_DATASET)")
	fs.Parse(os.Args[2:])

	if *project == "" {
		log.Fatal().Msg("Error: --project is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	exporter, err := infraBQ.NewExporter(ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
	}
	defer exporter.Close()

	rows, err := exporter.QueryMonthlySchedule(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query schedule")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tINSTALLMENTS\tTOTAL")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%s\n", r.Month, r.Count, r.TotalDecimal().StringFixed(2))
	}
	w.Flush()
}

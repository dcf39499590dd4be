// Package bigquery exports debt snapshots to BigQuery for analysis and
// reads aggregate schedules back.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	debtsTable        = "debts"
	installmentsTable = "installments"

	// insertBatchSize keeps streaming inserts under the request size limit.
	insertBatchSize = 500
)

// Snapshot is one export run.
type Snapshot struct {
	RunID        string
	ExportedAt   time.Time
	Debts        []*DebtRow
	Installments []*InstallmentRow
}

// BuildSnapshot converts debts and installments into export rows sharing a
// new run ID.
func BuildSnapshot(debts []domain.Debt, installments []domain.Installment, exportedAt time.Time) *Snapshot {
	s := &Snapshot{
		RunID:        uuid.New().String(),
		ExportedAt:   exportedAt.UTC(),
		Debts:        make([]*DebtRow, 0, len(debts)),
		Installments: make([]*InstallmentRow, 0, len(installments)),
	}
	for _, d := range debts {
		s.Debts = append(s.Debts, NewDebtRow(d, s.RunID, s.ExportedAt))
	}
	for _, it := range installments {
		s.Installments = append(s.Installments, NewInstallmentRow(it, s.RunID, s.ExportedAt))
	}
	return s
}

// Exporter writes snapshots into a dataset. It holds a shared BigQuery
// client; call Close when done.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewExporter creates an Exporter for projectID.datasetID.
func NewExporter(ctx context.Context, projectID, datasetID string) (*Exporter, error) {
	if projectID == "" || datasetID == "" {
		return nil, errors.New("NewExporter: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}
	return &Exporter{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *Exporter) table(name string) *bigquery.Table {
	return e.client.DatasetInProject(e.projectID, e.datasetID).Table(name)
}

// EnsureTables creates the dataset and tables when missing.
func (e *Exporter) EnsureTables(ctx context.Context) error {
	ds := e.client.DatasetInProject(e.projectID, e.datasetID)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureTables: creating dataset %s: %w", e.datasetID, err)
	}

	for name, row := range map[string]interface{}{
		debtsTable:        DebtRow{},
		installmentsTable: InstallmentRow{},
	} {
		schema, err := bigquery.InferSchema(row)
		if err != nil {
			return fmt.Errorf("EnsureTables: inferring %s schema: %w", name, err)
		}
		meta := &bigquery.TableMetadata{
			Schema:           schema,
			TimePartitioning: &bigquery.TimePartitioning{Field: "exported_ts", Type: bigquery.DayPartitioningType},
		}
		if err := ds.Table(name).Create(ctx, meta); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("EnsureTables: creating table %s: %w", name, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

// Export streams a snapshot into the debts and installments tables.
func (e *Exporter) Export(ctx context.Context, s *Snapshot) error {
	if err := putBatches(ctx, e.table(debtsTable).Inserter(), s.Debts); err != nil {
		return fmt.Errorf("Export: inserting debts: %w", err)
	}
	if err := putBatches(ctx, e.table(installmentsTable).Inserter(), s.Installments); err != nil {
		return fmt.Errorf("Export: inserting installments: %w", err)
	}
	return nil
}

func putBatches[T any](ctx context.Context, ins *bigquery.Inserter, rows []T) error {
	for _, batch := range batches(rows, insertBatchSize) {
		if err := ins.Put(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func batches[T any](rows []T, size int) [][]T {
	var out [][]T
	for len(rows) > 0 {
		n := size
		if len(rows) < n {
			n = len(rows)
		}
		out = append(out, rows[:n])
		rows = rows[n:]
	}
	return out
}

// QueryMonthlySchedule sums unpaid installments by due month in the latest
// export run.
func (e *Exporter) QueryMonthlySchedule(ctx context.Context) ([]*MonthlyDueRow, error) {
	table := fmt.Sprintf("`%s.%s.%s`", e.projectID, e.datasetID, installmentsTable)
	q := e.client.Query(fmt.Sprintf(`
		SELECT
			FORMAT_DATE('%%Y-%%m', due_date) AS month,
			SUM(amount) AS total,
			COUNT(*) AS installments
		FROM %s
		WHERE export_run_id = (
			SELECT export_run_id FROM %s ORDER BY exported_ts DESC LIMIT 1
		)
		  AND status != @paid
		GROUP BY month
		ORDER BY month
	`, table, table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "paid", Value: string(domain.InstallmentPaid)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryMonthlySchedule: query read: %w", err)
	}

	var rows []*MonthlyDueRow
	for {
		var r MonthlyDueRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryMonthlySchedule: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

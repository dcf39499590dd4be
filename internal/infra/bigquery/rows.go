package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// DebtRow is one debt in an export snapshot.
type DebtRow struct {
	ExportRunID string    `bigquery:"export_run_id"` // REQUIRED
	ExportedTS  time.Time `bigquery:"exported_ts"`   // REQUIRED

	DebtID   int64    `bigquery:"debt_id"` // REQUIRED
	Name     string   `bigquery:"name"`    // REQUIRED
	Total    *big.Rat `bigquery:"total"`   // REQUIRED NUMERIC
	Status   string   `bigquery:"status"`
	Priority string   `bigquery:"priority"`
	DebtType string   `bigquery:"debt_type"`

	Description bigquery.NullString `bigquery:"description"` // NULLABLE
	CardID      bigquery.NullInt64  `bigquery:"card_id"`     // NULLABLE

	Installmented bool       `bigquery:"installmented"`
	CreatedDate   civil.Date `bigquery:"created_date"`
}

// InstallmentRow is one installment in an export snapshot.
type InstallmentRow struct {
	ExportRunID string    `bigquery:"export_run_id"` // REQUIRED
	ExportedTS  time.Time `bigquery:"exported_ts"`   // REQUIRED

	InstallmentID int64              `bigquery:"installment_id"` // REQUIRED
	DebtID        int64              `bigquery:"debt_id"`        // REQUIRED
	AgreementID   bigquery.NullInt64 `bigquery:"agreement_id"`   // NULLABLE

	Number  int64      `bigquery:"number"`
	Amount  *big.Rat   `bigquery:"amount"` // REQUIRED NUMERIC
	DueDate civil.Date `bigquery:"due_date"`
	Status  string     `bigquery:"status"`

	PaidDate bigquery.NullDate `bigquery:"paid_date"` // NULLABLE
}

// MonthlyDueRow is the unpaid amount falling due in one calendar month.
type MonthlyDueRow struct {
	Month string   `bigquery:"month"` // YYYY-MM
	Total *big.Rat `bigquery:"total"`
	Count int64    `bigquery:"installments"`
}

// TotalDecimal converts Total back to a decimal.
func (r MonthlyDueRow) TotalDecimal() decimal.Decimal {
	if r.Total == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r.Total, 2)
}

// NewDebtRow converts a debt for export.
func NewDebtRow(d domain.Debt, runID string, exportedAt time.Time) *DebtRow {
	row := &DebtRow{
		ExportRunID:   runID,
		ExportedTS:    exportedAt.UTC(),
		DebtID:        d.ID,
		Name:          d.Name,
		Total:         d.Total.Rat(),
		Status:        string(d.Status),
		Priority:      string(d.Priority),
		DebtType:      string(d.Type),
		Installmented: d.Installmented,
		CreatedDate:   civil.DateOf(d.CreatedAt.UTC()),
	}
	if d.Description != "" {
		row.Description = bigquery.NullString{StringVal: d.Description, Valid: true}
	}
	if d.CardID != nil {
		row.CardID = bigquery.NullInt64{Int64: *d.CardID, Valid: true}
	}
	return row
}

// NewInstallmentRow converts an installment for export.
func NewInstallmentRow(it domain.Installment, runID string, exportedAt time.Time) *InstallmentRow {
	row := &InstallmentRow{
		ExportRunID:   runID,
		ExportedTS:    exportedAt.UTC(),
		InstallmentID: it.ID,
		DebtID:        it.DebtID,
		Number:        int64(it.Number),
		Amount:        it.Amount.Rat(),
		DueDate:       civil.DateOf(it.DueDate.UTC()),
		Status:        string(it.Status),
	}
	if it.AgreementID != nil {
		row.AgreementID = bigquery.NullInt64{Int64: *it.AgreementID, Valid: true}
	}
	if it.PaidAt != nil {
		row.PaidDate = bigquery.NullDate{Date: civil.DateOf(it.PaidAt.UTC()), Valid: true}
	}
	return row
}

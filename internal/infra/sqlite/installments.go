package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/shopspring/decimal"
)

const installmentColumns = `id, debt_id, agreement_id, number, amount_cents, due_date, paid_at, status`

// InstallmentRepository persists installments.
type InstallmentRepository struct {
	db *sql.DB
}

// NewInstallmentRepository creates an InstallmentRepository over db.
func NewInstallmentRepository(db *sql.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

func scanInstallment(s scanner) (domain.Installment, error) {
	var (
		i           domain.Installment
		agreementID sql.NullInt64
		cents       int64
		due         string
		paidAt      sql.NullString
	)
	if err := s.Scan(&i.ID, &i.DebtID, &agreementID, &i.Number, &cents, &due, &paidAt, &i.Status); err != nil {
		return i, err
	}
	dueDate, err := parseDate(due)
	if err != nil {
		return i, fmt.Errorf("due_date: %w", err)
	}
	if i.PaidAt, err = scanNullableTimestamp(paidAt); err != nil {
		return i, fmt.Errorf("paid_at: %w", err)
	}
	i.AgreementID = scanNullableID(agreementID)
	i.Amount = fromCents(cents)
	i.DueDate = dueDate
	return i, nil
}

// CreateInstallments inserts items in one transaction and sets their IDs.
func (r *InstallmentRepository) CreateInstallments(ctx context.Context, items []domain.Installment) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateInstallments: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO installments (debt_id, agreement_id, number, amount_cents, due_date, paid_at, status) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("CreateInstallments: prepare: %w", err)
	}
	defer stmt.Close()

	for idx := range items {
		it := &items[idx]
		res, err := stmt.ExecContext(ctx, it.DebtID, nullableID(it.AgreementID), it.Number,
			toCents(it.Amount), formatDate(it.DueDate), nullableTimestamp(it.PaidAt), it.Status)
		if err != nil {
			return mapError("CreateInstallments", err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("CreateInstallments: last insert id: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CreateInstallments: commit: %w", err)
	}
	return nil
}

// GetInstallment returns the installment with id.
func (r *InstallmentRepository) GetInstallment(ctx context.Context, id int64) (*domain.Installment, error) {
	i, err := scanInstallment(r.db.QueryRowContext(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id))
	if err != nil {
		return nil, mapError("GetInstallment", err)
	}
	return &i, nil
}

// UpdateInstallment stores the status, payment date and amount of i.
func (r *InstallmentRepository) UpdateInstallment(ctx context.Context, i *domain.Installment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE installments SET status = ?, paid_at = ?, amount_cents = ?, due_date = ? WHERE id = ?`,
		i.Status, nullableTimestamp(i.PaidAt), toCents(i.Amount), formatDate(i.DueDate), i.ID)
	if err != nil {
		return mapError("UpdateInstallment", err)
	}
	return checkAffected("UpdateInstallment", res)
}

// ListInstallmentsByDebt returns the installments of debtID by number.
func (r *InstallmentRepository) ListInstallmentsByDebt(ctx context.Context, debtID int64) ([]domain.Installment, error) {
	return r.list(ctx, "ListInstallmentsByDebt",
		`SELECT `+installmentColumns+` FROM installments WHERE debt_id = ? ORDER BY due_date, number, id`, debtID)
}

// ListInstallmentsByStatus returns installments in status ordered by due date.
func (r *InstallmentRepository) ListInstallmentsByStatus(ctx context.Context, status domain.InstallmentStatus) ([]domain.Installment, error) {
	return r.list(ctx, "ListInstallmentsByStatus",
		`SELECT `+installmentColumns+` FROM installments WHERE status = ? ORDER BY due_date, id`, status)
}

// ListInstallmentsDueBetween returns installments in status due within
// [from, to], both days inclusive.
func (r *InstallmentRepository) ListInstallmentsDueBetween(ctx context.Context, status domain.InstallmentStatus, from, to time.Time) ([]domain.Installment, error) {
	return r.list(ctx, "ListInstallmentsDueBetween",
		`SELECT `+installmentColumns+` FROM installments WHERE status = ? AND due_date >= ? AND due_date <= ? ORDER BY due_date, id`,
		status, formatDate(from), formatDate(to))
}

// SumPaidInstallments adds up every paid installment.
func (r *InstallmentRepository) SumPaidInstallments(ctx context.Context) (decimal.Decimal, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM installments WHERE status = ?`, domain.InstallmentPaid).Scan(&cents)
	if err != nil {
		return decimal.Zero, mapError("SumPaidInstallments", err)
	}
	return fromCents(cents), nil
}

// DeletePendingInstallments removes the unpaid installments of debtID.
func (r *InstallmentRepository) DeletePendingInstallments(ctx context.Context, debtID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM installments WHERE debt_id = ? AND status != ?`, debtID, domain.InstallmentPaid)
	return mapError("DeletePendingInstallments", err)
}

// DeleteInstallmentsByAgreement removes every installment of agreementID.
func (r *InstallmentRepository) DeleteInstallmentsByAgreement(ctx context.Context, agreementID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM installments WHERE agreement_id = ?`, agreementID)
	return mapError("DeleteInstallmentsByAgreement", err)
}

func (r *InstallmentRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Installment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var items []domain.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return items, nil
}

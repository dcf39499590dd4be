package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
)

const agreementColumns = `id, debt_id, date, installment_count, total_cents, notes, active`

// AgreementRepository persists settlement agreements.
type AgreementRepository struct {
	db *sql.DB
}

// NewAgreementRepository creates an AgreementRepository over db.
func NewAgreementRepository(db *sql.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

func scanAgreement(s scanner) (domain.Agreement, error) {
	var (
		a      domain.Agreement
		date   string
		cents  int64
		active int
	)
	if err := s.Scan(&a.ID, &a.DebtID, &date, &a.InstallmentCount, &cents, &a.Notes, &active); err != nil {
		return a, err
	}
	t, err := parseTimestamp(date)
	if err != nil {
		return a, fmt.Errorf("date: %w", err)
	}
	a.Date = t
	a.Total = fromCents(cents)
	a.Active = active != 0
	return a, nil
}

// CreateAgreement inserts a and sets its ID.
func (r *AgreementRepository) CreateAgreement(ctx context.Context, a *domain.Agreement) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO agreements (debt_id, date, installment_count, total_cents, notes, active) VALUES (?, ?, ?, ?, ?, ?)`,
		a.DebtID, formatTimestamp(a.Date), a.InstallmentCount, toCents(a.Total), a.Notes, boolToInt(a.Active))
	if err != nil {
		return mapError("CreateAgreement", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("CreateAgreement: last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// GetAgreement returns the agreement with id.
func (r *AgreementRepository) GetAgreement(ctx context.Context, id int64) (*domain.Agreement, error) {
	a, err := scanAgreement(r.db.QueryRowContext(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = ?`, id))
	if err != nil {
		return nil, mapError("GetAgreement", err)
	}
	return &a, nil
}

// ListAgreements returns every agreement, newest first.
func (r *AgreementRepository) ListAgreements(ctx context.Context) ([]domain.Agreement, error) {
	return r.list(ctx, "ListAgreements", `SELECT `+agreementColumns+` FROM agreements ORDER BY date DESC, id DESC`)
}

// ListAgreementsByDebt returns the agreements of debtID, newest first.
func (r *AgreementRepository) ListAgreementsByDebt(ctx context.Context, debtID int64) ([]domain.Agreement, error) {
	return r.list(ctx, "ListAgreementsByDebt",
		`SELECT `+agreementColumns+` FROM agreements WHERE debt_id = ? ORDER BY date DESC, id DESC`, debtID)
}

// DeactivateAgreements marks every agreement of debtID inactive.
func (r *AgreementRepository) DeactivateAgreements(ctx context.Context, debtID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE agreements SET active = 0 WHERE debt_id = ?`, debtID)
	return mapError("DeactivateAgreements", err)
}

// DeleteAgreement removes the agreement.
func (r *AgreementRepository) DeleteAgreement(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM agreements WHERE id = ?`, id)
	if err != nil {
		return mapError("DeleteAgreement", err)
	}
	return checkAffected("DeleteAgreement", res)
}

func (r *AgreementRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Agreement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var out []domain.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
)

const debtColumns = `id, name, description, total_cents, created_at, priority, status, type, card_id, installmented`

// DebtRepository persists debts.
type DebtRepository struct {
	db *sql.DB
}

// NewDebtRepository creates a DebtRepository over db.
func NewDebtRepository(db *sql.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

func scanDebt(s scanner) (domain.Debt, error) {
	var (
		d             domain.Debt
		cents         int64
		createdAt     string
		cardID        sql.NullInt64
		installmented int
	)
	if err := s.Scan(&d.ID, &d.Name, &d.Description, &cents, &createdAt, &d.Priority, &d.Status, &d.Type, &cardID, &installmented); err != nil {
		return d, err
	}
	created, err := parseTimestamp(createdAt)
	if err != nil {
		return d, fmt.Errorf("created_at: %w", err)
	}
	d.Total = fromCents(cents)
	d.CreatedAt = created
	d.CardID = scanNullableID(cardID)
	d.Installmented = installmented != 0
	return d, nil
}

// CreateDebt inserts d and sets its ID.
func (r *DebtRepository) CreateDebt(ctx context.Context, d *domain.Debt) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO debts (name, description, total_cents, created_at, priority, status, type, card_id, installmented)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Name, d.Description, toCents(d.Total), formatTimestamp(d.CreatedAt),
		d.Priority, d.Status, d.Type, nullableID(d.CardID), boolToInt(d.Installmented),
	)
	if err != nil {
		return mapError("CreateDebt", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("CreateDebt: last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// UpdateDebt overwrites the debt with d.ID. CreatedAt is kept.
func (r *DebtRepository) UpdateDebt(ctx context.Context, d *domain.Debt) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE debts SET name = ?, description = ?, total_cents = ?, priority = ?, status = ?, type = ?, card_id = ?, installmented = ?
		 WHERE id = ?`,
		d.Name, d.Description, toCents(d.Total), d.Priority, d.Status, d.Type,
		nullableID(d.CardID), boolToInt(d.Installmented), d.ID,
	)
	if err != nil {
		return mapError("UpdateDebt", err)
	}
	return checkAffected("UpdateDebt", res)
}

// SetDebtStatus changes only the status column.
func (r *DebtRepository) SetDebtStatus(ctx context.Context, id int64, status domain.DebtStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE debts SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return mapError("SetDebtStatus", err)
	}
	return checkAffected("SetDebtStatus", res)
}

// DeleteDebt removes the debt; its installments and agreements cascade.
func (r *DebtRepository) DeleteDebt(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	if err != nil {
		return mapError("DeleteDebt", err)
	}
	return checkAffected("DeleteDebt", res)
}

// GetDebt returns the debt with id.
func (r *DebtRepository) GetDebt(ctx context.Context, id int64) (*domain.Debt, error) {
	d, err := scanDebt(r.db.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = ?`, id))
	if err != nil {
		return nil, mapError("GetDebt", err)
	}
	return &d, nil
}

// ListDebts returns every debt, newest first.
func (r *DebtRepository) ListDebts(ctx context.Context) ([]domain.Debt, error) {
	return r.list(ctx, "ListDebts", `SELECT `+debtColumns+` FROM debts ORDER BY created_at DESC, id DESC`)
}

// ListDebtsByStatus returns the debts in status.
func (r *DebtRepository) ListDebtsByStatus(ctx context.Context, status domain.DebtStatus) ([]domain.Debt, error) {
	return r.list(ctx, "ListDebtsByStatus",
		`SELECT `+debtColumns+` FROM debts WHERE status = ? ORDER BY created_at DESC, id DESC`, status)
}

// ListDebtsByCard returns the debts attached to cardID.
func (r *DebtRepository) ListDebtsByCard(ctx context.Context, cardID int64) ([]domain.Debt, error) {
	return r.list(ctx, "ListDebtsByCard",
		`SELECT `+debtColumns+` FROM debts WHERE card_id = ? ORDER BY created_at DESC, id DESC`, cardID)
}

// CountDebtsByCard counts debts of any status attached to cardID.
func (r *DebtRepository) CountDebtsByCard(ctx context.Context, cardID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM debts WHERE card_id = ?`, cardID).Scan(&n); err != nil {
		return 0, mapError("CountDebtsByCard", err)
	}
	return n, nil
}

func (r *DebtRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Debt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var debts []domain.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return debts, nil
}

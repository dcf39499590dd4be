package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
)

const receivableColumns = `id, description, category, expected_date, received_date, expected_cents, received_cents, complete`

// ReceivableRepository persists expected income.
type ReceivableRepository struct {
	db *sql.DB
}

// NewReceivableRepository creates a ReceivableRepository over db.
func NewReceivableRepository(db *sql.DB) *ReceivableRepository {
	return &ReceivableRepository{db: db}
}

func scanReceivable(s scanner) (domain.Receivable, error) {
	var (
		rc                       domain.Receivable
		expectedDate             string
		receivedDate             sql.NullString
		expectedCents, recvCents int64
		complete                 int
	)
	if err := s.Scan(&rc.ID, &rc.Description, &rc.Category, &expectedDate, &receivedDate, &expectedCents, &recvCents, &complete); err != nil {
		return rc, err
	}
	d, err := parseDate(expectedDate)
	if err != nil {
		return rc, fmt.Errorf("expected_date: %w", err)
	}
	if rc.ReceivedDate, err = scanNullableTimestamp(receivedDate); err != nil {
		return rc, fmt.Errorf("received_date: %w", err)
	}
	rc.ExpectedDate = d
	rc.Expected = fromCents(expectedCents)
	rc.Received = fromCents(recvCents)
	rc.Complete = complete != 0
	return rc, nil
}

// CreateReceivable inserts rc and sets its ID.
func (r *ReceivableRepository) CreateReceivable(ctx context.Context, rc *domain.Receivable) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO receivables (description, category, expected_date, received_date, expected_cents, received_cents, complete)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rc.Description, rc.Category, formatDate(rc.ExpectedDate), nullableTimestamp(rc.ReceivedDate),
		toCents(rc.Expected), toCents(rc.Received), boolToInt(rc.Complete))
	if err != nil {
		return mapError("CreateReceivable", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("CreateReceivable: last insert id: %w", err)
	}
	rc.ID = id
	return nil
}

// UpdateReceivable overwrites the receivable with rc.ID.
func (r *ReceivableRepository) UpdateReceivable(ctx context.Context, rc *domain.Receivable) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE receivables SET description = ?, category = ?, expected_date = ?, received_date = ?,
		 expected_cents = ?, received_cents = ?, complete = ? WHERE id = ?`,
		rc.Description, rc.Category, formatDate(rc.ExpectedDate), nullableTimestamp(rc.ReceivedDate),
		toCents(rc.Expected), toCents(rc.Received), boolToInt(rc.Complete), rc.ID)
	if err != nil {
		return mapError("UpdateReceivable", err)
	}
	return checkAffected("UpdateReceivable", res)
}

// DeleteReceivable removes the receivable.
func (r *ReceivableRepository) DeleteReceivable(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM receivables WHERE id = ?`, id)
	if err != nil {
		return mapError("DeleteReceivable", err)
	}
	return checkAffected("DeleteReceivable", res)
}

// GetReceivable returns the receivable with id.
func (r *ReceivableRepository) GetReceivable(ctx context.Context, id int64) (*domain.Receivable, error) {
	rc, err := scanReceivable(r.db.QueryRowContext(ctx, `SELECT `+receivableColumns+` FROM receivables WHERE id = ?`, id))
	if err != nil {
		return nil, mapError("GetReceivable", err)
	}
	return &rc, nil
}

// ListReceivables returns every receivable ordered by expected date.
func (r *ReceivableRepository) ListReceivables(ctx context.Context) ([]domain.Receivable, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+receivableColumns+` FROM receivables ORDER BY expected_date, id`)
	if err != nil {
		return nil, mapError("ListReceivables", err)
	}
	defer rows.Close()

	var out []domain.Receivable
	for rows.Next() {
		rc, err := scanReceivable(rows)
		if err != nil {
			return nil, fmt.Errorf("ListReceivables: scan: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListReceivables: rows: %w", err)
	}
	return out, nil
}

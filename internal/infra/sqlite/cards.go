package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/shopspring/decimal"
)

const cardColumns = `id, name, bank, closing_day, due_day, limit_cents, active`

// CardRepository persists credit cards.
type CardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a CardRepository over db.
func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

func scanCard(s scanner) (domain.Card, error) {
	var (
		c      domain.Card
		limit  sql.NullInt64
		active int
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Bank, &c.ClosingDay, &c.DueDay, &limit, &active); err != nil {
		return c, err
	}
	if limit.Valid {
		l := fromCents(limit.Int64)
		c.Limit = &l
	}
	c.Active = active != 0
	return c, nil
}

func limitCents(l *decimal.Decimal) any {
	if l == nil {
		return nil
	}
	return toCents(*l)
}

// CreateCard inserts c and sets its ID. A duplicate name, compared without
// case, fails with domain.ErrConflict.
func (r *CardRepository) CreateCard(ctx context.Context, c *domain.Card) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (name, bank, closing_day, due_day, limit_cents, active) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Bank, c.ClosingDay, c.DueDay, limitCents(c.Limit), boolToInt(c.Active),
	)
	if err != nil {
		return mapError("CreateCard", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("CreateCard: last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// UpdateCard overwrites every column of the card with c.ID.
func (r *CardRepository) UpdateCard(ctx context.Context, c *domain.Card) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET name = ?, bank = ?, closing_day = ?, due_day = ?, limit_cents = ?, active = ? WHERE id = ?`,
		c.Name, c.Bank, c.ClosingDay, c.DueDay, limitCents(c.Limit), boolToInt(c.Active), c.ID,
	)
	if err != nil {
		return mapError("UpdateCard", err)
	}
	return checkAffected("UpdateCard", res)
}

// DeleteCard removes the card.
func (r *CardRepository) DeleteCard(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return mapError("DeleteCard", err)
	}
	return checkAffected("DeleteCard", res)
}

// GetCard returns the card with id.
func (r *CardRepository) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		return nil, mapError("GetCard", err)
	}
	return &c, nil
}

// FindCardByName matches name exactly, ignoring case.
func (r *CardRepository) FindCardByName(ctx context.Context, name string) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE name = ? COLLATE NOCASE`, name)
	c, err := scanCard(row)
	if err != nil {
		return nil, mapError("FindCardByName", err)
	}
	return &c, nil
}

// ListCards returns every card ordered by name.
func (r *CardRepository) ListCards(ctx context.Context) ([]domain.Card, error) {
	return r.list(ctx, "ListCards", `SELECT `+cardColumns+` FROM cards ORDER BY name`)
}

// ListActiveCards returns the active cards ordered by name.
func (r *CardRepository) ListActiveCards(ctx context.Context) ([]domain.Card, error) {
	return r.list(ctx, "ListActiveCards", `SELECT `+cardColumns+` FROM cards WHERE active = 1 ORDER BY name`)
}

func (r *CardRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return cards, nil
}

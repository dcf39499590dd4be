package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CardInput carries the editable fields of a card.
type CardInput struct {
	Name       string           `json:"name"`
	Bank       string           `json:"bank"`
	ClosingDay int              `json:"closing_day"`
	DueDay     int              `json:"due_day"`
	Limit      *decimal.Decimal `json:"limit"`
	Active     *bool            `json:"active"`
}

// CardService validates and stores credit cards.
type CardService struct {
	cards CardRepository
	debts DebtRepository
	log   zerolog.Logger
}

// NewCardService creates a CardService.
func NewCardService(cards CardRepository, debts DebtRepository, log zerolog.Logger) *CardService {
	return &CardService{cards: cards, debts: debts, log: log}
}

func (s *CardService) validate(ctx context.Context, in CardInput, excludeID int64) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name", "Nome é obrigatório")
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return domain.Invalid("due_day", "Dia de vencimento inválido")
	}
	if in.ClosingDay < 1 || in.ClosingDay > 31 {
		return domain.Invalid("closing_day", "Dia de fechamento inválido")
	}
	if in.Limit != nil {
		if err := domain.CheckAmount("limit", *in.Limit); err != nil {
			return err
		}
	}
	available, err := s.IsNameAvailable(ctx, in.Name, excludeID)
	if err != nil {
		return err
	}
	if !available {
		return domain.Invalid("name", "Já existe um cartão com este nome")
	}
	return nil
}

// IsNameAvailable reports whether no card other than excludeID is named
// name, ignoring case.
func (s *CardService) IsNameAvailable(ctx context.Context, name string, excludeID int64) (bool, error) {
	c, err := s.cards.FindCardByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsNameAvailable: %w", err)
	}
	return c.ID == excludeID, nil
}

// Create stores a new active card.
func (s *CardService) Create(ctx context.Context, in CardInput) (*domain.Card, error) {
	if err := s.validate(ctx, in, 0); err != nil {
		return nil, err
	}
	c := &domain.Card{
		Name:       strings.TrimSpace(in.Name),
		Bank:       strings.TrimSpace(in.Bank),
		ClosingDay: in.ClosingDay,
		DueDay:     in.DueDay,
		Limit:      in.Limit,
		Active:     in.Active == nil || *in.Active,
	}
	if err := s.cards.CreateCard(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.Invalid("name", "Já existe um cartão com este nome")
		}
		return nil, fmt.Errorf("Create: %w", err)
	}
	s.log.Info().Int64("card_id", c.ID).Str("name", c.Name).Msg("Card created")
	return c, nil
}

// Update replaces the editable fields of card id.
func (s *CardService) Update(ctx context.Context, id int64, in CardInput) (*domain.Card, error) {
	c, err := s.cards.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in, id); err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Bank = strings.TrimSpace(in.Bank)
	c.ClosingDay = in.ClosingDay
	c.DueDay = in.DueDay
	c.Limit = in.Limit
	if in.Active != nil {
		c.Active = *in.Active
	}
	if err := s.cards.UpdateCard(ctx, c); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	return c, nil
}

// Delete removes a card that no debt references.
func (s *CardService) Delete(ctx context.Context, id int64) error {
	n, err := s.debts.CountDebtsByCard(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: count debts: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("Não é possível excluir cartão com pendências vinculadas: %w", domain.ErrCardInUse)
	}
	return s.cards.DeleteCard(ctx, id)
}

// Get returns card id.
func (s *CardService) Get(ctx context.Context, id int64) (*domain.Card, error) {
	return s.cards.GetCard(ctx, id)
}

// List returns every card with its open debt totals.
func (s *CardService) List(ctx context.Context) ([]domain.CardSummary, error) {
	cards, err := s.cards.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, cards)
}

// ListActive returns active cards with their open debt totals.
func (s *CardService) ListActive(ctx context.Context) ([]domain.CardSummary, error) {
	cards, err := s.cards.ListActiveCards(ctx)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, cards)
}

func (s *CardService) summaries(ctx context.Context, cards []domain.Card) ([]domain.CardSummary, error) {
	out := make([]domain.CardSummary, 0, len(cards))
	for _, c := range cards {
		debts, err := s.debts.ListDebtsByCard(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("summaries: list debts: %w", err)
		}
		sum := domain.CardSummary{Card: c, TotalDebts: decimal.Zero}
		for _, d := range debts {
			if d.Status == domain.DebtStatusSettled {
				continue
			}
			sum.TotalDebts = sum.TotalDebts.Add(d.Total)
			sum.DebtCount++
		}
		out = append(out, sum)
	}
	return out, nil
}

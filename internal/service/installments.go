package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/events"
	"github.com/rs/zerolog"
)

// InstallmentService records payments against installment plans.
type InstallmentService struct {
	installments InstallmentRepository
	debts        DebtRepository
	events       Publisher
	now          func() time.Time
	log          zerolog.Logger
}

// NewInstallmentService creates an InstallmentService.
func NewInstallmentService(inst InstallmentRepository, debts DebtRepository, pub Publisher, log zerolog.Logger) *InstallmentService {
	return &InstallmentService{installments: inst, debts: debts, events: pub, now: time.Now, log: log}
}

// ListByDebt returns the installments of a debt ordered by number.
func (s *InstallmentService) ListByDebt(ctx context.Context, debtID int64) ([]domain.Installment, error) {
	if _, err := s.debts.GetDebt(ctx, debtID); err != nil {
		return nil, err
	}
	return s.installments.ListInstallmentsByDebt(ctx, debtID)
}

// Pay marks installment id as paid at paidAt (now when zero). The debt is
// settled once none of its installments is left unpaid.
func (s *InstallmentService) Pay(ctx context.Context, id int64, paidAt time.Time) (*domain.Installment, error) {
	it, err := s.installments.GetInstallment(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Status == domain.InstallmentPaid {
		return it, nil
	}
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	paidAt = paidAt.UTC()
	it.Status = domain.InstallmentPaid
	it.PaidAt = &paidAt
	if err := s.installments.UpdateInstallment(ctx, it); err != nil {
		return nil, fmt.Errorf("Pay: update installment: %w", err)
	}

	siblings, err := s.installments.ListInstallmentsByDebt(ctx, it.DebtID)
	if err != nil {
		return nil, fmt.Errorf("Pay: list installments: %w", err)
	}
	for _, other := range siblings {
		if other.Status != domain.InstallmentPaid {
			return it, nil
		}
	}
	if err := s.debts.SetDebtStatus(ctx, it.DebtID, domain.DebtStatusSettled); err != nil {
		return nil, fmt.Errorf("Pay: settle debt: %w", err)
	}
	s.log.Info().Int64("debt_id", it.DebtID).Msg("Debt settled after last installment")
	if s.events != nil {
		if d, err := s.debts.GetDebt(ctx, it.DebtID); err == nil {
			s.events.Publish(ctx, events.Event{Topic: events.TopicDebtUpdated, DebtID: d.ID, Debt: d})
		}
	}
	return it, nil
}

// Upcoming returns pending installments due within the next days days,
// today included.
func (s *InstallmentService) Upcoming(ctx context.Context, days int) ([]domain.Installment, error) {
	if days <= 0 {
		days = 30
	}
	from := startOfDay(s.now())
	return s.installments.ListInstallmentsDueBetween(ctx, domain.InstallmentPending, from, from.AddDate(0, 0, days))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

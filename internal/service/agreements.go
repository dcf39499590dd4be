package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AgreementInput describes a settlement agreement. A DebtID of zero
// creates a new debt named DebtName for it.
type AgreementInput struct {
	DebtID       int64           `json:"debt_id"`
	DebtName     string          `json:"debt_name"`
	Total        decimal.Decimal `json:"total"`
	Installments int             `json:"installments"`
	IntervalDays int             `json:"interval_days"`
	FirstDueDate time.Time       `json:"first_due_date"`
	Notes        string          `json:"notes"`
}

// AgreementService renegotiates debts into new installment plans.
type AgreementService struct {
	agreements   AgreementRepository
	debts        DebtRepository
	installments InstallmentRepository
	plans        *DebtService
	now          func() time.Time
	log          zerolog.Logger
}

// NewAgreementService creates an AgreementService. Plans are generated
// through debtService so that they share its default interval.
func NewAgreementService(agreements AgreementRepository, debts DebtRepository, inst InstallmentRepository, debtService *DebtService, log zerolog.Logger) *AgreementService {
	return &AgreementService{
		agreements:   agreements,
		debts:        debts,
		installments: inst,
		plans:        debtService,
		now:          time.Now,
		log:          log,
	}
}

// Create stores an agreement, replaces the unpaid installments of its debt
// with the agreed plan and marks the debt as agreed.
func (s *AgreementService) Create(ctx context.Context, in AgreementInput) (*domain.Agreement, error) {
	if in.Installments <= 0 {
		return nil, domain.Invalid("installments", "Número de parcelas deve ser maior que zero")
	}
	if !in.Total.IsPositive() {
		return nil, domain.Invalid("total", "Valor total deve ser maior que zero")
	}
	if err := domain.CheckAmount("total", in.Total); err != nil {
		return nil, err
	}
	if in.FirstDueDate.IsZero() {
		in.FirstDueDate = startOfDay(s.now())
	}

	debt, err := s.resolveDebt(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.agreements.DeactivateAgreements(ctx, debt.ID); err != nil {
		return nil, fmt.Errorf("Create: deactivate agreements: %w", err)
	}
	a := &domain.Agreement{
		DebtID:           debt.ID,
		Date:             s.now().UTC(),
		InstallmentCount: in.Installments,
		Total:            in.Total,
		Notes:            strings.TrimSpace(in.Notes),
		Active:           true,
	}
	if err := s.agreements.CreateAgreement(ctx, a); err != nil {
		return nil, fmt.Errorf("Create: store agreement: %w", err)
	}

	if err := s.installments.DeletePendingInstallments(ctx, debt.ID); err != nil {
		return nil, fmt.Errorf("Create: delete pending installments: %w", err)
	}
	paid, err := s.installments.ListInstallmentsByDebt(ctx, debt.ID)
	if err != nil {
		return nil, fmt.Errorf("Create: list installments: %w", err)
	}
	if err := s.plans.storePlan(ctx, debt.ID, &a.ID, in.Total, in.Installments, len(paid)+1, in.FirstDueDate, in.IntervalDays); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	if debt.Status != domain.DebtStatusAgreed {
		if err := s.debts.SetDebtStatus(ctx, debt.ID, domain.DebtStatusAgreed); err != nil {
			return nil, fmt.Errorf("Create: set debt status: %w", err)
		}
		debt.Status = domain.DebtStatusAgreed
	}
	s.log.Info().Int64("agreement_id", a.ID).Int64("debt_id", debt.ID).Int("installments", a.InstallmentCount).Msg("Agreement created")
	s.plans.publish(ctx, events.TopicDebtUpdated, debt)
	return a, nil
}

func (s *AgreementService) resolveDebt(ctx context.Context, in AgreementInput) (*domain.Debt, error) {
	if in.DebtID < 0 {
		return nil, domain.Invalid("debt_id", "Pendência inválida")
	}
	if in.DebtID > 0 {
		d, err := s.debts.GetDebt(ctx, in.DebtID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("debt_id", "Pendência não encontrada")
		}
		if err != nil {
			return nil, fmt.Errorf("resolveDebt: %w", err)
		}
		return d, nil
	}

	name := strings.TrimSpace(in.DebtName)
	if name == "" {
		name = "Acordo"
	}
	d := &domain.Debt{
		Name:          name,
		Total:         in.Total,
		CreatedAt:     s.now().UTC(),
		Priority:      domain.PriorityMedium,
		Status:        domain.DebtStatusAgreed,
		Type:          domain.DebtTypeOther,
		Installmented: in.Installments > 1,
	}
	if err := s.debts.CreateDebt(ctx, d); err != nil {
		return nil, fmt.Errorf("resolveDebt: create debt: %w", err)
	}
	s.plans.publish(ctx, events.TopicDebtCreated, d)
	return d, nil
}

// Delete removes an agreement and its installments and reopens the debt.
func (s *AgreementService) Delete(ctx context.Context, id int64) error {
	a, err := s.agreements.GetAgreement(ctx, id)
	if err != nil {
		return err
	}
	if err := s.installments.DeleteInstallmentsByAgreement(ctx, id); err != nil {
		return fmt.Errorf("Delete: delete installments: %w", err)
	}
	if err := s.agreements.DeleteAgreement(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := s.debts.SetDebtStatus(ctx, a.DebtID, domain.DebtStatusOpen); err != nil {
		return fmt.Errorf("Delete: reopen debt: %w", err)
	}
	if d, err := s.debts.GetDebt(ctx, a.DebtID); err == nil {
		s.plans.publish(ctx, events.TopicDebtUpdated, d)
	}
	return nil
}

// List returns every agreement, newest first.
func (s *AgreementService) List(ctx context.Context) ([]domain.Agreement, error) {
	return s.agreements.ListAgreements(ctx)
}

// ListByDebt returns the agreements of a debt.
func (s *AgreementService) ListByDebt(ctx context.Context, debtID int64) ([]domain.Agreement, error) {
	return s.agreements.ListAgreementsByDebt(ctx, debtID)
}

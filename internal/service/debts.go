package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/events"
	"github.com/pedrolabre/personal-finance-manager/internal/installments"
	"github.com/pedrolabre/personal-finance-manager/internal/parser"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DebtInput carries the editable fields of a debt.
type DebtInput struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Total        decimal.Decimal   `json:"total"`
	Priority     domain.Priority   `json:"priority"`
	Status       domain.DebtStatus `json:"status"`
	Type         domain.DebtType   `json:"type"`
	CardID       *int64            `json:"card_id"`
	Installments int               `json:"installments"`
	IntervalDays int               `json:"interval_days"`
	FirstDueDate *time.Time        `json:"first_due_date"`
}

// DebtView is a debt with figures derived from its installments.
type DebtView struct {
	domain.Debt
	Paid             decimal.Decimal `json:"paid"`
	Remaining        decimal.Decimal `json:"remaining"`
	NextDueDate      *time.Time      `json:"next_due_date,omitempty"`
	InstallmentCount int             `json:"installment_count"`
	PaidCount        int             `json:"paid_count"`
	IntervalDays     int             `json:"interval_days"`
}

// DebtService validates and stores debts and their installment plans.
type DebtService struct {
	debts        DebtRepository
	cards        CardRepository
	installments InstallmentRepository
	events       Publisher
	intervalDays int
	now          func() time.Time
	log          zerolog.Logger
}

// NewDebtService creates a DebtService. A nil publisher disables events.
func NewDebtService(debts DebtRepository, cards CardRepository, inst InstallmentRepository, pub Publisher, intervalDays int, log zerolog.Logger) *DebtService {
	if intervalDays <= 0 {
		intervalDays = installments.DefaultIntervalDays
	}
	return &DebtService{
		debts:        debts,
		cards:        cards,
		installments: inst,
		events:       pub,
		intervalDays: intervalDays,
		now:          time.Now,
		log:          log,
	}
}

func (s *DebtService) validate(ctx context.Context, in DebtInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name", "Nome é obrigatório")
	}
	if !in.Total.IsPositive() {
		return domain.Invalid("total", "Valor deve ser maior que zero")
	}
	if err := domain.CheckAmount("total", in.Total); err != nil {
		return err
	}
	if in.Type == domain.DebtTypeCreditCard && in.CardID == nil {
		return domain.Invalid("card_id", "Cartão de crédito deve ser informado para dívidas de cartão")
	}
	if in.CardID != nil {
		if _, err := s.cards.GetCard(ctx, *in.CardID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Invalid("card_id", "Cartão de crédito não encontrado")
			}
			return fmt.Errorf("validate: get card: %w", err)
		}
	}
	return nil
}

func normalizeInput(in DebtInput) DebtInput {
	in.Name = strings.TrimSpace(in.Name)
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Status.Valid() {
		in.Status = domain.DebtStatusOpen
	}
	if in.Type == "" {
		in.Type = domain.DebtTypeOther
	}
	if in.Installments < 1 {
		in.Installments = 1
	}
	return in
}

// Create validates in, stores the debt and, when a first due date is
// given, its installment plan.
func (s *DebtService) Create(ctx context.Context, in DebtInput) (*domain.Debt, error) {
	in = normalizeInput(in)
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	d := &domain.Debt{
		Name:          in.Name,
		Description:   in.Description,
		Total:         in.Total,
		CreatedAt:     s.now().UTC(),
		Priority:      in.Priority,
		Status:        in.Status,
		Type:          in.Type,
		CardID:        in.CardID,
		Installmented: in.Installments > 1,
	}
	if err := s.debts.CreateDebt(ctx, d); err != nil {
		return nil, fmt.Errorf("Create: store debt: %w", err)
	}

	if in.FirstDueDate != nil {
		if err := s.storePlan(ctx, d.ID, nil, in.Total, in.Installments, 1, *in.FirstDueDate, in.IntervalDays); err != nil {
			// A debt without its plan is not left behind.
			if delErr := s.debts.DeleteDebt(ctx, d.ID); delErr != nil {
				s.log.Error().Err(delErr).Int64("debt_id", d.ID).Msg("Failed to remove debt after plan error")
			}
			return nil, fmt.Errorf("Create: %w", err)
		}
	}

	s.log.Info().Int64("debt_id", d.ID).Str("name", d.Name).Str("total", d.Total.StringFixed(2)).Msg("Debt created")
	s.publish(ctx, events.TopicDebtCreated, d)
	return d, nil
}

// CreateFromRecord stores an imported record as a debt with a single
// installment due on the record's date.
func (s *DebtService) CreateFromRecord(ctx context.Context, rec parser.Record) (int64, error) {
	in := DebtInput{
		Name:         rec.Name,
		Description:  rec.Description,
		Total:        rec.Amount,
		Priority:     domain.ParsePriority(rec.Priority),
		Status:       domain.ParseDebtStatus(rec.Status),
		Type:         domain.ParseDebtType(rec.DebtType),
		CardID:       rec.ResolvedCardID,
		Installments: 1,
	}
	if !rec.Date.IsZero() {
		due := rec.Date
		in.FirstDueDate = &due
	}
	d, err := s.Create(ctx, in)
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

// storePlan generates count installments numbered from firstNumber.
func (s *DebtService) storePlan(ctx context.Context, debtID int64, agreementID *int64, total decimal.Decimal, count, firstNumber int, start time.Time, intervalDays int) error {
	if intervalDays <= 0 {
		intervalDays = s.intervalDays
	}
	plan, err := installments.Generate(total, count, start, intervalDays)
	if err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	items := make([]domain.Installment, len(plan))
	for i, p := range plan {
		items[i] = domain.Installment{
			DebtID:      debtID,
			AgreementID: agreementID,
			Number:      firstNumber + p.Number - 1,
			Amount:      p.Amount,
			DueDate:     p.DueDate,
			Status:      domain.InstallmentPending,
		}
	}
	if err := s.installments.CreateInstallments(ctx, items); err != nil {
		return fmt.Errorf("store installments: %w", err)
	}
	return nil
}

// Get returns the debt with its derived figures.
func (s *DebtService) Get(ctx context.Context, id int64) (*DebtView, error) {
	d, err := s.debts.GetDebt(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, *d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns every debt.
func (s *DebtService) List(ctx context.Context) ([]DebtView, error) {
	debts, err := s.debts.ListDebts(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, debts)
}

// ListByStatus returns debts in status.
func (s *DebtService) ListByStatus(ctx context.Context, status domain.DebtStatus) ([]DebtView, error) {
	debts, err := s.debts.ListDebtsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, debts)
}

// ListOverdue returns unsettled debts that have an overdue installment or
// are already marked overdue.
func (s *DebtService) ListOverdue(ctx context.Context) ([]DebtView, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []DebtView
	for _, v := range all {
		if v.Status == domain.DebtStatusSettled {
			continue
		}
		if v.Status == domain.DebtStatusOverdue || (v.NextDueDate != nil && isBeforeDay(*v.NextDueDate, now)) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *DebtService) views(ctx context.Context, debts []domain.Debt) ([]DebtView, error) {
	out := make([]DebtView, 0, len(debts))
	for _, d := range debts {
		v, err := s.view(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *DebtService) view(ctx context.Context, d domain.Debt) (DebtView, error) {
	items, err := s.installments.ListInstallmentsByDebt(ctx, d.ID)
	if err != nil {
		return DebtView{}, fmt.Errorf("view: list installments: %w", err)
	}
	v := DebtView{
		Debt:             d,
		Paid:             decimal.Zero,
		InstallmentCount: len(items),
		IntervalDays:     s.intervalDays,
	}
	for _, it := range items {
		if it.Status == domain.InstallmentPaid {
			v.Paid = v.Paid.Add(it.Amount)
			v.PaidCount++
			continue
		}
		if v.NextDueDate == nil || it.DueDate.Before(*v.NextDueDate) {
			due := it.DueDate
			v.NextDueDate = &due
		}
	}
	if len(items) > 1 {
		if days := int(items[1].DueDate.Sub(items[0].DueDate).Hours() / 24); days > 0 {
			v.IntervalDays = days
		}
	}
	v.Remaining = d.Total.Sub(v.Paid)
	if v.Remaining.IsNegative() {
		v.Remaining = decimal.Zero
	}
	return v, nil
}

// Update replaces the editable fields of a debt. When a first due date is
// given the unpaid installments are replaced by a new plan over the
// remaining amount.
func (s *DebtService) Update(ctx context.Context, id int64, in DebtInput) (*domain.Debt, error) {
	in = normalizeInput(in)
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	d, err := s.debts.GetDebt(ctx, id)
	if err != nil {
		return nil, err
	}

	d.Name = in.Name
	d.Description = in.Description
	d.Total = in.Total
	d.Priority = in.Priority
	d.Status = in.Status
	d.Type = in.Type
	d.CardID = in.CardID
	d.Installmented = in.Installments > 1
	if err := s.debts.UpdateDebt(ctx, d); err != nil {
		return nil, fmt.Errorf("Update: store debt: %w", err)
	}

	if in.FirstDueDate != nil {
		if err := s.resplit(ctx, d, in); err != nil {
			return nil, fmt.Errorf("Update: %w", err)
		}
	}

	s.publish(ctx, events.TopicDebtUpdated, d)
	return d, nil
}

func (s *DebtService) resplit(ctx context.Context, d *domain.Debt, in DebtInput) error {
	items, err := s.installments.ListInstallmentsByDebt(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("list installments: %w", err)
	}
	paid := decimal.Zero
	paidCount := 0
	for _, it := range items {
		if it.Status == domain.InstallmentPaid {
			paid = paid.Add(it.Amount)
			paidCount++
		}
	}
	if err := s.installments.DeletePendingInstallments(ctx, d.ID); err != nil {
		return fmt.Errorf("delete pending installments: %w", err)
	}
	remaining := d.Total.Sub(paid)
	if !remaining.IsPositive() {
		return nil
	}
	count := in.Installments - paidCount
	if count < 1 {
		count = 1
	}
	return s.storePlan(ctx, d.ID, nil, remaining, count, paidCount+1, *in.FirstDueDate, in.IntervalDays)
}

// Settle marks a debt as paid off.
func (s *DebtService) Settle(ctx context.Context, id int64) error {
	return s.SetStatus(ctx, id, domain.DebtStatusSettled)
}

// SetStatus changes the status of a debt.
func (s *DebtService) SetStatus(ctx context.Context, id int64, status domain.DebtStatus) error {
	if !status.Valid() {
		return domain.Invalid("status", "Status inválido")
	}
	if err := s.debts.SetDebtStatus(ctx, id, status); err != nil {
		return err
	}
	d, err := s.debts.GetDebt(ctx, id)
	if err != nil {
		return err
	}
	s.publish(ctx, events.TopicDebtUpdated, d)
	return nil
}

// Delete removes a debt together with its installments and agreements.
func (s *DebtService) Delete(ctx context.Context, id int64) error {
	if err := s.debts.DeleteDebt(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("debt_id", id).Msg("Debt deleted")
	s.publish(ctx, events.TopicDebtDeleted, &domain.Debt{ID: id})
	return nil
}

func (s *DebtService) publish(ctx context.Context, topic events.Topic, d *domain.Debt) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, events.Event{Topic: topic, DebtID: d.ID, Debt: d})
}

func isBeforeDay(t, now time.Time) bool {
	return t.Before(startOfDay(now))
}

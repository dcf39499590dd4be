package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// UpcomingWindowDays is how far ahead the dashboard lists installments.
const UpcomingWindowDays = 30

// Summary is the dashboard overview.
type Summary struct {
	OpenDebtTotal          decimal.Decimal      `json:"open_debt_total"`
	PaidTotal              decimal.Decimal      `json:"paid_total"`
	DebtCount              int                  `json:"debt_count"`
	OverdueDebtCount       int                  `json:"overdue_debt_count"`
	Upcoming               []domain.Installment `json:"upcoming"`
	UpcomingTotal          decimal.Decimal      `json:"upcoming_total"`
	ReceivableExpected     decimal.Decimal      `json:"receivable_expected"`
	ReceivableReceived     decimal.Decimal      `json:"receivable_received"`
	OverdueReceivableCount int                  `json:"overdue_receivable_count"`
	Cards                  []domain.CardSummary `json:"cards"`
	GeneratedAt            time.Time            `json:"generated_at"`
}

// RefreshReport counts what RefreshStatuses changed.
type RefreshReport struct {
	InstallmentsMarked int `json:"installments_marked"`
	DebtsMarked        int `json:"debts_marked"`
}

// DashboardService aggregates figures across debts, installments,
// receivables and cards.
type DashboardService struct {
	debts        DebtRepository
	installments InstallmentRepository
	receivables  ReceivableRepository
	cards        *CardService
	now          func() time.Time
	log          zerolog.Logger
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(debts DebtRepository, inst InstallmentRepository, receivables ReceivableRepository, cards *CardService, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		debts:        debts,
		installments: inst,
		receivables:  receivables,
		cards:        cards,
		now:          time.Now,
		log:          log,
	}
}

// Summary computes the dashboard overview.
func (s *DashboardService) Summary(ctx context.Context) (*Summary, error) {
	now := s.now()
	sum := &Summary{
		OpenDebtTotal:      decimal.Zero,
		UpcomingTotal:      decimal.Zero,
		ReceivableExpected: decimal.Zero,
		ReceivableReceived: decimal.Zero,
		GeneratedAt:        now.UTC(),
	}

	debts, err := s.debts.ListDebts(ctx)
	if err != nil {
		return nil, fmt.Errorf("Summary: list debts: %w", err)
	}
	sum.DebtCount = len(debts)
	for _, d := range debts {
		if d.Status != domain.DebtStatusSettled {
			sum.OpenDebtTotal = sum.OpenDebtTotal.Add(d.Total)
		}
		if d.Status == domain.DebtStatusOverdue {
			sum.OverdueDebtCount++
		}
	}

	if sum.PaidTotal, err = s.installments.SumPaidInstallments(ctx); err != nil {
		return nil, fmt.Errorf("Summary: sum paid: %w", err)
	}

	from := startOfDay(now)
	upcoming, err := s.installments.ListInstallmentsDueBetween(ctx, domain.InstallmentPending, from, from.AddDate(0, 0, UpcomingWindowDays))
	if err != nil {
		return nil, fmt.Errorf("Summary: upcoming installments: %w", err)
	}
	sum.Upcoming = upcoming
	for _, it := range upcoming {
		sum.UpcomingTotal = sum.UpcomingTotal.Add(it.Amount)
	}

	receivables, err := s.receivables.ListReceivables(ctx)
	if err != nil {
		return nil, fmt.Errorf("Summary: list receivables: %w", err)
	}
	for _, r := range receivables {
		sum.ReceivableExpected = sum.ReceivableExpected.Add(r.Expected)
		sum.ReceivableReceived = sum.ReceivableReceived.Add(r.Received)
		if r.IsOverdue(now) {
			sum.OverdueReceivableCount++
		}
	}

	if sum.Cards, err = s.cards.ListActive(ctx); err != nil {
		return nil, fmt.Errorf("Summary: card summaries: %w", err)
	}
	return sum, nil
}

// RefreshStatuses marks overdue pending installments and their unsettled
// debts as overdue.
func (s *DashboardService) RefreshStatuses(ctx context.Context) (RefreshReport, error) {
	var report RefreshReport
	now := s.now()

	pending, err := s.installments.ListInstallmentsByStatus(ctx, domain.InstallmentPending)
	if err != nil {
		return report, fmt.Errorf("RefreshStatuses: list pending: %w", err)
	}
	overdueDebts := make(map[int64]struct{})
	for i := range pending {
		it := pending[i]
		if !it.IsOverdue(now) {
			continue
		}
		it.Status = domain.InstallmentOverdue
		if err := s.installments.UpdateInstallment(ctx, &it); err != nil {
			return report, fmt.Errorf("RefreshStatuses: mark installment %d: %w", it.ID, err)
		}
		report.InstallmentsMarked++
		overdueDebts[it.DebtID] = struct{}{}
	}

	for id := range overdueDebts {
		d, err := s.debts.GetDebt(ctx, id)
		if err != nil {
			return report, fmt.Errorf("RefreshStatuses: get debt %d: %w", id, err)
		}
		if d.Status == domain.DebtStatusSettled || d.Status == domain.DebtStatusOverdue {
			continue
		}
		if err := s.debts.SetDebtStatus(ctx, id, domain.DebtStatusOverdue); err != nil {
			return report, fmt.Errorf("RefreshStatuses: mark debt %d: %w", id, err)
		}
		report.DebtsMarked++
	}

	s.log.Info().
		Int("installments_marked", report.InstallmentsMarked).
		Int("debts_marked", report.DebtsMarked).
		Msg("Statuses refreshed")
	return report, nil
}

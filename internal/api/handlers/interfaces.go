package handlers

import (
	"context"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/pipeline"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/shopspring/decimal"
)

// Importer runs imports inline.
type Importer interface {
	Import(ctx context.Context, text string, format pipeline.Format) (*pipeline.Result, error)
	Preview(ctx context.Context, text string, format pipeline.Format) (*pipeline.Result, error)
	ImportGCS(ctx context.Context, gcsURI string, format pipeline.Format, dryRun bool) (*pipeline.Result, error)
}

// CardService is implemented by *service.CardService.
type CardService interface {
	Create(ctx context.Context, in service.CardInput) (*domain.Card, error)
	Update(ctx context.Context, id int64, in service.CardInput) (*domain.Card, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Card, error)
	List(ctx context.Context) ([]domain.CardSummary, error)
	ListActive(ctx context.Context) ([]domain.CardSummary, error)
}

// DebtService is implemented by *service.DebtService.
type DebtService interface {
	Create(ctx context.Context, in service.DebtInput) (*domain.Debt, error)
	Get(ctx context.Context, id int64) (*service.DebtView, error)
	List(ctx context.Context) ([]service.DebtView, error)
	ListByStatus(ctx context.Context, status domain.DebtStatus) ([]service.DebtView, error)
	ListOverdue(ctx context.Context) ([]service.DebtView, error)
	Update(ctx context.Context, id int64, in service.DebtInput) (*domain.Debt, error)
	Settle(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// InstallmentService is implemented by *service.InstallmentService.
type InstallmentService interface {
	ListByDebt(ctx context.Context, debtID int64) ([]domain.Installment, error)
	Pay(ctx context.Context, id int64, paidAt time.Time) (*domain.Installment, error)
	Upcoming(ctx context.Context, days int) ([]domain.Installment, error)
}

// AgreementService is implemented by *service.AgreementService.
type AgreementService interface {
	Create(ctx context.Context, in service.AgreementInput) (*domain.Agreement, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Agreement, error)
	ListByDebt(ctx context.Context, debtID int64) ([]domain.Agreement, error)
}

// ReceivableService is implemented by *service.ReceivableService.
type ReceivableService interface {
	Create(ctx context.Context, in service.ReceivableInput) (*domain.Receivable, error)
	Update(ctx context.Context, id int64, in service.ReceivableInput) (*domain.Receivable, error)
	Receive(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Receivable, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Receivable, error)
	ListPending(ctx context.Context) ([]domain.Receivable, error)
	ListOverdue(ctx context.Context) ([]domain.Receivable, error)
}

// DashboardService is implemented by *service.DashboardService.
type DashboardService interface {
	Summary(ctx context.Context) (*service.Summary, error)
	RefreshStatuses(ctx context.Context) (service.RefreshReport, error)
}

var (
	_ CardService        = (*service.CardService)(nil)
	_ DebtService        = (*service.DebtService)(nil)
	_ InstallmentService = (*service.InstallmentService)(nil)
	_ AgreementService   = (*service.AgreementService)(nil)
	_ ReceivableService  = (*service.ReceivableService)(nil)
	_ DashboardService   = (*service.DashboardService)(nil)
	_ Importer           = (*pipeline.Importer)(nil)
)

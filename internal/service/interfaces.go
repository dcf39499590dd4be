// Package service holds the business rules over the stored entities: debt
// and card validation, installment plans, agreements, receivables, the
// dashboard and due-date reminders.
package service

import (
	"context"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/events"
	"github.com/shopspring/decimal"
)

// CardRepository stores credit cards.
type CardRepository interface {
	CreateCard(ctx context.Context, c *domain.Card) error
	UpdateCard(ctx context.Context, c *domain.Card) error
	DeleteCard(ctx context.Context, id int64) error
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	FindCardByName(ctx context.Context, name string) (*domain.Card, error)
	ListCards(ctx context.Context) ([]domain.Card, error)
	ListActiveCards(ctx context.Context) ([]domain.Card, error)
}

// DebtRepository stores debts.
type DebtRepository interface {
	CreateDebt(ctx context.Context, d *domain.Debt) error
	UpdateDebt(ctx context.Context, d *domain.Debt) error
	SetDebtStatus(ctx context.Context, id int64, status domain.DebtStatus) error
	DeleteDebt(ctx context.Context, id int64) error
	GetDebt(ctx context.Context, id int64) (*domain.Debt, error)
	ListDebts(ctx context.Context) ([]domain.Debt, error)
	ListDebtsByStatus(ctx context.Context, status domain.DebtStatus) ([]domain.Debt, error)
	ListDebtsByCard(ctx context.Context, cardID int64) ([]domain.Debt, error)
	CountDebtsByCard(ctx context.Context, cardID int64) (int, error)
}

// InstallmentRepository stores installments.
type InstallmentRepository interface {
	CreateInstallments(ctx context.Context, items []domain.Installment) error
	GetInstallment(ctx context.Context, id int64) (*domain.Installment, error)
	UpdateInstallment(ctx context.Context, i *domain.Installment) error
	ListInstallmentsByDebt(ctx context.Context, debtID int64) ([]domain.Installment, error)
	ListInstallmentsByStatus(ctx context.Context, status domain.InstallmentStatus) ([]domain.Installment, error)
	ListInstallmentsDueBetween(ctx context.Context, status domain.InstallmentStatus, from, to time.Time) ([]domain.Installment, error)
	SumPaidInstallments(ctx context.Context) (decimal.Decimal, error)
	DeletePendingInstallments(ctx context.Context, debtID int64) error
	DeleteInstallmentsByAgreement(ctx context.Context, agreementID int64) error
}

// AgreementRepository stores settlement agreements.
type AgreementRepository interface {
	CreateAgreement(ctx context.Context, a *domain.Agreement) error
	GetAgreement(ctx context.Context, id int64) (*domain.Agreement, error)
	ListAgreements(ctx context.Context) ([]domain.Agreement, error)
	ListAgreementsByDebt(ctx context.Context, debtID int64) ([]domain.Agreement, error)
	DeactivateAgreements(ctx context.Context, debtID int64) error
	DeleteAgreement(ctx context.Context, id int64) error
}

// ReceivableRepository stores expected income.
type ReceivableRepository interface {
	CreateReceivable(ctx context.Context, r *domain.Receivable) error
	UpdateReceivable(ctx context.Context, r *domain.Receivable) error
	DeleteReceivable(ctx context.Context, id int64) error
	GetReceivable(ctx context.Context, id int64) (*domain.Receivable, error)
	ListReceivables(ctx context.Context) ([]domain.Receivable, error)
}

// NotificationRepository stores scheduled reminders.
type NotificationRepository interface {
	SaveNotification(ctx context.Context, n *domain.Notification) error
	ListPendingNotifications(ctx context.Context) ([]domain.Notification, error)
	ListDueNotifications(ctx context.Context, now time.Time) ([]domain.Notification, error)
	MarkNotificationSent(ctx context.Context, id string, sentAt time.Time) error
	CancelNotification(ctx context.Context, id string) error
	CancelNotificationsFor(ctx context.Context, typ domain.NotificationType, referenceID int64) error
}

// Publisher broadcasts debt and receivable events.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event)
}

// Sender delivers a reminder to the user.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

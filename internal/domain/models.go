// Package domain holds the entities tracked by the finance manager: debts,
// their installments, credit cards, settlement agreements, receivables and
// scheduled reminders.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Card is a credit card that debts can be attached to.
type Card struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	Bank       string           `json:"bank,omitempty"`
	ClosingDay int              `json:"closing_day"`
	DueDay     int              `json:"due_day"`
	Limit      *decimal.Decimal `json:"limit,omitempty"`
	Active     bool             `json:"active"`
}

// CardSummary is a card plus the open debt attached to it.
type CardSummary struct {
	Card
	TotalDebts decimal.Decimal `json:"total_debts"`
	DebtCount  int             `json:"debt_count"`
}

// Debt is a tracked obligation ("pendência").
type Debt struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	Priority      Priority        `json:"priority"`
	Status        DebtStatus      `json:"status"`
	Type          DebtType        `json:"type"`
	CardID        *int64          `json:"card_id,omitempty"`
	Installmented bool            `json:"installmented"`
}

// Installment is one dated payment of a debt or of an agreement.
type Installment struct {
	ID          int64             `json:"id"`
	DebtID      int64             `json:"debt_id"`
	AgreementID *int64            `json:"agreement_id,omitempty"`
	Number      int               `json:"number"`
	Amount      decimal.Decimal   `json:"amount"`
	DueDate     time.Time         `json:"due_date"`
	PaidAt      *time.Time        `json:"paid_at,omitempty"`
	Status      InstallmentStatus `json:"status"`
}

// IsOverdue reports whether the installment is unpaid and past due at now.
func (i Installment) IsOverdue(now time.Time) bool {
	return i.Status != InstallmentPaid && i.DueDate.Before(startOfDay(now))
}

// Agreement restructures a debt into a new installment plan ("acordo").
type Agreement struct {
	ID               int64           `json:"id"`
	DebtID           int64           `json:"debt_id"`
	Date             time.Time       `json:"date"`
	InstallmentCount int             `json:"installment_count"`
	Total            decimal.Decimal `json:"total"`
	Notes            string          `json:"notes,omitempty"`
	Active           bool            `json:"active"`
}

// Receivable is income the user expects to receive ("recebimento").
type Receivable struct {
	ID           int64              `json:"id"`
	Description  string             `json:"description"`
	Category     ReceivableCategory `json:"category"`
	ExpectedDate time.Time          `json:"expected_date"`
	ReceivedDate *time.Time         `json:"received_date,omitempty"`
	Expected     decimal.Decimal    `json:"expected"`
	Received     decimal.Decimal    `json:"received"`
	Complete     bool               `json:"complete"`
}

// IsOverdue reports whether the receivable is incomplete and its expected
// date has passed.
func (r Receivable) IsOverdue(now time.Time) bool {
	return !r.Complete && r.ExpectedDate.Before(startOfDay(now))
}

// Notification is a reminder scheduled for delivery.
type Notification struct {
	ID          string           `json:"id"`
	ReferenceID int64            `json:"reference_id"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	Type        NotificationType `json:"type"`
	Sent        bool             `json:"sent"`
	SentAt      *time.Time       `json:"sent_at,omitempty"`
	Canceled    bool             `json:"canceled"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

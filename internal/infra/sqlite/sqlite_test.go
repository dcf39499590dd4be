package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustDebt(t *testing.T, repo *DebtRepository, name string, cardID *int64) domain.Debt {
	t.Helper()
	d := domain.Debt{
		Name:      name,
		Total:     decimal.RequireFromString("100.00"),
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Priority:  domain.PriorityMedium,
		Status:    domain.DebtStatusOpen,
		Type:      domain.DebtTypeOther,
		CardID:    cardID,
	}
	if err := repo.CreateDebt(context.Background(), &d); err != nil {
		t.Fatalf("CreateDebt() error = %v", err)
	}
	return d
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_init_schema.sql", true, 1, "init_schema"},
		{"0012_add_indexes.sql", true, 12, "add_indexes"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := ParseMigrationFilename(tt.filename)
			if ok != tt.valid || version != tt.version || name != tt.name {
				t.Errorf("ParseMigrationFilename(%q) = %d, %q, %v; want %d, %q, %v",
					tt.filename, version, name, ok, tt.version, tt.name, tt.valid)
			}
		})
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	n, err := Migrate(ctx, db, "test")
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Migrate() applied %d, want 0", n)
	}

	applied, err := AppliedMigrations(ctx, db)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	all, err := LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(applied) != len(all) {
		t.Errorf("applied %d migrations, want %d", len(applied), len(all))
	}
	for i := range all {
		if applied[i].Checksum != all[i].Checksum {
			t.Errorf("checksum mismatch for %s", all[i].Filename)
		}
	}
}

func TestMigrateDetectsChangedFile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	all, err := LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	changed := append([]Migration(nil), all...)
	changed[0].Checksum = "different"

	if _, err := applyMigrations(ctx, db, changed, "test"); err == nil {
		t.Error("expected an error for a changed migration")
	}
}

func TestCardRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCardRepository(db)

	limit := decimal.RequireFromString("5000.00")
	card := domain.Card{Name: "Nubank", Bank: "Nu", ClosingDay: 3, DueDay: 10, Limit: &limit, Active: true}
	if err := repo.CreateCard(ctx, &card); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	if card.ID == 0 {
		t.Fatal("expected ID to be set")
	}

	dup := domain.Card{Name: "NUBANK", ClosingDay: 1, DueDay: 8}
	if err := repo.CreateCard(ctx, &dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate CreateCard() error = %v, want ErrConflict", err)
	}

	found, err := repo.FindCardByName(ctx, "nubank")
	if err != nil {
		t.Fatalf("FindCardByName() error = %v", err)
	}
	if found.ID != card.ID || !found.Limit.Equal(limit) || !found.Active {
		t.Errorf("FindCardByName() = %+v", found)
	}

	if _, err := repo.FindCardByName(ctx, "Inter"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindCardByName(missing) error = %v, want ErrNotFound", err)
	}

	card.Active = false
	card.Limit = nil
	if err := repo.UpdateCard(ctx, &card); err != nil {
		t.Fatalf("UpdateCard() error = %v", err)
	}
	active, err := repo.ListActiveCards(ctx)
	if err != nil {
		t.Fatalf("ListActiveCards() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("ListActiveCards() = %d cards, want 0", len(active))
	}

	if err := repo.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}
	if err := repo.DeleteCard(ctx, card.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second DeleteCard() error = %v, want ErrNotFound", err)
	}
}

func TestDebtRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cards := NewCardRepository(db)
	debts := NewDebtRepository(db)

	card := domain.Card{Name: "Visa", ClosingDay: 1, DueDay: 10, Active: true}
	if err := cards.CreateCard(ctx, &card); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	d := mustDebt(t, debts, "Notebook", &card.ID)
	mustDebt(t, debts, "Aluguel", nil)

	got, err := debts.GetDebt(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDebt() error = %v", err)
	}
	if got.Name != "Notebook" || *got.CardID != card.ID || !got.Total.Equal(d.Total) || !got.CreatedAt.Equal(d.CreatedAt) {
		t.Errorf("GetDebt() = %+v", got)
	}

	n, err := debts.CountDebtsByCard(ctx, card.ID)
	if err != nil || n != 1 {
		t.Errorf("CountDebtsByCard() = %d, %v; want 1", n, err)
	}

	if err := debts.SetDebtStatus(ctx, d.ID, domain.DebtStatusSettled); err != nil {
		t.Fatalf("SetDebtStatus() error = %v", err)
	}
	settled, err := debts.ListDebtsByStatus(ctx, domain.DebtStatusSettled)
	if err != nil || len(settled) != 1 {
		t.Errorf("ListDebtsByStatus() = %d, %v; want 1", len(settled), err)
	}

	if err := cards.DeleteCard(ctx, card.ID); err == nil {
		t.Error("expected foreign key error deleting a card with debts")
	}

	if err := debts.DeleteDebt(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDebt() error = %v", err)
	}
	if _, err := debts.GetDebt(ctx, d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDebt() after delete error = %v, want ErrNotFound", err)
	}
}

func TestInstallmentRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	debts := NewDebtRepository(db)
	repo := NewInstallmentRepository(db)

	d := mustDebt(t, debts, "Geladeira", nil)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []domain.Installment{
		{DebtID: d.ID, Number: 1, Amount: decimal.RequireFromString("33.33"), DueDate: start, Status: domain.InstallmentPending},
		{DebtID: d.ID, Number: 2, Amount: decimal.RequireFromString("33.33"), DueDate: start.AddDate(0, 0, 30), Status: domain.InstallmentPending},
		{DebtID: d.ID, Number: 3, Amount: decimal.RequireFromString("33.34"), DueDate: start.AddDate(0, 0, 60), Status: domain.InstallmentPending},
	}
	if err := repo.CreateInstallments(ctx, items); err != nil {
		t.Fatalf("CreateInstallments() error = %v", err)
	}
	for _, it := range items {
		if it.ID == 0 {
			t.Fatal("expected IDs to be set")
		}
	}

	paidAt := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	items[0].Status = domain.InstallmentPaid
	items[0].PaidAt = &paidAt
	if err := repo.UpdateInstallment(ctx, &items[0]); err != nil {
		t.Fatalf("UpdateInstallment() error = %v", err)
	}

	sum, err := repo.SumPaidInstallments(ctx)
	if err != nil || !sum.Equal(decimal.RequireFromString("33.33")) {
		t.Errorf("SumPaidInstallments() = %s, %v", sum, err)
	}

	due, err := repo.ListInstallmentsDueBetween(ctx, domain.InstallmentPending, start, start.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("ListInstallmentsDueBetween() error = %v", err)
	}
	if len(due) != 1 || due[0].Number != 2 {
		t.Errorf("ListInstallmentsDueBetween() = %+v", due)
	}

	if err := repo.DeletePendingInstallments(ctx, d.ID); err != nil {
		t.Fatalf("DeletePendingInstallments() error = %v", err)
	}
	left, err := repo.ListInstallmentsByDebt(ctx, d.ID)
	if err != nil {
		t.Fatalf("ListInstallmentsByDebt() error = %v", err)
	}
	if len(left) != 1 || left[0].Status != domain.InstallmentPaid || left[0].PaidAt == nil || !left[0].PaidAt.Equal(paidAt) {
		t.Errorf("remaining installments = %+v", left)
	}
}

func TestAgreementRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	debts := NewDebtRepository(db)
	inst := NewInstallmentRepository(db)
	repo := NewAgreementRepository(db)

	d := mustDebt(t, debts, "Cartão antigo", nil)
	a := domain.Agreement{DebtID: d.ID, Date: time.Now(), InstallmentCount: 2, Total: decimal.NewFromInt(80), Active: true}
	if err := repo.CreateAgreement(ctx, &a); err != nil {
		t.Fatalf("CreateAgreement() error = %v", err)
	}

	items := []domain.Installment{
		{DebtID: d.ID, AgreementID: &a.ID, Number: 1, Amount: decimal.NewFromInt(40), DueDate: time.Now(), Status: domain.InstallmentPending},
		{DebtID: d.ID, AgreementID: &a.ID, Number: 2, Amount: decimal.NewFromInt(40), DueDate: time.Now(), Status: domain.InstallmentPending},
	}
	if err := inst.CreateInstallments(ctx, items); err != nil {
		t.Fatalf("CreateInstallments() error = %v", err)
	}

	if err := repo.DeactivateAgreements(ctx, d.ID); err != nil {
		t.Fatalf("DeactivateAgreements() error = %v", err)
	}
	got, err := repo.GetAgreement(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAgreement() error = %v", err)
	}
	if got.Active {
		t.Error("expected agreement to be inactive")
	}

	if err := inst.DeleteInstallmentsByAgreement(ctx, a.ID); err != nil {
		t.Fatalf("DeleteInstallmentsByAgreement() error = %v", err)
	}
	if err := repo.DeleteAgreement(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAgreement() error = %v", err)
	}
	list, err := repo.ListAgreementsByDebt(ctx, d.ID)
	if err != nil || len(list) != 0 {
		t.Errorf("ListAgreementsByDebt() = %d, %v; want 0", len(list), err)
	}
}

func TestReceivableRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewReceivableRepository(db)

	rc := domain.Receivable{
		Description:  "Salário",
		Category:     domain.ReceivableSalary,
		ExpectedDate: time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC),
		Expected:     decimal.RequireFromString("4500.00"),
	}
	if err := repo.CreateReceivable(ctx, &rc); err != nil {
		t.Fatalf("CreateReceivable() error = %v", err)
	}

	rc.Received = rc.Expected
	rc.Complete = true
	now := time.Date(2024, 5, 5, 9, 0, 0, 0, time.UTC)
	rc.ReceivedDate = &now
	if err := repo.UpdateReceivable(ctx, &rc); err != nil {
		t.Fatalf("UpdateReceivable() error = %v", err)
	}

	got, err := repo.GetReceivable(ctx, rc.ID)
	if err != nil {
		t.Fatalf("GetReceivable() error = %v", err)
	}
	if !got.Complete || !got.Received.Equal(rc.Expected) || got.ReceivedDate == nil {
		t.Errorf("GetReceivable() = %+v", got)
	}

	if err := repo.DeleteReceivable(ctx, rc.ID); err != nil {
		t.Fatalf("DeleteReceivable() error = %v", err)
	}
	list, err := repo.ListReceivables(ctx)
	if err != nil || len(list) != 0 {
		t.Errorf("ListReceivables() = %d, %v; want 0", len(list), err)
	}
}

func TestNotificationRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewNotificationRepository(db)

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		n := domain.Notification{
			ID:          id,
			ReferenceID: int64(i + 1),
			Title:       "Vencimento Próximo",
			Message:     "Parcela vence em 3 dias",
			ScheduledAt: base.Add(time.Duration(i) * 24 * time.Hour),
			Type:        domain.NotificationDueDate,
		}
		if err := repo.SaveNotification(ctx, &n); err != nil {
			t.Fatalf("SaveNotification() error = %v", err)
		}
	}

	due, err := repo.ListDueNotifications(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("ListDueNotifications() error = %v", err)
	}
	if len(due) != 2 || due[0].ID != "a" || due[1].ID != "b" {
		t.Errorf("ListDueNotifications() = %+v", due)
	}

	if err := repo.MarkNotificationSent(ctx, "a", base); err != nil {
		t.Fatalf("MarkNotificationSent() error = %v", err)
	}
	if err := repo.CancelNotificationsFor(ctx, domain.NotificationDueDate, 2); err != nil {
		t.Fatalf("CancelNotificationsFor() error = %v", err)
	}

	pending, err := repo.ListPendingNotifications(ctx)
	if err != nil {
		t.Fatalf("ListPendingNotifications() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "c" {
		t.Errorf("ListPendingNotifications() = %+v", pending)
	}

	sent, err := repo.GetNotification(ctx, "a")
	if err != nil {
		t.Fatalf("GetNotification() error = %v", err)
	}
	if !sent.Sent || sent.SentAt == nil {
		t.Errorf("GetNotification() = %+v", sent)
	}
}

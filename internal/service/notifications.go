package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/events"
	"github.com/rs/zerolog"
)

// reminderNamespace derives stable notification IDs so that rescheduling
// the same reminder overwrites it.
var reminderNamespace = uuid.MustParse("5b1f9a52-3c1e-4d7a-9a8e-2f6d0c4b7e11")

// NotificationConfig controls which reminders are scheduled.
type NotificationConfig struct {
	Enabled             bool
	DueReminders        bool
	ReceivableReminders bool
	DaysAhead           int
	Hour                int
}

// DefaultNotificationConfig reminds three days ahead at 09:00.
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		Enabled:             true,
		DueReminders:        true,
		ReceivableReminders: true,
		DaysAhead:           3,
		Hour:                9,
	}
}

// NotificationService schedules reminders and hands due ones to a Sender.
type NotificationService struct {
	repo         NotificationRepository
	installments InstallmentRepository
	sender       Sender
	cfg          NotificationConfig
	now          func() time.Time
	log          zerolog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(repo NotificationRepository, inst InstallmentRepository, sender Sender, cfg NotificationConfig, log zerolog.Logger) *NotificationService {
	if cfg.DaysAhead <= 0 {
		cfg.DaysAhead = 3
	}
	return &NotificationService{
		repo:         repo,
		installments: inst,
		sender:       sender,
		cfg:          cfg,
		now:          time.Now,
		log:          log,
	}
}

func reminderID(typ domain.NotificationType, id int64) string {
	return uuid.NewSHA1(reminderNamespace, []byte(string(typ)+":"+strconv.FormatInt(id, 10))).String()
}

func (s *NotificationService) reminderTime(due time.Time) time.Time {
	y, m, d := due.Date()
	return time.Date(y, m, d, s.cfg.Hour, 0, 0, 0, due.Location()).AddDate(0, 0, -s.cfg.DaysAhead)
}

// ScheduleDueReminder stores a reminder DaysAhead days before the
// installment is due. It returns nil when reminders are off or the
// reminder time has already passed.
func (s *NotificationService) ScheduleDueReminder(ctx context.Context, it domain.Installment, debtName string) (*domain.Notification, error) {
	if !s.cfg.Enabled || !s.cfg.DueReminders || it.Status == domain.InstallmentPaid {
		return nil, nil
	}
	at := s.reminderTime(it.DueDate)
	if at.Before(s.now()) {
		return nil, nil
	}
	n := &domain.Notification{
		ID:          reminderID(domain.NotificationDueDate, it.ID),
		ReferenceID: it.DebtID,
		Title:       "Vencimento Próximo",
		Message:     fmt.Sprintf("%s: parcela %d de R$ %s vence em %d dias", debtName, it.Number, it.Amount.StringFixed(2), s.cfg.DaysAhead),
		ScheduledAt: at.UTC(),
		Type:        domain.NotificationDueDate,
	}
	if err := s.repo.SaveNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("ScheduleDueReminder: %w", err)
	}
	return n, nil
}

// ScheduleReceivableReminder stores a reminder on the day a receivable is
// expected.
func (s *NotificationService) ScheduleReceivableReminder(ctx context.Context, r domain.Receivable) (*domain.Notification, error) {
	if !s.cfg.Enabled || !s.cfg.ReceivableReminders || r.Complete {
		return nil, nil
	}
	y, m, d := r.ExpectedDate.Date()
	at := time.Date(y, m, d, s.cfg.Hour, 0, 0, 0, r.ExpectedDate.Location())
	if at.Before(s.now()) {
		return nil, nil
	}
	n := &domain.Notification{
		ID:          reminderID(domain.NotificationReceivable, r.ID),
		ReferenceID: r.ID,
		Title:       "Recebimento Previsto",
		Message:     fmt.Sprintf("%s: R$ %s previsto para hoje", r.Description, r.Expected.Sub(r.Received).StringFixed(2)),
		ScheduledAt: at.UTC(),
		Type:        domain.NotificationReceivable,
	}
	if err := s.repo.SaveNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("ScheduleReceivableReminder: %w", err)
	}
	return n, nil
}

// ScheduleDebtReminders schedules a due reminder for every unpaid
// installment of d.
func (s *NotificationService) ScheduleDebtReminders(ctx context.Context, d domain.Debt) (int, error) {
	items, err := s.installments.ListInstallmentsByDebt(ctx, d.ID)
	if err != nil {
		return 0, fmt.Errorf("ScheduleDebtReminders: list installments: %w", err)
	}
	scheduled := 0
	for _, it := range items {
		n, err := s.ScheduleDueReminder(ctx, it, d.Name)
		if err != nil {
			return scheduled, err
		}
		if n != nil {
			scheduled++
		}
	}
	return scheduled, nil
}

// Cancel stops reminder id from being sent.
func (s *NotificationService) Cancel(ctx context.Context, id string) error {
	return s.repo.CancelNotification(ctx, id)
}

// Pending returns reminders that are neither sent nor canceled.
func (s *NotificationService) Pending(ctx context.Context) ([]domain.Notification, error) {
	return s.repo.ListPendingNotifications(ctx)
}

// DispatchDue sends every reminder scheduled at or before now and marks
// it sent. A failed send is logged and retried on the next call.
func (s *NotificationService) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListDueNotifications(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("DispatchDue: %w", err)
	}
	sent := 0
	for _, n := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.sender.Send(ctx, n); err != nil {
			s.log.Error().Err(err).Str("notification_id", n.ID).Msg("Failed to send reminder")
			continue
		}
		if err := s.repo.MarkNotificationSent(ctx, n.ID, now); err != nil {
			return sent, fmt.Errorf("DispatchDue: mark sent: %w", err)
		}
		sent++
	}
	if sent > 0 {
		s.log.Info().Int("sent", sent).Int("due", len(due)).Msg("Reminders dispatched")
	}
	return sent, nil
}

// Subscribe keeps reminders in step with debt and receivable changes on
// bus. The caller must Unsubscribe every returned subscription.
func (s *NotificationService) Subscribe(bus *events.Bus) []*events.Subscription {
	schedule := func(ctx context.Context, ev events.Event) {
		if ev.Debt == nil {
			return
		}
		if err := s.repo.CancelNotificationsFor(ctx, domain.NotificationDueDate, ev.DebtID); err != nil {
			s.log.Error().Err(err).Int64("debt_id", ev.DebtID).Msg("Failed to cancel reminders")
			return
		}
		if ev.Debt.Status == domain.DebtStatusSettled {
			return
		}
		if _, err := s.ScheduleDebtReminders(ctx, *ev.Debt); err != nil {
			s.log.Error().Err(err).Int64("debt_id", ev.DebtID).Msg("Failed to schedule reminders")
		}
	}
	cancel := func(ctx context.Context, ev events.Event) {
		if err := s.repo.CancelNotificationsFor(ctx, domain.NotificationDueDate, ev.DebtID); err != nil {
			s.log.Error().Err(err).Int64("debt_id", ev.DebtID).Msg("Failed to cancel reminders")
		}
	}
	receivableSaved := func(ctx context.Context, ev events.Event) {
		if ev.Receivable == nil {
			return
		}
		if err := s.repo.CancelNotificationsFor(ctx, domain.NotificationReceivable, ev.ReceivableID); err != nil {
			s.log.Error().Err(err).Int64("receivable_id", ev.ReceivableID).Msg("Failed to cancel reminders")
			return
		}
		if _, err := s.ScheduleReceivableReminder(ctx, *ev.Receivable); err != nil {
			s.log.Error().Err(err).Int64("receivable_id", ev.ReceivableID).Msg("Failed to schedule reminder")
		}
	}
	receivableDeleted := func(ctx context.Context, ev events.Event) {
		if err := s.repo.CancelNotificationsFor(ctx, domain.NotificationReceivable, ev.ReceivableID); err != nil {
			s.log.Error().Err(err).Int64("receivable_id", ev.ReceivableID).Msg("Failed to cancel reminders")
		}
	}
	return []*events.Subscription{
		bus.Subscribe(events.TopicDebtCreated, schedule),
		bus.Subscribe(events.TopicDebtUpdated, schedule),
		bus.Subscribe(events.TopicDebtDeleted, cancel),
		bus.Subscribe(events.TopicReceivableSaved, receivableSaved),
		bus.Subscribe(events.TopicReceivableDeleted, receivableDeleted),
	}
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReceivableInput carries the editable fields of a receivable.
type ReceivableInput struct {
	Description  string                    `json:"description"`
	Category     domain.ReceivableCategory `json:"category"`
	ExpectedDate time.Time                 `json:"expected_date"`
	Expected     decimal.Decimal           `json:"expected"`
	Received     decimal.Decimal           `json:"received"`
}

// ReceivableService tracks expected income and partial receipts.
type ReceivableService struct {
	receivables ReceivableRepository
	events      Publisher
	now         func() time.Time
	log         zerolog.Logger
}

// NewReceivableService creates a ReceivableService. A nil publisher
// disables events.
func NewReceivableService(repo ReceivableRepository, pub Publisher, log zerolog.Logger) *ReceivableService {
	return &ReceivableService{receivables: repo, events: pub, now: time.Now, log: log}
}

func validateReceivable(in ReceivableInput) error {
	if strings.TrimSpace(in.Description) == "" {
		return domain.Invalid("description", "Descrição é obrigatória")
	}
	if !in.Expected.IsPositive() {
		return domain.Invalid("expected", "Valor esperado deve ser maior que zero")
	}
	if err := domain.CheckAmount("expected", in.Expected); err != nil {
		return err
	}
	if in.Received.IsNegative() {
		return domain.Invalid("received", "Valor recebido não pode ser negativo")
	}
	if in.Received.GreaterThan(in.Expected) {
		return domain.Invalid("received", "Valor recebido não pode ser maior que o esperado")
	}
	return nil
}

func (s *ReceivableService) apply(r *domain.Receivable, in ReceivableInput) {
	r.Description = strings.TrimSpace(in.Description)
	r.Category = in.Category
	if r.Category == "" {
		r.Category = domain.ReceivableOther
	}
	r.ExpectedDate = in.ExpectedDate
	r.Expected = in.Expected
	r.Received = in.Received
	s.settle(r)
}

// settle completes r once the expected amount has been received.
func (s *ReceivableService) settle(r *domain.Receivable) {
	r.Complete = r.Received.GreaterThanOrEqual(r.Expected)
	if r.Complete && r.ReceivedDate == nil {
		at := s.now().UTC()
		r.ReceivedDate = &at
	}
	if !r.Complete {
		r.ReceivedDate = nil
	}
}

// Create stores a new receivable.
func (s *ReceivableService) Create(ctx context.Context, in ReceivableInput) (*domain.Receivable, error) {
	if err := validateReceivable(in); err != nil {
		return nil, err
	}
	if in.ExpectedDate.IsZero() {
		in.ExpectedDate = startOfDay(s.now())
	}
	r := &domain.Receivable{}
	s.apply(r, in)
	if err := s.receivables.CreateReceivable(ctx, r); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	s.publish(ctx, events.TopicReceivableSaved, r.ID, r)
	return r, nil
}

// Update replaces the editable fields of receivable id.
func (s *ReceivableService) Update(ctx context.Context, id int64, in ReceivableInput) (*domain.Receivable, error) {
	if err := validateReceivable(in); err != nil {
		return nil, err
	}
	r, err := s.receivables.GetReceivable(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ExpectedDate.IsZero() {
		in.ExpectedDate = r.ExpectedDate
	}
	s.apply(r, in)
	if err := s.receivables.UpdateReceivable(ctx, r); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	s.publish(ctx, events.TopicReceivableSaved, r.ID, r)
	return r, nil
}

// Receive adds amount to what has been received so far.
func (s *ReceivableService) Receive(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Receivable, error) {
	if !amount.IsPositive() {
		return nil, domain.Invalid("amount", "Valor deve ser maior que zero")
	}
	if err := domain.CheckAmount("amount", amount); err != nil {
		return nil, err
	}
	r, err := s.receivables.GetReceivable(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Received = r.Received.Add(amount)
	s.settle(r)
	if err := s.receivables.UpdateReceivable(ctx, r); err != nil {
		return nil, fmt.Errorf("Receive: %w", err)
	}
	s.log.Info().Int64("receivable_id", id).Str("received", r.Received.StringFixed(2)).Bool("complete", r.Complete).Msg("Receipt registered")
	s.publish(ctx, events.TopicReceivableSaved, r.ID, r)
	return r, nil
}

// Delete removes receivable id.
func (s *ReceivableService) Delete(ctx context.Context, id int64) error {
	if err := s.receivables.DeleteReceivable(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.TopicReceivableDeleted, id, nil)
	return nil
}

func (s *ReceivableService) publish(ctx context.Context, topic events.Topic, id int64, r *domain.Receivable) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, events.Event{Topic: topic, ReceivableID: id, Receivable: r})
}

// Get returns receivable id.
func (s *ReceivableService) Get(ctx context.Context, id int64) (*domain.Receivable, error) {
	return s.receivables.GetReceivable(ctx, id)
}

// List returns every receivable.
func (s *ReceivableService) List(ctx context.Context) ([]domain.Receivable, error) {
	return s.receivables.ListReceivables(ctx)
}

// ListPending returns receivables not yet fully received.
func (s *ReceivableService) ListPending(ctx context.Context) ([]domain.Receivable, error) {
	return s.filter(ctx, func(r domain.Receivable) bool { return !r.Complete })
}

// ListOverdue returns incomplete receivables whose expected date passed.
func (s *ReceivableService) ListOverdue(ctx context.Context) ([]domain.Receivable, error) {
	now := s.now()
	return s.filter(ctx, func(r domain.Receivable) bool { return r.IsOverdue(now) })
}

func (s *ReceivableService) filter(ctx context.Context, keep func(domain.Receivable) bool) ([]domain.Receivable, error) {
	all, err := s.receivables.ListReceivables(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Receivable
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input string
		want  Priority
	}{
		{"Alta", PriorityHigh},
		{"  high ", PriorityHigh},
		{"Baixa", PriorityLow},
		{"Média", PriorityMedium},
		{"Normal", PriorityMedium},
		{"", PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParsePriority(tt.input); got != tt.want {
				t.Errorf("ParsePriority(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDebtStatus(t *testing.T) {
	tests := []struct {
		input string
		want  DebtStatus
	}{
		{"Em Aberto", DebtStatusOpen},
		{"EmAberto", DebtStatusOpen},
		{"Pago", DebtStatusSettled},
		{"Quitada", DebtStatusSettled},
		{"atrasada", DebtStatusOverdue},
		{"Acordada", DebtStatusAgreed},
		{"whatever", DebtStatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseDebtStatus(tt.input); got != tt.want {
				t.Errorf("ParseDebtStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDebtType(t *testing.T) {
	tests := []struct {
		input string
		want  DebtType
	}{
		{"Cartão de Crédito", DebtTypeCreditCard},
		{"CartaoCredito", DebtTypeCreditCard},
		{"Empréstimo", DebtTypeLoan},
		{"Débito", DebtTypeOther},
		{"", DebtTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseDebtType(tt.input); got != tt.want {
				t.Errorf("ParseDebtType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInstallmentIsOverdue(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		inst Installment
		want bool
	}{
		{"past pending", Installment{Status: InstallmentPending, DueDate: now.AddDate(0, 0, -1)}, true},
		{"due today", Installment{Status: InstallmentPending, DueDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}, false},
		{"past paid", Installment{Status: InstallmentPaid, DueDate: now.AddDate(0, 0, -5)}, false},
		{"future", Installment{Status: InstallmentPending, DueDate: now.AddDate(0, 0, 3)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inst.IsOverdue(now); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationErrorIsValidation(t *testing.T) {
	err := Invalid("name", "Nome é obrigatório")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is(err, ErrValidation)")
	}
	if err.Error() != "Nome é obrigatório" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(NotFound("card", 3), ErrNotFound) {
		t.Errorf("expected NotFound to wrap ErrNotFound")
	}
}

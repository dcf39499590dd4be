package domain

import "strings"

// DebtStatus is the lifecycle state of a debt.
type DebtStatus string

const (
	DebtStatusOpen    DebtStatus = "EmAberto"
	DebtStatusOverdue DebtStatus = "Atrasada"
	DebtStatusAgreed  DebtStatus = "Acordada"
	DebtStatusSettled DebtStatus = "Quitada"
)

// Priority ranks how urgently a debt should be handled.
type Priority string

const (
	PriorityLow    Priority = "Baixa"
	PriorityMedium Priority = "Media"
	PriorityHigh   Priority = "Alta"
)

// DebtType describes the nature of a debt.
type DebtType string

const (
	DebtTypeCreditCard DebtType = "CartaoCredito"
	DebtTypeLoan       DebtType = "Emprestimo"
	DebtTypeFinancing  DebtType = "Financiamento"
	DebtTypeBill       DebtType = "Conta"
	DebtTypeOther      DebtType = "Outros"
)

// InstallmentStatus is the payment state of a single installment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "Pendente"
	InstallmentPaid    InstallmentStatus = "Paga"
	InstallmentOverdue InstallmentStatus = "Atrasada"
)

// ReceivableCategory classifies expected income.
type ReceivableCategory string

const (
	ReceivableSalary     ReceivableCategory = "Salario"
	ReceivableFreelance  ReceivableCategory = "Freelance"
	ReceivableSale       ReceivableCategory = "Venda"
	ReceivableRent       ReceivableCategory = "Aluguel"
	ReceivableInvestment ReceivableCategory = "Investimento"
	ReceivableOther      ReceivableCategory = "Outros"
)

// NotificationType tells reminders apart.
type NotificationType string

const (
	NotificationDueDate     NotificationType = "Vencimento"
	NotificationReceivable  NotificationType = "Recebimento"
	NotificationOverdueDebt NotificationType = "DividaAtrasada"
	NotificationAlert       NotificationType = "Alerta"
)

// normalizeTag lowercases s and folds the Portuguese accents used by the
// free-text tags found in imported files.
func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "ô", "o", "õ", "o",
		"ú", "u",
		"ç", "c",
		" ", "", "_", "", "-", "",
	)
	return r.Replace(s)
}

// ParsePriority maps free text to a Priority. Unknown values, "Normal"
// included, become PriorityMedium.
func ParsePriority(s string) Priority {
	switch normalizeTag(s) {
	case "alta", "high", "urgente":
		return PriorityHigh
	case "baixa", "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// ParseDebtStatus maps free text to a DebtStatus, defaulting to open.
func ParseDebtStatus(s string) DebtStatus {
	switch normalizeTag(s) {
	case "atrasada", "atrasado", "overdue":
		return DebtStatusOverdue
	case "acordada", "acordo", "agreed":
		return DebtStatusAgreed
	case "quitada", "quitado", "pago", "paga", "paid", "settled":
		return DebtStatusSettled
	default:
		return DebtStatusOpen
	}
}

// ParseDebtType maps free text to a DebtType, defaulting to DebtTypeOther.
func ParseDebtType(s string) DebtType {
	switch normalizeTag(s) {
	case "cartaocredito", "cartaodecredito", "cartao", "creditcard":
		return DebtTypeCreditCard
	case "emprestimo", "loan":
		return DebtTypeLoan
	case "financiamento", "financing":
		return DebtTypeFinancing
	case "conta", "bill":
		return DebtTypeBill
	default:
		return DebtTypeOther
	}
}

// ParseReceivableCategory maps free text to a ReceivableCategory.
func ParseReceivableCategory(s string) ReceivableCategory {
	switch normalizeTag(s) {
	case "salario", "salary":
		return ReceivableSalary
	case "freelance":
		return ReceivableFreelance
	case "venda", "sale":
		return ReceivableSale
	case "aluguel", "rent":
		return ReceivableRent
	case "investimento", "investment":
		return ReceivableInvestment
	default:
		return ReceivableOther
	}
}

// Valid reports whether s is one of the known statuses.
func (s DebtStatus) Valid() bool {
	switch s {
	case DebtStatusOpen, DebtStatusOverdue, DebtStatusAgreed, DebtStatusSettled:
		return true
	}
	return false
}

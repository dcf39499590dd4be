// Package parser turns delimited text into import records. It holds the
// lenient value parsers, the line tokenizer, separator and header
// detection, and the per-institution row strategies.
package parser

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default tag values applied to imported records.
const (
	DefaultStatus   = "Em Aberto"
	DefaultPriority = "Normal"
)

// Record is one row read from an import source. It is transient: the
// importer validates it and hands it to the debt store.
type Record struct {
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Date           time.Time       `json:"date"`
	Priority       string          `json:"priority,omitempty"`
	Status         string          `json:"status,omitempty"`
	DebtType       string          `json:"debt_type,omitempty"`
	CardLabel      string          `json:"card_label,omitempty"`
	ResolvedCardID *int64          `json:"resolved_card_id,omitempty"`
	Description    string          `json:"description,omitempty"`
}

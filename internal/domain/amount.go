package domain

import "github.com/shopspring/decimal"

// MaxAmount is the largest money value accepted. Amounts are stored as int64
// cents, so anything past this would not round-trip.
var MaxAmount = decimal.New(1, 12)

// CheckAmount rejects values whose magnitude exceeds MaxAmount.
func CheckAmount(field string, d decimal.Decimal) error {
	if d.Abs().GreaterThan(MaxAmount) {
		return Invalid(field, "Valor acima do limite permitido")
	}
	return nil
}

// Package installments splits a total into dated installments.
package installments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultIntervalDays is used when a non-positive interval is given.
const DefaultIntervalDays = 30

// ErrInvalidCount is returned for an installment count below one.
var ErrInvalidCount = errors.New("installment count must be at least 1")

// Planned is one generated installment, numbered from 1.
type Planned struct {
	Number  int             `json:"number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

// Generate splits total into count installments spaced intervalDays apart
// starting at start. Every installment but the last is total/count rounded
// to cents (half to even); the last absorbs the remainder so the amounts
// sum to total exactly.
func Generate(total decimal.Decimal, count int, start time.Time, intervalDays int) ([]Planned, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}

	base := total.Div(decimal.NewFromInt(int64(count))).RoundBank(2)
	plan := make([]Planned, count)
	for i := 0; i < count; i++ {
		plan[i] = Planned{
			Number:  i + 1,
			Amount:  base,
			DueDate: start.AddDate(0, 0, i*intervalDays),
		}
	}
	plan[count-1].Amount = total.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))
	return plan, nil
}

// Sum adds up the amounts of plan.
func Sum(plan []Planned) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range plan {
		sum = sum.Add(p.Amount)
	}
	return sum
}

package parser

import (
	"regexp"
	"strings"
)

// InterStrategy reads Banco Inter statements: date, description, amount,
// balance. Negative amounts are debits already paid.
type InterStrategy struct{}

const interMinFields = 3

// interWord matches the bank name on its own, not inside "internet" or
// "internacional".
var interWord = regexp.MustCompile(`\binter\b`)

func (InterStrategy) Name() string { return "Banco Inter CSV" }

func (InterStrategy) CanHandle(sample string, sep rune) bool {
	if sep != ';' {
		return false
	}
	first := firstLineLower(sample)
	return interWord.MatchString(first) ||
		(strings.Contains(first, "saldo") && containsAny(first, "descricao", "descrição")) ||
		(strings.Contains(first, "balance") && strings.Contains(first, "description"))
}

func (InterStrategy) ParseLine(line string, sep rune, _ ColumnMap) *Record {
	fields := SplitFields(line, sep)
	if len(fields) < interMinFields {
		return nil
	}
	amount := ParseSignedAmount(fields[2])
	rec := &Record{
		Date:      ParseDate(fields[0]),
		Name:      fields[1],
		Amount:    amount.Abs(),
		Priority:  DefaultPriority,
		CardLabel: "Banco Inter",
	}
	if amount.IsNegative() {
		rec.Status = "Pago"
		rec.DebtType = "Débito"
	} else {
		rec.Status = DefaultStatus
		rec.DebtType = "Crédito"
	}
	return rec
}

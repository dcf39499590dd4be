package parser

import "strings"

// NubankStrategy reads Nubank card exports: date, category, title, amount.
type NubankStrategy struct{}

const nubankMinFields = 3

func (NubankStrategy) Name() string { return "Nubank CSV" }

func (NubankStrategy) CanHandle(sample string, sep rune) bool {
	if sep != ',' {
		return false
	}
	first := firstLineLower(sample)
	return strings.Contains(first, "nubank") ||
		(strings.Contains(first, "categoria") && strings.Contains(first, "titulo")) ||
		(strings.Contains(first, "category") && strings.Contains(first, "title"))
}

func (NubankStrategy) ParseLine(line string, sep rune, _ ColumnMap) *Record {
	fields := SplitFields(line, sep)
	if len(fields) < nubankMinFields {
		return nil
	}
	return &Record{
		Date:      ParseDate(fields[0]),
		DebtType:  fields[1],
		Name:      fields[2],
		Amount:    ParseAmount(field(fields, 3)),
		Status:    DefaultStatus,
		Priority:  DefaultPriority,
		CardLabel: "Nubank",
	}
}

package parser

// GenericStrategy reads any delimited layout, by header columns when known
// and positionally otherwise: name, amount, date, priority, status, type,
// card.
type GenericStrategy struct{}

func (GenericStrategy) Name() string { return "Generic CSV" }

func (GenericStrategy) CanHandle(string, rune) bool { return true }

func (GenericStrategy) ParseLine(line string, sep rune, cols ColumnMap) *Record {
	fields := SplitFields(line, sep)
	if len(cols) > 0 {
		get := func(key string) string {
			i, ok := cols[key]
			if !ok {
				return ""
			}
			return field(fields, i)
		}
		return &Record{
			Name:      get(ColumnName),
			Amount:    ParseAmount(get(ColumnAmount)),
			Date:      ParseDate(get(ColumnDate)),
			Priority:  get(ColumnPriority),
			Status:    get(ColumnStatus),
			DebtType:  get(ColumnDebtType),
			CardLabel: get(ColumnCardLabel),
		}
	}
	return &Record{
		Name:      field(fields, 0),
		Amount:    ParseAmount(field(fields, 1)),
		Date:      ParseDate(field(fields, 2)),
		Priority:  field(fields, 3),
		Status:    field(fields, 4),
		DebtType:  field(fields, 5),
		CardLabel: field(fields, 6),
	}
}

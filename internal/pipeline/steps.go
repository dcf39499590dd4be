package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/parser"
)

// MsgUndetectableSeparator is reported when no field separator is found.
const MsgUndetectableSeparator = "Não foi possível detectar o separador do arquivo CSV"

const skippedPreviewRunes = 50

// dataLines returns the non-blank, non-comment lines of text.
func dataLines(text string) []Line {
	var out []Line
	for i, l := range parser.SplitLines(text) {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, Line{Number: i + 1, Text: l})
	}
	return out
}

func joinLines(lines []Line) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > skippedPreviewRunes {
		return string(r[:skippedPreviewRunes])
	}
	return s
}

// DetectStep finds the separator and header of delimited text. An
// undetectable separator halts the run.
type DetectStep struct{}

func (s *DetectStep) Execute(ctx context.Context, state *State) error {
	lines := dataLines(state.Text)
	state.Separator = parser.DetectSeparator(joinLines(lines))
	if state.Separator == parser.NoSeparator {
		state.Result.addError("%s", MsgUndetectableSeparator)
		return ErrHalt
	}
	if len(lines) > 0 && parser.DetectHeader(lines[0].Text, state.Separator) {
		state.HasHeader = true
		state.Columns = parser.MapColumns(lines[0].Text, state.Separator)
	}
	state.Lines = lines
	return nil
}

// SelectStrategyStep picks the most specific strategy for the text.
type SelectStrategyStep struct {
	Registry *parser.Registry
}

func (s *SelectStrategyStep) Execute(ctx context.Context, state *State) error {
	state.Strategy = s.Registry.Select(joinLines(state.Lines), state.Separator)
	state.Result.FormatUsed = fmt.Sprintf("%s (%s)", state.Strategy.Name(), parser.SeparatorLabel(state.Separator))
	if state.HasHeader {
		state.Lines = state.Lines[1:]
	}
	return nil
}

// ParseRowsStep runs the selected strategy over every data line. A row
// that panics is reported as an error; a row without a name as a warning.
type ParseRowsStep struct{}

func (s *ParseRowsStep) Execute(ctx context.Context, state *State) error {
	res := state.Result
	for _, line := range state.Lines {
		res.TotalRecordsSeen++
		rec, err := parseLine(state.Strategy, line.Text, state.Separator, state.Columns)
		if err != nil {
			res.addError("Erro na linha %d: %v", line.Number, err)
			res.RecordsFailed++
			continue
		}
		if rec == nil || strings.TrimSpace(rec.Name) == "" {
			res.addWarning("Linha ignorada: %s", preview(line.Text))
			continue
		}
		state.Records = append(state.Records, *rec)
	}
	return nil
}

func parseLine(st parser.Strategy, line string, sep rune, cols parser.ColumnMap) (rec *parser.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return st.ParseLine(line, sep, cols), nil
}

// ValidateStep drops nameless records and fills defaults: absolute
// amounts, today for missing dates and the default priority and status.
type ValidateStep struct {
	Now func() time.Time
}

func (s *ValidateStep) Execute(ctx context.Context, state *State) error {
	y, m, d := s.Now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	valid := make([]parser.Record, 0, len(state.Records))
	for _, rec := range state.Records {
		rec.Name = strings.TrimSpace(rec.Name)
		if rec.Name == "" {
			state.Result.addWarning("Registro ignorado: nome ausente")
			continue
		}
		rec.Amount = rec.Amount.Abs()
		if parser.IsMissingDate(rec.Date) {
			rec.Date = today
		}
		if strings.TrimSpace(rec.Priority) == "" {
			rec.Priority = parser.DefaultPriority
		}
		if strings.TrimSpace(rec.Status) == "" {
			rec.Status = parser.DefaultStatus
		}
		valid = append(valid, rec)
	}
	state.Records = valid
	state.Result.Records = valid
	return nil
}

// ResolveCardsStep matches card labels against stored card names,
// ignoring case. A label without a match is only a warning.
type ResolveCardsStep struct {
	Cards CardLister
}

func (s *ResolveCardsStep) Execute(ctx context.Context, state *State) error {
	if s.Cards == nil || !anyCardLabel(state.Records) {
		return nil
	}
	cards, err := s.Cards.ListCards(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		state.Result.addWarning("Não foi possível carregar os cartões: %v", err)
		return nil
	}

	for i := range state.Records {
		rec := &state.Records[i]
		label := strings.TrimSpace(rec.CardLabel)
		if label == "" {
			continue
		}
		found := false
		for _, c := range cards {
			if strings.EqualFold(c.Name, label) {
				id := c.ID
				rec.ResolvedCardID = &id
				found = true
				break
			}
		}
		if !found {
			state.Result.addWarning("Cartão não encontrado: %s", label)
		}
	}
	state.Result.Records = state.Records
	return nil
}

func anyCardLabel(records []parser.Record) bool {
	for _, r := range records {
		if strings.TrimSpace(r.CardLabel) != "" {
			return true
		}
	}
	return false
}

// ClassifyStep fills missing debt types with model suggestions.
type ClassifyStep struct {
	Classifier Classifier
}

func (s *ClassifyStep) Execute(ctx context.Context, state *State) error {
	if s.Classifier == nil {
		return nil
	}
	var idx []int
	var names []string
	for i, r := range state.Records {
		if strings.TrimSpace(r.DebtType) == "" {
			idx = append(idx, i)
			names = append(names, r.Name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	types, err := s.Classifier.SuggestDebtTypes(ctx, names)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		state.Result.addWarning("Classificação automática indisponível: %v", err)
		return nil
	}
	for j, i := range idx {
		if j < len(types) {
			state.Records[i].DebtType = types[j]
		}
	}
	state.Result.Records = state.Records
	return nil
}

// MaterializeStep stores each record as a debt. A rejected record is
// counted as failed and the run continues. With DryRun nothing is stored
// and every record counts as imported.
type MaterializeStep struct {
	Debts  DebtCreator
	DryRun bool
}

func (s *MaterializeStep) Execute(ctx context.Context, state *State) error {
	res := state.Result
	if s.DryRun {
		res.RecordsImported = len(state.Records)
		return nil
	}
	for _, rec := range state.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := createDebt(ctx, s.Debts, rec); err != nil {
			res.addError("Erro ao importar '%s': %v", rec.Name, err)
			res.RecordsFailed++
			continue
		}
		res.RecordsImported++
	}
	return nil
}

func createDebt(ctx context.Context, debts DebtCreator, rec parser.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	_, err = debts.CreateFromRecord(ctx, rec)
	return err
}

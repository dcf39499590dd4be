package pipeline

import (
	"context"
	"strings"

	"github.com/pedrolabre/personal-finance-manager/internal/parser"
)

// RecordDelimiter separates records in the key:value layout.
const RecordDelimiter = "---"

// KeyValueStep parses "Chave: Valor" blocks separated by RecordDelimiter
// lines. Keys are matched case-insensitively; unknown keys are ignored.
type KeyValueStep struct{}

func (s *KeyValueStep) Execute(ctx context.Context, state *State) error {
	res := state.Result
	res.FormatUsed = LabelSimple

	for n, block := range splitBlocks(state.Text) {
		res.TotalRecordsSeen++
		rec := parseBlock(block)
		if strings.TrimSpace(rec.Name) == "" {
			res.addWarning("Registro %d ignorado: %s", n+1, preview(strings.Join(block, " ")))
			continue
		}
		state.Records = append(state.Records, rec)
	}
	return nil
}

// splitBlocks groups the non-blank, non-comment lines of text into blocks.
func splitBlocks(text string) [][]string {
	var blocks [][]string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, cur)
			cur = nil
		}
	}
	for _, l := range parser.SplitLines(text) {
		t := strings.TrimSpace(l)
		switch {
		case t == RecordDelimiter:
			flush()
		case t == "", strings.HasPrefix(t, "#"):
		default:
			cur = append(cur, t)
		}
	}
	flush()
	return blocks
}

func parseBlock(lines []string) parser.Record {
	var rec parser.Record
	for _, l := range lines {
		key, value, ok := strings.Cut(l, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "nome":
			rec.Name = value
		case "valor":
			rec.Amount = parser.ParseSignedAmount(value)
		case "data":
			rec.Date = parser.ParseDate(value)
		case "prioridade":
			rec.Priority = value
		case "status":
			rec.Status = value
		case "tipo":
			rec.DebtType = value
		case "cartao", "cartão":
			rec.CardLabel = value
		case "descricao", "descrição":
			rec.Description = value
		}
	}
	return rec
}

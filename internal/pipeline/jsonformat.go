package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pedrolabre/personal-finance-manager/internal/parser"
)

type jsonRecord struct {
	Nome       string          `json:"nome"`
	Valor      json.RawMessage `json:"valor"`
	Data       string          `json:"data"`
	Prioridade string          `json:"prioridade"`
	Status     string          `json:"status"`
	Tipo       string          `json:"tipo"`
	Cartao     string          `json:"cartao"`
	Descricao  string          `json:"descricao"`
}

// JSONStep parses an array of objects. "valor" may be a number or a
// string in any format the amount parser accepts.
type JSONStep struct{}

func (s *JSONStep) Execute(ctx context.Context, state *State) error {
	res := state.Result
	res.FormatUsed = LabelJSON

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(state.Text)), &items); err != nil {
		res.addError("JSON inválido: %v", err)
		return ErrHalt
	}

	for i, raw := range items {
		res.TotalRecordsSeen++
		var jr jsonRecord
		if err := json.Unmarshal(raw, &jr); err != nil {
			res.addError("Erro no registro %d: %v", i+1, err)
			res.RecordsFailed++
			continue
		}
		if strings.TrimSpace(jr.Nome) == "" {
			res.addWarning("Registro %d ignorado: %s", i+1, preview(string(raw)))
			continue
		}
		state.Records = append(state.Records, parser.Record{
			Name:        jr.Nome,
			Amount:      parser.ParseSignedAmount(strings.Trim(string(jr.Valor), `"`)),
			Date:        parser.ParseDate(jr.Data),
			Priority:    jr.Prioridade,
			Status:      jr.Status,
			DebtType:    jr.Tipo,
			CardLabel:   jr.Cartao,
			Description: jr.Descricao,
		})
	}
	return nil
}

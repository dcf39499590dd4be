package pipeline

import (
	"fmt"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/parser"
)

// Result is the outcome of one import or preview. Counters only grow
// during a run.
type Result struct {
	Succeeded        bool            `json:"succeeded"`
	FormatUsed       string          `json:"format_used"`
	TotalRecordsSeen int             `json:"total_records_seen"`
	RecordsImported  int             `json:"records_imported"`
	RecordsFailed    int             `json:"records_failed"`
	Errors           []string        `json:"errors"`
	Warnings         []string        `json:"warnings"`
	Records          []parser.Record `json:"records"`
	ImportedAt       time.Time       `json:"imported_at"`
}

func newResult() *Result {
	return &Result{
		Errors:   []string{},
		Warnings: []string{},
		Records:  []parser.Record{},
	}
}

// Summary renders the counters on one line.
func (r *Result) Summary() string {
	return fmt.Sprintf("Importados: %d/%d | Falhas: %d | Avisos: %d",
		r.RecordsImported, r.TotalRecordsSeen, r.RecordsFailed, len(r.Warnings))
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

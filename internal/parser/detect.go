package parser

import (
	"sort"
	"strings"
)

// NoSeparator is returned by DetectSeparator when no candidate occurs.
const NoSeparator rune = 0

var separatorCandidates = []rune{';', ',', '\t', '|'}

var headerKeywords = []string{
	"nome", "valor", "data", "descricao", "descrição", "vencimento",
	"status", "tipo", "cartao", "cartão", "prioridade", "categoria", "parcela",
	"name", "value", "date", "description", "amount",
}

// Field keys produced by MapColumns.
const (
	ColumnName      = "name"
	ColumnAmount    = "amount"
	ColumnDate      = "date"
	ColumnPriority  = "priority"
	ColumnStatus    = "status"
	ColumnDebtType  = "debtType"
	ColumnCardLabel = "cardLabel"
)

// ColumnMap maps a field key to its index in a row.
type ColumnMap map[string]int

// SplitLines splits text on newlines, trimming a trailing carriage return.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// DetectSeparator guesses the field separator of text. A candidate is kept
// when its per-line count over the first five lines takes at most two
// distinct values; otherwise the most frequent one in the first line wins.
func DetectSeparator(text string) rune {
	var lines []string
	for _, l := range SplitLines(text) {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
		if len(lines) == 5 {
			break
		}
	}
	if len(lines) == 0 {
		return NoSeparator
	}

	type candidate struct {
		sep   rune
		count int
	}
	var candidates []candidate
	for _, sep := range separatorCandidates {
		if n := strings.Count(lines[0], string(sep)); n > 0 {
			candidates = append(candidates, candidate{sep, n})
		}
	}
	if len(candidates) == 0 {
		return NoSeparator
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].count > candidates[j].count
	})

	for _, c := range candidates {
		distinct := make(map[int]struct{})
		for _, l := range lines {
			distinct[strings.Count(l, string(c.sep))] = struct{}{}
		}
		if len(distinct) <= 2 {
			return c.sep
		}
	}
	return candidates[0].sep
}

// DetectHeader reports whether firstLine looks like a header: at least two
// of its fields contain a known column keyword.
func DetectHeader(firstLine string, sep rune) bool {
	matches := 0
	for _, f := range SplitFields(firstLine, sep) {
		f = strings.ToLower(f)
		for _, kw := range headerKeywords {
			if strings.Contains(f, kw) {
				matches++
				break
			}
		}
	}
	return matches >= 2
}

// MapColumns assigns a field key to each recognised header column. The
// first column matching a key keeps it.
func MapColumns(header string, sep rune) ColumnMap {
	cols := make(ColumnMap)
	for i, f := range SplitFields(header, sep) {
		f = strings.ToLower(f)
		var key string
		switch {
		case containsAny(f, "nome", "name", "descri"):
			key = ColumnName
		case containsAny(f, "valor", "value", "amount", "preco", "preço"):
			key = ColumnAmount
		case containsAny(f, "data", "date", "vencimento"):
			key = ColumnDate
		case containsAny(f, "prioridade", "priority"):
			key = ColumnPriority
		case containsAny(f, "status", "situacao", "situação"):
			key = ColumnStatus
		case containsAny(f, "tipo", "type", "categoria"):
			key = ColumnDebtType
		case containsAny(f, "cartao", "cartão", "card"):
			key = ColumnCardLabel
		default:
			continue
		}
		if _, taken := cols[key]; !taken {
			cols[key] = i
		}
	}
	return cols
}

// SeparatorLabel renders sep for human-readable format labels.
func SeparatorLabel(sep rune) string {
	if sep == '\t' {
		return `\t`
	}
	return string(sep)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

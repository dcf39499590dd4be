package pipeline

import (
	"fmt"
	"strings"
)

// Format is the layout hint a caller passes with the text.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatSimple Format = "simple"
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
)

// Labels reported in Result.FormatUsed by the non-delimited layouts.
const (
	LabelSimple = "Formato Simples (Chave: Valor)"
	LabelJSON   = "JSON"
)

// ParseFormat maps a user-supplied name to a Format. Empty means auto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "simple", "simples", "keyvalue", "kv":
		return FormatSimple, nil
	case "csv", "lista":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown import format %q", s)
}

// resolve picks the concrete layout for text. Delimited text is the
// default; auto only switches away from it for a leading JSON array or a
// leading "nome:" line.
func (f Format) resolve(text string) Format {
	if f != FormatAuto {
		return f
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		return FormatJSON
	}
	for _, l := range strings.Split(trimmed, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		key, _, ok := strings.Cut(l, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "nome") {
			return FormatSimple
		}
		break
	}
	return FormatCSV
}

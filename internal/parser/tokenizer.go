package parser

import "strings"

// SplitFields splits line on sep. A double quote toggles quoting, and sep is
// literal while quoted. Quotes are dropped and each field is trimmed.
func SplitFields(line string, sep rune) []string {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == sep && !quoted:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(cur.String()))
}

package parser

import "strings"

// Strategy parses rows of one source layout. Implementations are stateless
// and safe to share between goroutines.
type Strategy interface {
	// Name identifies the strategy in import reports.
	Name() string

	// CanHandle inspects the first line of sample.
	CanHandle(sample string, sep rune) bool

	// ParseLine returns nil when the line has too few fields. cols may be nil.
	ParseLine(line string, sep rune, cols ColumnMap) *Record
}

// firstLineLower returns the lowercased first line of text.
func firstLineLower(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.ToLower(strings.TrimSpace(text))
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

package parser

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order; day-first layouts win over the US one.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
	"02/01/06",
	"2/1/06",
}

// localeLayouts is the pt-BR fallback for values carrying a time of day.
var localeLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseSignedAmount parses a monetary value written with either ',' or '.'
// as decimal mark. Currency symbols and whitespace are ignored. Input that
// cannot be parsed yields zero.
func ParseSignedAmount(raw string) decimal.Decimal {
	s := strings.Map(func(r rune) rune {
		switch r {
		case 'R', '$', '€', '£', '¥':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return decimal.Zero
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if digitsAfter(s, lastComma) == 2 {
			s = strings.ReplaceAll(s[:lastComma], ",", "") + "." + s[lastComma+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmount is ParseSignedAmount without the sign.
func ParseAmount(raw string) decimal.Decimal {
	return ParseSignedAmount(raw).Abs()
}

func digitsAfter(s string, i int) int {
	tail := s[i+1:]
	for _, r := range tail {
		if r < '0' || r > '9' {
			return -1
		}
	}
	return len(tail)
}

// ParseDate reads a date in one of the accepted layouts. Blank or
// unparseable input yields the zero time; see IsMissingDate.
func ParseDate(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	for _, layout := range localeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// IsMissingDate reports whether t is the sentinel returned by ParseDate for
// absent dates.
func IsMissingDate(t time.Time) bool {
	return t.IsZero()
}

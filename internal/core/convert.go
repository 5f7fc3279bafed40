package core

// convert.go turns spreadsheet and form cell text into entry field values.
//
// Date text is tried against a fixed, ordered list of layouts: ISO first,
// then US month/day, then European day/month. "03/04/2024" is therefore
// always March 4. Kind text is matched case-insensitively against the
// canonical token table, falling back to substring containment.

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/shopspring/decimal"
)

// DateLayouts is the ordered fallback list for date text.
// Single-digit layouts also accept zero-padded input.
var DateLayouts = []string{
	"2006-1-2", // YYYY-MM-DD
	"1/2/2006", // MM/DD/YYYY
	"2/1/2006", // DD/MM/YYYY
}

// kindTokens is the canonical token table for entry kinds.
var kindTokens = map[string]entry.Kind{
	"inflow":  entry.KindInflow,
	"outflow": entry.KindOutflow,
}

// ParseDateText parses s with the first layout in DateLayouts that accepts it.
func ParseDateText(s string) (time.Time, error) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (use YYYY-MM-DD, MM/DD/YYYY or DD/MM/YYYY)", ErrInvalidDate, s)
}

// NormalizeKind maps free-form kind text onto a canonical token.
//
// The trimmed, lowercased value is looked up directly first. Failing that,
// the first canonical token that contains the value, or is contained by it,
// wins ("in" and "inflows" both become inflow). Anything else is returned
// lowercased as-is; the entry store rejects it.
func NormalizeKind(s string) entry.Kind {
	v := strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindTokens[v]; ok {
		return k
	}
	if v == "" {
		return ""
	}
	for _, k := range entry.Kinds {
		token := string(k)
		if strings.Contains(v, token) || strings.Contains(token, v) {
			return k
		}
	}
	return entry.Kind(v)
}

// ParseAmount converts amount text into a float.
// Accepts plain and scientific decimal notation; rejects NaN and Inf.
func ParseAmount(s string) (float64, error) {
	s = CleanCell(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return d.InexactFloat64(), nil
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace and an Excel text-formula wrapper (="...").
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

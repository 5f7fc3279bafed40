package core

// validation.go checks the header row of an import sheet.
//
// Row parsing after this point is purely positional: column 1 is the date,
// 2 the type, 3 the description and 4 the amount. The header must therefore
// match ExpectedColumns in order; names are compared case-insensitively and
// whitespace-trimmed. Extra columns after the fourth are ignored.

import "strings"

// ExpectedColumns is the fixed import schema, in positional order.
var ExpectedColumns = []string{"Date", "Type", "Description", "Amount"}

// MinColumns is the minimum number of header columns.
var MinColumns = len(ExpectedColumns)

// DateColumn is the 1-based position of the date column.
const DateColumn = 1

// ValidateHeader checks header against ExpectedColumns.
// It returns a SchemaMismatchError for a short header or the first
// out-of-order column.
func ValidateHeader(header []Cell) error {
	if len(header) < MinColumns {
		return &SchemaMismatchError{
			MinColumns:   MinColumns,
			FoundColumns: len(header),
			FoundHeader:  HeaderValues(header),
		}
	}

	for i, want := range ExpectedColumns {
		got := strings.TrimSpace(header[i].Value)
		if !strings.EqualFold(got, want) {
			return &SchemaMismatchError{
				Column:       i + 1,
				Expected:     want,
				Found:        got,
				MinColumns:   MinColumns,
				FoundColumns: len(header),
			}
		}
	}
	return nil
}

// HeaderValues returns the trimmed header texts.
func HeaderValues(header []Cell) []string {
	out := make([]string, len(header))
	for i, c := range header {
		out[i] = strings.TrimSpace(c.Value)
	}
	return out
}

package core

import (
	"encoding/json"
	"strings"
	"time"
)

// SkipReason classifies why an import row was not turned into an entry.
type SkipReason string

const (
	SkipEmptyRow     SkipReason = "empty_row"
	SkipShortRow     SkipReason = "short_row"
	SkipMissingField SkipReason = "missing_field"
	SkipBadDate      SkipReason = "bad_date"
	SkipBadAmount    SkipReason = "bad_amount"
	SkipRejected     SkipReason = "rejected"
)

// RowResult is the outcome of processing one data row.
// A zero Reason means the row was imported.
type RowResult struct {
	Row    int // 1-based sheet row number
	Reason SkipReason
	Err    error // store rejection detail, when Reason is SkipRejected
}

// Imported reports whether the row produced an entry.
func (r RowResult) Imported() bool {
	return r.Reason == ""
}

// ImportSummary is the aggregate outcome of one import call.
type ImportSummary struct {
	ImportID        string             `json:"import_id"`
	FileName        string             `json:"file_name,omitempty"`
	Sheet           string             `json:"sheet_used"`
	Imported        int                `json:"imported_count"`
	Skipped         int                `json:"skipped_count"`
	SkippedByReason map[SkipReason]int `json:"skipped_by_reason,omitempty"`
	Duration        time.Duration      `json:"-"`
}

// Total returns the number of data rows processed.
func (s *ImportSummary) Total() int {
	return s.Imported + s.Skipped
}

func (s *ImportSummary) record(r RowResult) {
	if r.Imported() {
		s.Imported++
		return
	}
	s.Skipped++
	if s.SkippedByReason == nil {
		s.SkippedByReason = make(map[SkipReason]int)
	}
	s.SkippedByReason[r.Reason]++
}

// ImportRequest is one import call.
type ImportRequest struct {
	Data     []byte
	FileName string
	Sheet    string
	Owner    string // acting user; owns every created entry
}

// SheetList is the result of sheet discovery.
type SheetList struct {
	Sheets   []string `json:"sheets"`
	Selected string   `json:"selected"`
}

// Message renders the sheet list for display.
func (l *SheetList) Message() string {
	return "Available sheets: " + strings.Join(l.Sheets, ", ")
}

// EntryPayload is one row of the interactive entry form.
type EntryPayload struct {
	Date        string     `json:"date"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Amount      AmountText `json:"amount"`
}

// AmountText accepts a JSON number or string, keeping the literal text.
type AmountText string

func (a *AmountText) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	*a = AmountText(b)
	return nil
}

// SubmitResult acknowledges a batch submission.
type SubmitResult struct {
	Status  string   `json:"status"`
	Created int      `json:"created"`
	IDs     []string `json:"ids"`
}

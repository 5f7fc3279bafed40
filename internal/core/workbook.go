package core

// workbook.go wraps an uploaded .xlsx file for the duration of one import
// or sheet discovery. Callers must Close the Workbook on every exit path.

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Cell is one spreadsheet cell value.
// Value is the raw cell text (numbers unformatted). IsDate is set when the
// cell holds a number styled as a date, in which case Time holds the date.
type Cell struct {
	Value  string
	Time   time.Time
	IsDate bool
}

// Blank reports whether the cell is null or whitespace only.
func (c Cell) Blank() bool {
	return !c.IsDate && strings.TrimSpace(c.Value) == ""
}

// Workbook is a parsed spreadsheet container.
type Workbook struct {
	file     *excelize.File
	date1904 bool
}

// OpenWorkbook parses data as an .xlsx container.
// Any parse failure is reported as a MalformedFileError.
func OpenWorkbook(data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, &MalformedFileError{Cause: errors.New("empty file")}
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &MalformedFileError{Cause: err}
	}

	wb := &Workbook{file: f}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}
	return wb, nil
}

// Close releases the parsed workbook.
func (w *Workbook) Close() {
	if w == nil || w.file == nil {
		return
	}
	if err := w.file.Close(); err != nil {
		slog.Warn("workbook close failed", "error", err)
	}
}

// SheetNames returns the sheet names in workbook order, each trimmed.
func (w *Workbook) SheetNames() []string {
	raw := w.file.GetSheetList()
	names := make([]string, len(raw))
	for i, name := range raw {
		names[i] = strings.TrimSpace(name)
	}
	return names
}

// ResolveSheet finds the sheet whose trimmed name equals the trimmed
// selection. Matching is case-sensitive. It returns the name as stored in
// the workbook, or a SheetNotFoundError listing the available sheets.
func (w *Workbook) ResolveSheet(selection string) (string, error) {
	want := strings.TrimSpace(selection)
	for _, name := range w.file.GetSheetList() {
		if strings.TrimSpace(name) == want {
			return name, nil
		}
	}
	return "", &SheetNotFoundError{Requested: want, Available: w.SheetNames()}
}

// SheetRows streams the rows of one sheet. Rows are numbered from 1 and
// gaps in the sheet come back as empty rows.
type SheetRows struct {
	wb       *Workbook
	sheet    string
	rows     *excelize.Rows
	dateCols map[int]bool
	num      int
	cur      []Cell
	err      error
}

// Rows opens a row iterator over sheet. Numeric cells in dateCols (1-based)
// are checked for a date number format; other cells keep their raw text.
// The caller must Close the iterator.
func (w *Workbook) Rows(sheet string, dateCols ...int) (*SheetRows, error) {
	rows, err := w.file.Rows(sheet)
	if err != nil {
		return nil, &MalformedFileError{Cause: err}
	}
	sr := &SheetRows{wb: w, sheet: sheet, rows: rows, dateCols: make(map[int]bool, len(dateCols))}
	for _, c := range dateCols {
		sr.dateCols[c] = true
	}
	return sr, nil
}

// Next advances to the next row. It returns false at the end of the sheet
// or on a read error, which Err reports.
func (r *SheetRows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	r.num++

	cols, err := r.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		r.err = &MalformedFileError{Cause: err}
		return false
	}
	r.cur = make([]Cell, len(cols))
	for i, v := range cols {
		if r.dateCols[i+1] {
			r.cur[i] = r.wb.cell(r.sheet, i+1, r.num, v)
		} else {
			r.cur[i] = Cell{Value: v}
		}
	}
	return true
}

// Row returns the current row. Trailing blank cells are not included.
func (r *SheetRows) Row() []Cell { return r.cur }

// Num returns the 1-based sheet row number of the current row.
func (r *SheetRows) Num() int { return r.num }

func (r *SheetRows) Err() error {
	if r.err != nil {
		return r.err
	}
	if err := r.rows.Error(); err != nil {
		return &MalformedFileError{Cause: err}
	}
	return nil
}

// Close releases the iterator's temporary resources.
func (r *SheetRows) Close() {
	if err := r.rows.Close(); err != nil {
		slog.Warn("sheet rows close failed", "sheet", r.sheet, "error", err)
	}
}

// cell builds a Cell, detecting native date values: numeric cells whose
// number format is a date format. A serial below 1 is a time of day with
// no date part and stays plain text.
func (w *Workbook) cell(sheet string, col, row int, raw string) Cell {
	c := Cell{Value: raw}

	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial < 1 {
		return c
	}

	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return c
	}
	styleID, err := w.file.GetCellStyle(sheet, axis)
	if err != nil || styleID == 0 {
		return c
	}
	style, err := w.file.GetStyle(styleID)
	if err != nil || !isDateStyle(style) {
		return c
	}

	t, err := excelize.ExcelDateToTime(serial, w.date1904)
	if err != nil {
		return c
	}
	c.Time = t
	c.IsDate = true
	return c
}

// isDateStyle reports whether the style's number format renders a date.
func isDateStyle(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	return isBuiltInDateFormat(style.NumFmt)
}

// isBuiltInDateFormat covers the ECMA-376 built-in date and date-time
// format IDs, including the CJK locale variants. Time-only formats
// (18-21 h:mm and friends, 32-35 and 55-56 in CJK locales) are excluded.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 31, id == 36:
		return true
	case id >= 50 && id <= 54, id >= 57 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code contains day or
// year placeholders outside of quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	var (
		inQuote   bool
		inBracket bool
	)
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		case ch == '\\':
			i++
		case ch == 'd' || ch == 'D' || ch == 'y' || ch == 'Y':
			return true
		}
	}
	return false
}

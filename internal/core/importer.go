package core

// importer.go turns an uploaded spreadsheet into entries.
//
// Flow: open workbook -> resolve sheet -> validate header -> process rows.
// Structural failures (file, sheet, header) abort the call. Row failures are
// recorded as RowResults and counted; they never stop later rows.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/JonMunkholm/dailyfinance/internal/logging"
	"github.com/google/uuid"
)

// Importer runs spreadsheet imports against an entry store.
type Importer struct {
	store entry.Store
	now   func() time.Time
}

// NewImporter creates an Importer writing to store.
func NewImporter(store entry.Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// DiscoverSheets lists the trimmed sheet names of data and selects the
// first one. It only inspects the file.
func (im *Importer) DiscoverSheets(data []byte) (*SheetList, error) {
	wb, err := OpenWorkbook(data)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	list := &SheetList{Sheets: wb.SheetNames()}
	if len(list.Sheets) > 0 {
		list.Selected = list.Sheets[0]
	}
	return list, nil
}

// Import creates one entry per valid data row of the selected sheet.
// Re-importing the same file creates the entries again.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (*ImportSummary, error) {
	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		return nil, fmt.Errorf("%w: owner", ErrMissingField)
	}

	start := im.now()

	wb, err := OpenWorkbook(req.Data)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet, err := wb.ResolveSheet(req.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := wb.Rows(sheet, DateColumn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var header []Cell
	if rows.Next() {
		header = rows.Row()
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := ValidateHeader(header); err != nil {
		return nil, err
	}

	summary := &ImportSummary{
		ImportID: uuid.New().String(),
		FileName: req.FileName,
		Sheet:    strings.TrimSpace(sheet),
	}

	logger := logging.WithFields(ctx,
		"import_id", summary.ImportID,
		"owner", owner,
		"sheet", summary.Sheet,
	)
	logger.Info("import started", "file", req.FileName)

	// Rows are written to completion once the header is accepted; a caller
	// deadline must not turn valid rows into skips.
	writeCtx := context.WithoutCancel(ctx)

	// Cell-less rows are only counted once a later row has content, so
	// trailing blank rows are not reported as skips.
	var pendingBlank []RowResult
	for rows.Next() {
		row := rows.Row()
		if len(row) == 0 {
			pendingBlank = append(pendingBlank, RowResult{Row: rows.Num(), Reason: SkipEmptyRow})
			continue
		}
		for _, blank := range pendingBlank {
			summary.record(blank)
		}
		pendingBlank = pendingBlank[:0]

		result := im.processRow(writeCtx, owner, summary.ImportID, rows.Num(), row)
		if !result.Imported() {
			logger.Debug("row skipped", "row", result.Row, "reason", result.Reason, "error", result.Err)
		}
		summary.record(result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sheet %q (%d rows already imported as %s): %w",
			summary.Sheet, summary.Imported, summary.ImportID, err)
	}

	summary.Duration = im.now().Sub(start)
	logger.Info("import completed",
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

// processRow converts one data row and submits it to the store.
func (im *Importer) processRow(ctx context.Context, owner, importID string, rowNum int, row []Cell) RowResult {
	result := RowResult{Row: rowNum}

	if isEmptyRow(row) {
		result.Reason = SkipEmptyRow
		return result
	}
	if len(row) < MinColumns {
		result.Reason = SkipShortRow
		return result
	}

	dateCell, kindCell, descCell, amountCell := row[0], row[1], row[2], row[3]
	if dateCell.Blank() || kindCell.Blank() || descCell.Blank() || amountCell.Blank() {
		result.Reason = SkipMissingField
		return result
	}

	date, err := cellDate(dateCell)
	if err != nil {
		result.Reason = SkipBadDate
		result.Err = err
		return result
	}

	kind := NormalizeKind(kindCell.Value)

	amount, err := ParseAmount(amountCell.Value)
	if err != nil {
		result.Reason = SkipBadAmount
		result.Err = err
		return result
	}

	_, err = im.store.Create(ctx, owner, entry.NewEntry{
		Date:        date,
		Kind:        kind,
		Description: CleanCell(descCell.Value),
		Amount:      amount,
		Owner:       owner,
		ImportID:    importID,
	})
	if err != nil {
		result.Reason = SkipRejected
		result.Err = err
	}
	return result
}

// cellDate returns a native date cell's date, or parses date text.
func cellDate(c Cell) (time.Time, error) {
	if c.IsDate {
		return entry.CalendarDate(c.Time), nil
	}
	return ParseDateText(c.Value)
}

// isEmptyRow reports whether the leading MinColumns cells are all blank.
func isEmptyRow(row []Cell) bool {
	for i := 0; i < len(row) && i < MinColumns; i++ {
		if !row[i].Blank() {
			return false
		}
	}
	return true
}

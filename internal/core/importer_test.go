package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDiscoverSheets(t *testing.T) {
	data := buildWorkbook(t,
		sheet{name: "Jan 2024", rows: [][]any{header}},
		sheet{name: "Feb 2024", rows: [][]any{header}},
	)

	list, err := NewImporter(entry.NewMemoryStore()).DiscoverSheets(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, list.Sheets)
	assert.Equal(t, "Jan 2024", list.Selected)
	assert.Equal(t, "Available sheets: Jan 2024, Feb 2024", list.Message())
}

func TestDiscoverSheets_Malformed(t *testing.T) {
	im := NewImporter(entry.NewMemoryStore())

	for name, data := range map[string][]byte{
		"empty":      nil,
		"plain text": []byte("Date,Type,Description,Amount\n2024-01-01,inflow,x,1\n"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := im.DiscoverSheets(data)
			assert.ErrorIs(t, err, ErrMalformedFile)
		})
	}
}

func TestImport_SheetNotFound(t *testing.T) {
	store := entry.NewMemoryStore()
	data := buildWorkbook(t,
		sheet{name: "Jan 2024", rows: [][]any{header}},
		sheet{name: "Feb 2024", rows: [][]any{header}},
	)

	_, err := NewImporter(store).Import(context.Background(), ImportRequest{
		Data:  data,
		Sheet: "feb 2024",
		Owner: "alice",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSheetNotFound)

	var snf *SheetNotFoundError
	require.True(t, errors.As(err, &snf))
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, snf.Available)
	assert.Contains(t, err.Error(), "Available sheets: Jan 2024, Feb 2024")
	assert.Zero(t, store.Len())
}

func TestImport_SelectionIsTrimmed(t *testing.T) {
	store := entry.NewMemoryStore()
	data := buildWorkbook(t,
		sheet{name: "Jan 2024", rows: [][]any{header}},
		sheet{name: "Feb 2024", rows: [][]any{
			header,
			{"2024-02-01", "Inflow", "Salary", 1500},
		}},
	)

	summary, err := NewImporter(store).Import(context.Background(), ImportRequest{
		Data:  data,
		Sheet: "  Feb 2024 ",
		Owner: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "Feb 2024", summary.Sheet)
	assert.Equal(t, 1, summary.Imported)
}

func TestImport_SchemaMismatch(t *testing.T) {
	tests := []struct {
		name       string
		rows       [][]any
		wantColumn int
		wantText   string
	}{
		{
			name:       "renamed description",
			rows:       [][]any{{"Date", "Type", "Desc", "Amount"}},
			wantColumn: 3,
			wantText:   `column 3 expected "Description", found "Desc"`,
		},
		{
			name:       "reordered",
			rows:       [][]any{{"Type", "Date", "Description", "Amount"}},
			wantColumn: 1,
			wantText:   `column 1 expected "Date", found "Type"`,
		},
		{
			name:     "short header",
			rows:     [][]any{{"Date", "Type", "Description"}},
			wantText: "at least 4 columns (Date, Type, Description, Amount), found 3 (Date, Type, Description)",
		},
		{
			name:     "empty sheet",
			rows:     nil,
			wantText: "found 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := entry.NewMemoryStore()
			data := buildWorkbook(t, sheet{name: "Data", rows: tt.rows})

			_, err := NewImporter(store).Import(context.Background(), ImportRequest{
				Data: data, Sheet: "Data", Owner: "alice",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
			assert.Contains(t, err.Error(), tt.wantText)

			var sm *SchemaMismatchError
			require.True(t, errors.As(err, &sm))
			assert.Equal(t, tt.wantColumn, sm.Column)
			assert.Zero(t, store.Len())
		})
	}
}

func TestImport_HeaderIsCaseInsensitive(t *testing.T) {
	data := buildWorkbook(t, sheet{name: "Data", rows: [][]any{
		{" date ", "TYPE", "description", "Amount", "Notes"},
		{"2024-01-15", "inflow", "Salary", 100, "extra column ignored"},
	}})

	summary, err := NewImporter(entry.NewMemoryStore()).Import(context.Background(), ImportRequest{
		Data: data, Sheet: "Data", Owner: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
}

func TestImport_RowOutcomes(t *testing.T) {
	store := entry.NewMemoryStore()
	data := buildWorkbook(t, sheet{name: "Jan 2024", rows: [][]any{
		header,
		{"2024-01-15", "Inflow", "Salary", 1500},         // row 2: imported
		nil,                                              // row 3: empty
		{"2024-01-16", "Outflow", "Coffee"},              // row 4: short
		{"2024-01-17", "Outflow", "", 4.5},               // row 5: missing description
		{"yesterday", "Outflow", "Lunch", 12},            // row 6: bad date
		{"2024-01-18", "Outflow", "Taxi", "abc"},         // row 7: bad amount
		{"2024-01-19", "transfer", "Move", 50},           // row 8: rejected by store
		{date(2024, 2, 10), "out", "Groceries", 82.3},    // row 9: native date, lenient type
		{"03/04/2024", "INFLOW", "Refund", "20"},         // row 10: US date
		{"   ", " ", "", ""},                             // row 11: whitespace only
		{"25/12/2024", "Outflow", `="Gift"`, "-15.25"},   // row 12: EU date, text formula
	}})

	summary, err := NewImporter(store).Import(context.Background(), ImportRequest{
		Data:     data,
		FileName: "january.xlsx",
		Sheet:    "Jan 2024",
		Owner:    "alice",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Imported)
	assert.Equal(t, 7, summary.Skipped)
	assert.Equal(t, 11, summary.Total())
	assert.Equal(t, "Jan 2024", summary.Sheet)
	assert.Equal(t, "january.xlsx", summary.FileName)
	assert.NotEmpty(t, summary.ImportID)
	assert.Equal(t, map[SkipReason]int{
		SkipEmptyRow:     2,
		SkipShortRow:     1,
		SkipMissingField: 1,
		SkipBadDate:      1,
		SkipBadAmount:    1,
		SkipRejected:     1,
	}, summary.SkippedByReason)

	entries, err := store.List(context.Background(), entry.ListFilter{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byDesc := make(map[string]entry.Entry)
	for _, e := range entries {
		assert.Equal(t, "alice", e.Owner)
		assert.Equal(t, summary.ImportID, e.ImportID)
		byDesc[e.Description] = e
	}

	assert.Equal(t, date(2024, 1, 15), byDesc["Salary"].Date)
	assert.Equal(t, entry.KindInflow, byDesc["Salary"].Kind)
	assert.Equal(t, 1500.0, byDesc["Salary"].Amount)

	assert.Equal(t, date(2024, 2, 10), byDesc["Groceries"].Date)
	assert.Equal(t, entry.KindOutflow, byDesc["Groceries"].Kind)
	assert.InDelta(t, 82.3, byDesc["Groceries"].Amount, 1e-9)

	assert.Equal(t, date(2024, 3, 4), byDesc["Refund"].Date)
	assert.Equal(t, entry.KindInflow, byDesc["Refund"].Kind)

	assert.Equal(t, date(2024, 12, 25), byDesc["Gift"].Date)
	assert.Equal(t, -15.25, byDesc["Gift"].Amount)
}

func TestImport_ReimportCreatesDuplicates(t *testing.T) {
	store := entry.NewMemoryStore()
	data := buildWorkbook(t, sheet{name: "Data", rows: [][]any{
		header,
		{"2024-01-15", "Inflow", "Salary", 1500},
		{"2024-01-16", "Outflow", "Rent", 900},
	}})
	im := NewImporter(store)
	req := ImportRequest{Data: data, Sheet: "Data", Owner: "alice"}

	first, err := im.Import(context.Background(), req)
	require.NoError(t, err)
	second, err := im.Import(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Imported)
	assert.Equal(t, 2, second.Imported)
	assert.NotEqual(t, first.ImportID, second.ImportID)
	assert.Equal(t, 4, store.Len())

	only, err := store.List(context.Background(), entry.ListFilter{Owner: "alice", ImportID: second.ImportID})
	require.NoError(t, err)
	assert.Len(t, only, 2)
}

func TestImport_HeaderOnly(t *testing.T) {
	data := buildWorkbook(t, sheet{name: "Data", rows: [][]any{header}})

	summary, err := NewImporter(entry.NewMemoryStore()).Import(context.Background(), ImportRequest{
		Data: data, Sheet: "Data", Owner: "alice",
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Imported)
	assert.Zero(t, summary.Skipped)
	assert.Nil(t, summary.SkippedByReason)
}

func TestImport_RequiresOwner(t *testing.T) {
	data := buildWorkbook(t, sheet{name: "Data", rows: [][]any{header}})

	_, err := NewImporter(entry.NewMemoryStore()).Import(context.Background(), ImportRequest{
		Data: data, Sheet: "Data", Owner: "  ",
	})
	assert.ErrorIs(t, err, ErrMissingField)
}

// failingStore rejects every nth Create call.
type failingStore struct {
	*entry.MemoryStore
	calls int
	every int
}

func (s *failingStore) Create(ctx context.Context, actor string, n entry.NewEntry) (entry.Entry, error) {
	s.calls++
	if s.calls%s.every == 0 {
		return entry.Entry{}, errors.New("connection reset by peer")
	}
	return s.MemoryStore.Create(ctx, actor, n)
}

func TestImport_StoreFailureSkipsRowAndContinues(t *testing.T) {
	store := &failingStore{MemoryStore: entry.NewMemoryStore(), every: 2}
	data := buildWorkbook(t, sheet{name: "Data", rows: [][]any{
		header,
		{"2024-01-15", "Inflow", "One", 1},
		{"2024-01-16", "Inflow", "Two", 2},
		{"2024-01-17", "Inflow", "Three", 3},
	}})

	summary, err := NewImporter(store).Import(context.Background(), ImportRequest{
		Data: data, Sheet: "Data", Owner: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.SkippedByReason[SkipRejected])
}

func TestProcessRow_Reasons(t *testing.T) {
	im := NewImporter(entry.NewMemoryStore())
	ctx := context.Background()

	text := func(vals ...string) []Cell {
		row := make([]Cell, len(vals))
		for i, v := range vals {
			row[i] = Cell{Value: v}
		}
		return row
	}

	tests := []struct {
		name string
		row  []Cell
		want SkipReason
	}{
		{"nil row", nil, SkipEmptyRow},
		{"blank cells", text("", " ", "", ""), SkipEmptyRow},
		{"two cells", text("2024-01-01", "inflow"), SkipShortRow},
		{"blank amount", text("2024-01-01", "inflow", "x", " "), SkipMissingField},
		{"blank type", text("2024-01-01", "", "x", "1"), SkipMissingField},
		{"bad date", text("2024-13-45", "inflow", "x", "1"), SkipBadDate},
		{"bad amount", text("2024-01-01", "inflow", "x", "1,5"), SkipBadAmount},
		{"unknown type", text("2024-01-01", "refund", "x", "1"), SkipRejected},
		{"imported", text("2024-01-01", "inflow", "x", "1"), ""},
		{"native date", []Cell{{Time: date(2024, 5, 1), IsDate: true}, {Value: "Outflow"}, {Value: "x"}, {Value: "2"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := im.processRow(ctx, "alice", "imp-1", 2, tt.row)
			assert.Equal(t, tt.want, got.Reason)
			assert.Equal(t, 2, got.Row)
		})
	}
}

// cancellingStore cancels the caller's context after the first Create.
type cancellingStore struct {
	*entry.MemoryStore
	cancel context.CancelFunc
}

func (s *cancellingStore) Create(ctx context.Context, actor string, n entry.NewEntry) (entry.Entry, error) {
	e, err := s.MemoryStore.Create(ctx, actor, n)
	s.cancel()
	return e, err
}

func TestImport_CallerCancelDoesNotSkipRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancellingStore{MemoryStore: entry.NewMemoryStore(), cancel: cancel}
	data := buildWorkbook(t, sheet{name: "Data", rows: [][]any{
		header,
		{"2024-01-15", "Inflow", "One", 1},
		{"2024-01-16", "Inflow", "Two", 2},
		{"2024-01-17", "Inflow", "Three", 3},
	}})

	summary, err := NewImporter(store).Import(ctx, ImportRequest{
		Data: data, Sheet: "Data", Owner: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Imported)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, 3, store.Len())
}

func TestImport_TimeOnlyCellIsBadDate(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Data"))
	for i, row := range [][]any{
		header,
		{0.5, "Outflow", "Noon", 10},
		{45000.25, "Outflow", "Clock", 11},
		{45000, "Inflow", "Custom", 12},
		{45001, "Inflow", "Builtin", 13},
	} {
		require.NoError(t, f.SetSheetRow("Data", fmt.Sprintf("A%d", i+1), &row))
	}

	timeOnly, err := f.NewStyle(&excelize.Style{NumFmt: 20}) // h:mm
	require.NoError(t, err)
	custom := "dd/mm/yyyy"
	dayFirst, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	require.NoError(t, err)
	builtin, err := f.NewStyle(&excelize.Style{NumFmt: 14}) // m/d/yy
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Data", "A2", "A3", timeOnly))
	require.NoError(t, f.SetCellStyle("Data", "A4", "A4", dayFirst))
	require.NoError(t, f.SetCellStyle("Data", "A5", "A5", builtin))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	store := entry.NewMemoryStore()
	summary, err := NewImporter(store).Import(context.Background(), ImportRequest{
		Data: buf.Bytes(), Sheet: "Data", Owner: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, map[SkipReason]int{SkipBadDate: 2}, summary.SkippedByReason)

	entries, err := store.List(context.Background(), entry.ListFilter{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byDesc := map[string]entry.Entry{entries[0].Description: entries[0], entries[1].Description: entries[1]}
	assert.Equal(t, date(2023, 3, 15), byDesc["Custom"].Date)
	assert.Equal(t, date(2023, 3, 16), byDesc["Builtin"].Date)
}

func TestImport_TrailingBlankRowsAreNotCounted(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Data"))
	for i, row := range [][]any{
		header,
		{"2024-01-15", "Inflow", "One", 1},
		nil,
		{"2024-01-17", "Inflow", "Three", 3},
	} {
		if row == nil {
			continue
		}
		require.NoError(t, f.SetSheetRow("Data", fmt.Sprintf("A%d", i+1), &row))
	}
	// Formatted but empty rows after the data.
	require.NoError(t, f.SetRowHeight("Data", 8, 30))
	require.NoError(t, f.SetRowHeight("Data", 9, 30))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	summary, err := NewImporter(entry.NewMemoryStore()).Import(context.Background(), ImportRequest{
		Data: buf.Bytes(), Sheet: "Data", Owner: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, map[SkipReason]int{SkipEmptyRow: 1}, summary.SkippedByReason)
}

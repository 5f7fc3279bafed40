package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/dailyfinance/internal/config"
	"github.com/JonMunkholm/dailyfinance/internal/core"
	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
		},
		Rate: config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{
			EnableCSP:    true,
			APIKeys:      []string{"alice:key-a", "bob:key-b"},
			DefaultOwner: "local",
		},
		Display: config.DisplayConfig{Currency: "USD"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *entry.MemoryStore) {
	t.Helper()
	store := entry.NewMemoryStore()
	srv := NewServer(core.NewService(store, cfg), cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// workbook builds an .xlsx with the given sheets, each holding rows.
func workbook(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		part, err := mw.CreateFormFile("file", "finance.xlsx")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var header = []any{"Date", "Type", "Description", "Amount"}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestEntryFormPage(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/my/finance-tracker", rec.Header().Get("Location"))

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/my/finance-tracker", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="`+time.Now().Format("2006-01-02")+`"`)
	assert.Contains(t, body, `<option value="inflow">Inflow</option>`)
	assert.Contains(t, body, `<option value="outflow">Outflow</option>`)
	assert.Contains(t, body, "Signed in as local")
}

func TestStaticScript(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/static/form.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/finance/submit")
}

func TestSubmit(t *testing.T) {
	srv, store := newTestServer(t, testConfig())

	body := `{"entries":[
		{"date":"2024-01-15","type":"Inflow","description":"Salary","amount":1500},
		{"date":"2024-01-16","type":"outflow","description":"Rent","amount":"900"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/finance/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "key-a")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.SubmitResult
	decode(t, rec, &result)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 2, result.Created)

	entries, err := store.List(context.Background(), entry.ListFilter{Owner: "alice"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSubmit_JSONRPCParams(t *testing.T) {
	srv, store := newTestServer(t, testConfig())

	body := `{"jsonrpc":"2.0","params":{"entries":[{"date":"2024-01-15","type":"inflow","description":"Gift","amount":"5"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/finance/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, store.Len())
}

func TestSubmit_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"not json", `entries=1`, "REQ001"},
		{"no entries", `{"entries":[]}`, "VAL005"},
		{"non-numeric amount", `{"entries":[{"date":"2024-01-15","type":"inflow","description":"x","amount":"ten"}]}`, "VAL002"},
		{"missing date", `{"entries":[{"type":"inflow","description":"x","amount":"1"}]}`, "VAL003"},
		{"bad date", `{"entries":[{"date":"someday","type":"inflow","description":"x","amount":"1"}]}`, "VAL001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, store := newTestServer(t, testConfig())
			req := httptest.NewRequest(http.MethodPost, "/finance/submit", strings.NewReader(tt.body))
			rec := do(t, srv, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
			assert.Zero(t, store.Len())
		})
	}
}

func TestImportWizard(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	data := workbook(t, map[string][][]any{
		"Jan 2024": {header, {"2024-01-15", "Inflow", "Salary", 1500}},
		"Feb 2024": {
			header,
			{"2024-02-01", "Inflow", "Salary", 1500},
			{"2024-02-02", "Outflow", "Rent", 900},
			{"bad", "Outflow", "Lunch", 12},
		},
	}, "Jan 2024", "Feb 2024")

	rec := do(t, srv, uploadRequest(t, "/api/import/sheets", data, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sheets sheetsResponse
	decode(t, rec, &sheets)
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, sheets.Sheets)
	assert.Equal(t, "Jan 2024", sheets.Selected)
	assert.Equal(t, "Available sheets: Jan 2024, Feb 2024", sheets.Message)

	req := uploadRequest(t, "/api/import", data, map[string]string{"sheet": "Feb 2024"})
	req.Header.Set("X-API-Key", "key-b")
	rec = do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		ImportID   string         `json:"import_id"`
		Sheet      string         `json:"sheet_used"`
		Imported   int            `json:"imported_count"`
		Skipped    int            `json:"skipped_count"`
		ByReason   map[string]int `json:"skipped_by_reason"`
		EntriesURL string         `json:"entries_url"`
	}
	decode(t, rec, &summary)
	assert.Equal(t, "Feb 2024", summary.Sheet)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.ByReason["bad_date"])
	assert.Equal(t, "/entries?import="+summary.ImportID, summary.EntriesURL)

	// Entries belong to bob and are listed by import.
	req = httptest.NewRequest(http.MethodGet, "/api/entries?import="+summary.ImportID, nil)
	req.Header.Set("X-API-Key", "key-b")
	rec = do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Entries []entryJSON `json:"entries"`
		Count   int         `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "2024-02-02", list.Entries[0].Date)
	assert.Equal(t, "outflow", list.Entries[0].Type)
	assert.Equal(t, "bob", list.Entries[0].Owner)

	// The default owner sees nothing.
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/entries", nil))
	decode(t, rec, &list)
	assert.Zero(t, list.Count)

	// HTML listing for the import.
	req = httptest.NewRequest(http.MethodGet, summary.EntriesURL, nil)
	req.Header.Set("X-API-Key", "key-b")
	rec = do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rent")
	assert.Contains(t, rec.Body.String(), "$900.00")
	assert.Contains(t, rec.Body.String(), "$600.00")
}

func TestImport_Errors(t *testing.T) {
	data := workbook(t, map[string][][]any{
		"Jan 2024": {{"Date", "Type", "Desc", "Amount"}},
	}, "Jan 2024")

	tests := []struct {
		name       string
		data       []byte
		sheet      string
		wantStatus int
		wantCode   string
		wantText   string
	}{
		{"malformed", []byte("not a workbook"), "Jan 2024", http.StatusBadRequest, "FILE002", "Malformed"},
		{"sheet not found", data, "March", http.StatusBadRequest, "SHEET001", "Available sheets: Jan 2024"},
		{"schema mismatch", data, "Jan 2024", http.StatusBadRequest, "SCHEMA001", `expected "Description", found "Desc"`},
		{"no file", nil, "Jan 2024", http.StatusBadRequest, "FILE004", "No file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, store := newTestServer(t, testConfig())
			rec := do(t, srv, uploadRequest(t, "/api/import", tt.data, map[string]string{"sheet": tt.sheet}))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Contains(t, resp.Message, tt.wantText)
			assert.Zero(t, store.Len())
		})
	}
}

func TestImport_IgnoresRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestTimeout = time.Nanosecond
	srv, store := newTestServer(t, cfg)
	data := workbook(t, map[string][][]any{
		"Jan 2024": {
			header,
			{"2024-01-01", "Inflow", "Salary", 1500},
			{"2024-01-02", "Outflow", "Rent", 900},
			{"2024-01-03", "Outflow", "Lunch", 12},
		},
	}, "Jan 2024")

	rec := do(t, srv, uploadRequest(t, "/api/import", data, map[string]string{"sheet": "Jan 2024"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary struct {
		Imported int `json:"imported_count"`
		Skipped  int `json:"skipped_count"`
	}
	decode(t, rec, &summary)
	assert.Equal(t, 3, summary.Imported)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, 3, store.Len())
}

func TestImport_FileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	srv, _ := newTestServer(t, cfg)

	rec := do(t, srv, uploadRequest(t, "/api/import/sheets", bytes.Repeat([]byte("x"), 128), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "FILE001", resp.Code)
}

func TestImport_HTMXFragment(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	data := workbook(t, map[string][][]any{
		"Data": {header, {"2024-01-15", "Inflow", "Salary", 1500}, {"2024-01-16", "Inflow", "Bonus"}},
	}, "Data")

	req := uploadRequest(t, "/api/import", data, map[string]string{"sheet": "Data"})
	req.Header.Set("HX-Request", "true")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Imported 1 entries from Data")
	assert.Contains(t, body, "short_row: 1")

	req = uploadRequest(t, "/api/import", data, map[string]string{"sheet": "Nope"})
	req.Header.Set("HX-Request", "true")
	rec = do(t, srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "SHEET001")
}

func TestReport(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	body := `{"entries":[
		{"date":"2024-01-15","type":"inflow","description":"Salary","amount":"1500.10"},
		{"date":"2024-01-16","type":"outflow","description":"Rent","amount":"900.05"}
	]}`
	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/finance/submit", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Count     int               `json:"count"`
		Net       string            `json:"net"`
		Currency  string            `json:"currency"`
		Formatted map[string]string `json:"formatted"`
	}
	decode(t, rec, &report)
	assert.Equal(t, 2, report.Count)
	assert.Equal(t, "600.05", report.Net)
	assert.Equal(t, "USD", report.Currency)
	assert.Equal(t, "$1,500.10", report.Formatted["inflow"])
	assert.Equal(t, "$600.05", report.Formatted["net"])
}

func TestAuthRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	srv, _ := newTestServer(t, cfg)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/entries", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = do(t, srv, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Health stays public.
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	srv, _ := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "RATE001", resp.Code)
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Imports core.ImportLimiterStatus `json:"imports"`
	}
	decode(t, rec, &status)
	assert.Equal(t, 2, status.Imports.MaxConcurrent)
	assert.Equal(t, 2, status.Imports.Available)
}

func TestHistory(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	body := `{"entries":[{"date":"2024-01-15","type":"inflow","description":"Salary","amount":"1500"}]}`
	req := httptest.NewRequest(http.MethodPost, "/finance/submit", strings.NewReader(body))
	req.Header.Set("X-API-Key", "key-a")
	req.Header.Set("User-Agent", "history-test")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("X-API-Key", "key-a")
	rec = do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var history struct {
		History []entry.AuditEntry `json:"history"`
		Count   int                `json:"count"`
	}
	decode(t, rec, &history)
	require.Equal(t, 1, history.Count)
	assert.Equal(t, entry.ActionSubmit, history.History[0].Action)
	assert.Equal(t, "alice", history.History[0].Owner)
	assert.Equal(t, 1, history.History[0].Created)
	assert.Equal(t, "192.0.2.1", history.History[0].IPAddress)
	assert.Equal(t, "history-test", history.History[0].UserAgent)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	decode(t, rec, &history)
	assert.Zero(t, history.Count)
}

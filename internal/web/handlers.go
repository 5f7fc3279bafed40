package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JonMunkholm/dailyfinance/internal/core"
	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/JonMunkholm/dailyfinance/internal/web/templates"
)

// maxSubmitBody bounds the JSON body of a form submission.
const maxSubmitBody = 1 << 20

// defaultListLimit bounds listings that do not ask for a limit.
const defaultListLimit = 500

var errNoFile = errors.New("no file provided")

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIndex redirects to the record page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/my/finance-tracker", http.StatusFound)
}

// handleEntryForm renders the entry form with today's date pre-filled.
func (s *Server) handleEntryForm(w http.ResponseWriter, r *http.Request) {
	params := templates.EntryFormParams{
		Today: time.Now().Format(entry.DateLayout),
		Owner: actor(r),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.Layout("Daily finance", templates.EntryForm(params)).Render(r.Context(), w)
}

// submitRequest is the form submission body. Entries may be sent at the top
// level or inside a JSON-RPC style "params" object.
type submitRequest struct {
	Entries []core.EntryPayload `json:"entries"`
	Params  *struct {
		Entries []core.EntryPayload `json:"entries"`
	} `json:"params"`
}

func (req submitRequest) payloads() []core.EntryPayload {
	if len(req.Entries) == 0 && req.Params != nil {
		return req.Params.Entries
	}
	return req.Entries
}

// handleSubmit creates the entries of one form submission.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBody)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: body must be JSON like {\"entries\": [...]}", core.ErrInvalidRequest))
		return
	}

	result, err := s.service.Submit(r.Context(), actor(r), req.payloads())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	requestLogger(r).Info("entries submitted", "created", result.Created)
	writeJSON(w, http.StatusOK, result)
}

// readUpload reads the "file" field of a multipart upload, bounded by the
// configured maximum file size.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	// Allow some room for the multipart envelope and other fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", nil, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return "", nil, fmt.Errorf("%w: expected a multipart form", core.ErrInvalidRequest)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errNoFile
	}
	defer file.Close()

	if header.Size > maxSize {
		return "", nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", core.ErrFileTooLarge, header.Size, maxSize)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, data, nil
}

func (s *Server) uploadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errNoFile) {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	s.respondError(w, r, err)
}

// sheetsResponse is the first step of the import wizard.
type sheetsResponse struct {
	Sheets   []string `json:"sheets"`
	Selected string   `json:"selected"`
	Message  string   `json:"message"`
}

// handleDiscoverSheets lists the sheets of an uploaded workbook.
func (s *Server) handleDiscoverSheets(w http.ResponseWriter, r *http.Request) {
	_, data, err := s.readUpload(w, r)
	if err != nil {
		s.uploadError(w, r, err)
		return
	}

	list, err := s.service.DiscoverSheets(r.Context(), data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sheetsResponse{
		Sheets:   list.Sheets,
		Selected: list.Selected,
		Message:  list.Message(),
	})
}

// importResponse is the import summary plus a link to the created entries.
type importResponse struct {
	*core.ImportSummary
	EntriesURL string `json:"entries_url"`
}

// handleImport imports the selected sheet of an uploaded workbook.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.uploadError(w, r, err)
		return
	}

	summary, err := s.service.Import(r.Context(), core.ImportRequest{
		Data:     data,
		FileName: name,
		Sheet:    r.FormValue("sheet"),
		Owner:    actor(r),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	entriesURL := "/entries?import=" + url.QueryEscape(summary.ImportID)
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ImportResult(summary, entriesURL).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{ImportSummary: summary, EntriesURL: entriesURL})
}

// listFilter builds the entry filter from query parameters.
func listFilter(r *http.Request) entry.ListFilter {
	return entry.ListFilter{
		Owner:    actor(r),
		ImportID: r.URL.Query().Get("import"),
		Limit:    parseIntParam(r, "limit", defaultListLimit),
	}
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// handleEntriesPage renders the owner's entries.
func (s *Server) handleEntriesPage(w http.ResponseWriter, r *http.Request) {
	filter := listFilter(r)

	entries, err := s.service.ListEntries(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	totals, err := s.service.Report(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	params := templates.EntryListParams{
		Entries:  entries,
		Totals:   totals,
		Currency: s.cfg.Display.Currency,
		ImportID: filter.ImportID,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.Layout("Entries", templates.EntryList(params)).Render(r.Context(), w)
}

// entryJSON is the API representation of an entry.
type entryJSON struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Owner       string  `json:"owner"`
	ImportID    string  `json:"import_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toEntryJSON(e entry.Entry) entryJSON {
	return entryJSON{
		ID:          e.ID,
		Date:        e.DateString(),
		Type:        string(e.Kind),
		Description: e.Description,
		Amount:      e.Amount,
		Owner:       e.Owner,
		ImportID:    e.ImportID,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleListEntries returns the owner's entries as JSON.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListEntries(r.Context(), listFilter(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = toEntryJSON(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": out,
		"count":   len(out),
	})
}

// reportResponse carries exact totals and their display strings.
type reportResponse struct {
	entry.Totals
	Currency  string            `json:"currency"`
	Formatted map[string]string `json:"formatted"`
}

// handleReport returns inflow, outflow and net totals.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.Report(r.Context(), listFilter(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	currency := s.cfg.Display.Currency
	writeJSON(w, http.StatusOK, reportResponse{
		Totals:   totals,
		Currency: currency,
		Formatted: map[string]string{
			"inflow":  entry.FormatAmount(totals.Inflow, currency),
			"outflow": entry.FormatAmount(totals.Outflow, currency),
			"net":     entry.FormatAmount(totals.Net, currency),
		},
	})
}

// handleHistory returns the owner's recent imports and submissions.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.History(r.Context(), actor(r), parseIntParam(r, "limit", core.DefaultHistoryLimit))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": history,
		"count":   len(history),
	})
}

// handleStatus reports import limiter state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"imports": s.service.LimiterStatus(),
	})
}

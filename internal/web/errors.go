package web

// Errors reach clients through respondError. The technical error is logged
// with the request id; the client sees core.MapError's message as an HTMX
// fragment, JSON, or plain text depending on the request.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dailyfinance/internal/core"
	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/JonMunkholm/dailyfinance/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrAuditUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, core.ErrMalformedFile),
		errors.Is(err, core.ErrSheetNotFound),
		errors.Is(err, core.ErrSchemaMismatch),
		errors.Is(err, core.ErrMissingField),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrNoEntries),
		errors.Is(err, entry.ErrInvalidEntry),
		errors.Is(err, entry.ErrOwnerRequired),
		errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError handles error responses with user-friendly messages, picking
// the status from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusFor(err))
}

// respondErrorStatus logs the technical error server-side and returns an
// appropriate response based on the request type (HTMX, JSON, or HTML).
func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := requestLogger(r)
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusCode)
		templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
	case wantsJSON(r):
		writeJSON(w, statusCode, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON is true for JSON requests, clients accepting JSON, the /api/
// tree and the form endpoint.
func wantsJSON(r *http.Request) bool {
	for _, h := range []string{"Accept", "Content-Type"} {
		if strings.Contains(r.Header.Get(h), "application/json") {
			return true
		}
	}
	return strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/finance/submit"
}

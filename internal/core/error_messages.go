package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// Import and submission errors are matched first by identity (errors.Is).
// For those the message carries the error's own detail (available sheets,
// expected vs. found column, offending entry) so the user can fix the file
// without consulting logs. Everything else falls through to a
// case-insensitive substring table of database and transport failures.
//
// Codes:
//
//	FILE001 file too large        FILE002 malformed spreadsheet
//	SHEET001 sheet not found      SCHEMA001 header mismatch
//	VAL001 invalid date           VAL002 invalid amount
//	VAL003 missing field          VAL004 invalid entry (store rejected)
//	VAL005 no entries submitted   REQ001 undecodable request
//	UPL002 too many imports       UPL004 request cancelled
//	UPL005 request timed out      AUD001 no activity log
//	DB001-DB007 database failures
//	AUTH001 missing API key       AUTH002 invalid API key
//	RATE001 rate limited          ERR000 unknown

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dailyfinance/internal/entry"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// ErrMissingAPIKey and ErrInvalidAPIKey are reported by the auth layer.
var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// errorKind maps a sentinel to its message. detail controls whether the
// error text itself becomes the message.
type errorKind struct {
	target error
	detail bool
	msg    UserMessage
}

var errorKinds = []errorKind{
	{
		target: ErrFileTooLarge,
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the workbook into smaller files",
			Code:    "FILE001",
		},
	},
	{
		target: ErrMalformedFile,
		detail: true,
		msg: UserMessage{
			Action: "Upload an Excel workbook saved as .xlsx",
			Code:   "FILE002",
		},
	},
	{
		target: ErrSheetNotFound,
		detail: true,
		msg: UserMessage{
			Action: "Choose one of the available sheets",
			Code:   "SHEET001",
		},
	},
	{
		target: ErrSchemaMismatch,
		detail: true,
		msg: UserMessage{
			Action: "The first row must be: " + strings.Join(ExpectedColumns, ", "),
			Code:   "SCHEMA001",
		},
	},
	{
		target: ErrInvalidDate,
		detail: true,
		msg: UserMessage{
			Action: "Use YYYY-MM-DD, MM/DD/YYYY or DD/MM/YYYY",
			Code:   "VAL001",
		},
	},
	{
		target: ErrInvalidAmount,
		detail: true,
		msg: UserMessage{
			Action: "Enter the amount as a plain number, e.g. 1250.50",
			Code:   "VAL002",
		},
	},
	{
		target: ErrMissingField,
		detail: true,
		msg: UserMessage{
			Action: "Fill in date, type, description and amount",
			Code:   "VAL003",
		},
	},
	{
		target: entry.ErrInvalidEntry,
		detail: true,
		msg: UserMessage{
			Action: "Check the highlighted field and try again",
			Code:   "VAL004",
		},
	},
	{
		target: entry.ErrOwnerRequired,
		detail: true,
		msg: UserMessage{
			Action: "Sign in and try again",
			Code:   "VAL004",
		},
	},
	{
		target: ErrNoEntries,
		msg: UserMessage{
			Message: "No entries were submitted",
			Action:  "Please fill at least one valid record",
			Code:    "VAL005",
		},
	},
	{
		target: ErrInvalidRequest,
		detail: true,
		msg: UserMessage{
			Action: "Check the request format and try again",
			Code:   "REQ001",
		},
	},
	{
		target: ErrAuditUnavailable,
		msg: UserMessage{
			Message: "Activity history is not available",
			Action:  "Contact your administrator",
			Code:    "AUD001",
		},
	},
	{
		target: ErrTooManyImports,
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "UPL005",
		},
	},
	{
		target: ErrMissingAPIKey,
		msg: UserMessage{
			Message: "Authentication required",
			Action:  "Send your API key in the X-API-Key header",
			Code:    "AUTH001",
		},
	},
	{
		target: ErrInvalidAPIKey,
		msg: UserMessage{
			Message: "Invalid API key",
			Action:  "Check the key or ask an administrator for a new one",
			Code:    "AUTH002",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates check constraint",
		msg: UserMessage{
			Message: "The entry was rejected by the database",
			Action:  "Check the entry type and description",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an .xlsx file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		msg := k.msg
		if k.detail {
			msg.Message = userDetail(err)
		}
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// userDetail capitalizes the error text for display.
func userDetail(err error) string {
	s := err.Error()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

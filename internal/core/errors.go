package core

import (
	"errors"
	"fmt"
	"strings"
)

// Structural import errors. Any of these aborts the whole import call.
var (
	ErrMalformedFile  = errors.New("malformed spreadsheet")
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrFileTooLarge   = errors.New("file too large")
)

// Single-entry submission errors. Any of these fails the whole submission.
var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrNoEntries     = errors.New("no entries submitted")
)

// ErrInvalidRequest marks a request body or form that could not be decoded.
var ErrInvalidRequest = errors.New("invalid request")

// MalformedFileError carries the parser failure behind ErrMalformedFile.
type MalformedFileError struct {
	Cause error
}

func (e *MalformedFileError) Error() string {
	if e.Cause == nil {
		return "malformed spreadsheet: file could not be read as .xlsx"
	}
	return fmt.Sprintf("malformed spreadsheet: %v", e.Cause)
}

func (e *MalformedFileError) Is(target error) bool { return target == ErrMalformedFile }

func (e *MalformedFileError) Unwrap() error { return e.Cause }

// SheetNotFoundError reports a selection that matched no discovered sheet.
type SheetNotFoundError struct {
	Requested string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet not found: %q. Available sheets: %s",
		e.Requested, strings.Join(e.Available, ", "))
}

func (e *SheetNotFoundError) Unwrap() error { return ErrSheetNotFound }

// SchemaMismatchError reports a header row that does not match ExpectedColumns.
// Column is 1-based; zero means the row was too short.
type SchemaMismatchError struct {
	Column   int
	Expected string
	Found    string

	MinColumns   int
	FoundColumns int
	FoundHeader  []string // set for a short header
}

func (e *SchemaMismatchError) Error() string {
	if e.Column == 0 {
		msg := fmt.Sprintf("schema mismatch: header needs at least %d columns (%s), found %d",
			e.MinColumns, strings.Join(ExpectedColumns, ", "), e.FoundColumns)
		if len(e.FoundHeader) > 0 {
			msg += " (" + strings.Join(e.FoundHeader, ", ") + ")"
		}
		return msg
	}
	return fmt.Sprintf("schema mismatch: column %d expected %q, found %q",
		e.Column, e.Expected, e.Found)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

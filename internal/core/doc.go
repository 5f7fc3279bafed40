// Package core provides the business logic for recording daily finance
// entries: the spreadsheet import wizard and interactive form submission.
//
// This package has no UI dependencies. It is used by the web handlers and
// by the financectl command without modification.
//
// # Import Flow
//
//  1. [Service.DiscoverSheets] parses the upload and lists its sheets,
//     selecting the first. Nothing is written.
//  2. [Service.Import] resolves the chosen sheet (trimmed, case-sensitive),
//     validates the header against [ExpectedColumns] and processes every
//     data row in order.
//  3. Each row yields a [RowResult]: imported, or skipped with a
//     [SkipReason]. Skips never stop the import.
//  4. An [ImportSummary] with imported and skipped counts is returned.
//
// The parsed workbook is closed before Import returns, on success and on
// every failure path.
//
// Importing the same file twice creates the entries twice; there is no
// duplicate detection across imports.
//
// # Ownership
//
// The acting user is always passed explicitly (ImportRequest.Owner, the
// actor argument of [Service.Submit]) and becomes the owner of every entry
// created by that call.
//
// # Activity Log
//
// When the store also implements [entry.AuditLog], every successful import
// and submission is recorded with the caller's address from
// [ContextWithClient]. [Service.History] lists it and
// [Service.StartAuditPruner] enforces retention.
//
// # Error Handling
//
// Structural errors abort the call: [ErrMalformedFile], [ErrSheetNotFound],
// [ErrSchemaMismatch], [ErrFileTooLarge]. Form submissions fail as a whole
// with [ErrMissingField], [ErrInvalidAmount] or [ErrInvalidDate].
// [MapError] turns any of them into a [UserMessage] with a support code.
package core

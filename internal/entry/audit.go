package entry

import (
	"context"
	"time"
)

// AuditAction is the kind of write recorded in the activity log.
type AuditAction string

const (
	ActionImport AuditAction = "import"
	ActionSubmit AuditAction = "submit"
)

// AuditEntry records one import or form submission.
type AuditEntry struct {
	ID        string      `json:"id"`
	Action    AuditAction `json:"action"`
	Owner     string      `json:"owner"`
	ImportID  string      `json:"import_id,omitempty"`
	FileName  string      `json:"file_name,omitempty"`
	Sheet     string      `json:"sheet,omitempty"`
	Created   int         `json:"created"`
	Skipped   int         `json:"skipped"`
	IPAddress string      `json:"ip_address,omitempty"`
	UserAgent string      `json:"user_agent,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuditLog persists the activity log. MemoryStore and PostgresStore both
// implement it alongside Store.
type AuditLog interface {
	RecordAudit(ctx context.Context, e AuditEntry) (AuditEntry, error)
	// ListAudit returns the owner's activity, newest first. A limit of
	// zero or less returns everything.
	ListAudit(ctx context.Context, owner string, limit int) ([]AuditEntry, error)
	// PurgeAudit deletes activity recorded before cutoff and returns the
	// number of rows removed.
	PurgeAudit(ctx context.Context, before time.Time) (int64, error)
}

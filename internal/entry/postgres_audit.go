package entry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditSQL = `
INSERT INTO finance_audit_log
    (id, action, owner, import_id, file_name, sheet, created, skipped, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at`

// RecordAudit inserts e into finance_audit_log.
func (s *PostgresStore) RecordAudit(ctx context.Context, e AuditEntry) (AuditEntry, error) {
	if e.Owner == "" {
		return AuditEntry{}, ErrOwnerRequired
	}
	importID, err := toPgUUID(e.ImportID)
	if err != nil {
		return AuditEntry{}, &ValidationError{Field: "import_id", Message: "must be a UUID"}
	}

	id := uuid.New()
	err = s.db.QueryRow(ctx, insertAuditSQL,
		pgtype.UUID{Bytes: id, Valid: true},
		string(e.Action),
		e.Owner,
		importID,
		e.FileName,
		e.Sheet,
		e.Created,
		e.Skipped,
		e.IPAddress,
		e.UserAgent,
	).Scan(&e.CreatedAt)
	if err != nil {
		return AuditEntry{}, fmt.Errorf("insert audit entry: %w", err)
	}
	e.ID = id.String()
	return e, nil
}

const listAuditSQL = `
SELECT id, action, owner, import_id, file_name, sheet, created, skipped, ip_address, user_agent, created_at
FROM finance_audit_log
WHERE owner = $1
ORDER BY created_at DESC
LIMIT NULLIF($2, 0)`

// ListAudit returns the owner's activity, newest first.
func (s *PostgresStore) ListAudit(ctx context.Context, owner string, limit int) ([]AuditEntry, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	if limit < 0 {
		limit = 0
	}

	rows, err := s.db.Query(ctx, listAuditSQL, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanAudit)
	if err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

// PurgeAudit deletes activity recorded before cutoff.
func (s *PostgresStore) PurgeAudit(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM finance_audit_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAudit(row pgx.CollectableRow) (AuditEntry, error) {
	var (
		e        AuditEntry
		id       pgtype.UUID
		action   string
		importID pgtype.UUID
	)
	err := row.Scan(&id, &action, &e.Owner, &importID, &e.FileName, &e.Sheet,
		&e.Created, &e.Skipped, &e.IPAddress, &e.UserAgent, &e.CreatedAt)
	if err != nil {
		return AuditEntry{}, err
	}
	e.ID = pgUUIDToString(id)
	e.Action = AuditAction(action)
	e.ImportID = pgUUIDToString(importID)
	return e, nil
}

package entry

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresStore persists entries in the finance_entries table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore wraps a pool or transaction.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the finance_entries table and indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertEntrySQL = `
INSERT INTO finance_entries (id, entry_date, kind, description, amount, owner, import_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`

// Create validates n and inserts it as a single row.
func (s *PostgresStore) Create(ctx context.Context, actor string, n NewEntry) (Entry, error) {
	n, err := prepare(actor, n)
	if err != nil {
		return Entry{}, err
	}

	importID, err := toPgUUID(n.ImportID)
	if err != nil {
		return Entry{}, &ValidationError{Field: "import_id", Message: "must be a UUID"}
	}

	id := uuid.New()
	var createdAt time.Time
	err = s.db.QueryRow(ctx, insertEntrySQL,
		pgtype.UUID{Bytes: id, Valid: true},
		pgtype.Date{Time: n.Date, Valid: true},
		string(n.Kind),
		n.Description,
		n.Amount,
		n.Owner,
		importID,
	).Scan(&createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	return Entry{
		ID:          id.String(),
		Date:        n.Date,
		Kind:        n.Kind,
		Description: n.Description,
		Amount:      n.Amount,
		Owner:       n.Owner,
		ImportID:    n.ImportID,
		CreatedAt:   createdAt,
	}, nil
}

// List returns the owner's entries ordered by date descending.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	if filter.Owner == "" {
		return nil, ErrOwnerRequired
	}

	var b strings.Builder
	b.WriteString(`SELECT id, entry_date, kind, description, amount, owner, import_id, created_at
FROM finance_entries WHERE owner = $1`)
	args := []interface{}{filter.Owner}

	if filter.ImportID != "" {
		importID, err := toPgUUID(filter.ImportID)
		if err != nil {
			return nil, &ValidationError{Field: "import_id", Message: "must be a UUID"}
		}
		args = append(args, importID)
		fmt.Fprintf(&b, " AND import_id = $%d", len(args))
	}

	b.WriteString(" ORDER BY entry_date DESC, created_at DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.CollectableRow) (Entry, error) {
	var (
		id        pgtype.UUID
		date      pgtype.Date
		kind      string
		desc      string
		amount    float64
		owner     string
		importID  pgtype.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &date, &kind, &desc, &amount, &owner, &importID, &createdAt); err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:          pgUUIDToString(id),
		Date:        date.Time,
		Kind:        Kind(kind),
		Description: desc,
		Amount:      amount,
		Owner:       owner,
		ImportID:    pgUUIDToString(importID),
		CreatedAt:   createdAt,
	}, nil
}

// toPgUUID converts a string to pgtype.UUID. Empty input is a NULL UUID.
func toPgUUID(s string) (pgtype.UUID, error) {
	if s == "" {
		return pgtype.UUID{Valid: false}, nil
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func pgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

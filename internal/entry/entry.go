// Package entry owns the finance entry records: the domain type, its
// validation rules, and the stores that persist and list entries.
//
// Validation runs inside every store's Create, independently of whatever the
// caller already checked, so a store never persists an entry with a missing
// date, kind, description, amount, or owner.
package entry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind is the direction of money movement for an entry.
type Kind string

const (
	KindInflow  Kind = "inflow"
	KindOutflow Kind = "outflow"
)

// Kinds lists the canonical kinds in lookup order.
var Kinds = []Kind{KindInflow, KindOutflow}

// Valid reports whether k is one of the canonical kinds.
func (k Kind) Valid() bool {
	return k == KindInflow || k == KindOutflow
}

// Label returns the display name ("Inflow", "Outflow").
func (k Kind) Label() string {
	switch k {
	case KindInflow:
		return "Inflow"
	case KindOutflow:
		return "Outflow"
	default:
		return string(k)
	}
}

// ErrInvalidEntry is the sentinel wrapped by every ValidationError.
var ErrInvalidEntry = errors.New("invalid entry")

// ValidationError describes a single field that failed store-side validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entry: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEntry
}

// Entry is a persisted daily inflow/outflow record.
type Entry struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Kind        Kind      `json:"type"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Owner       string    `json:"owner"`
	ImportID    string    `json:"import_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DateString formats the entry date as YYYY-MM-DD.
func (e Entry) DateString() string {
	return e.Date.Format(DateLayout)
}

// DateLayout is the canonical calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// NewEntry carries the fields needed to create an entry.
// Owner may be empty, in which case the acting user passed to Create is used.
type NewEntry struct {
	Date        time.Time
	Kind        Kind
	Description string
	Amount      float64
	Owner       string
	ImportID    string
}

// Validate checks the required fields. It does not consider the owner,
// which is resolved by WithOwner before persistence.
func (n NewEntry) Validate() error {
	if n.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	if n.Kind == "" {
		return &ValidationError{Field: "type", Message: "is required"}
	}
	if !n.Kind.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("must be inflow or outflow, got %q", string(n.Kind))}
	}
	if strings.TrimSpace(n.Description) == "" {
		return &ValidationError{Field: "description", Message: "is required"}
	}
	if math.IsNaN(n.Amount) || math.IsInf(n.Amount, 0) {
		return &ValidationError{Field: "amount", Message: "must be a finite number"}
	}
	return nil
}

// WithOwner returns a copy of n with the owner defaulted to actor and the
// date truncated to a calendar day.
func (n NewEntry) WithOwner(actor string) (NewEntry, error) {
	if strings.TrimSpace(n.Owner) == "" {
		n.Owner = actor
	}
	n.Owner = strings.TrimSpace(n.Owner)
	if n.Owner == "" {
		return n, &ValidationError{Field: "owner", Message: "is required"}
	}
	n.Date = CalendarDate(n.Date)
	n.Description = strings.TrimSpace(n.Description)
	return n, nil
}

// CalendarDate drops the time of day, keeping the year, month and day as seen
// in t's own location.
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ListFilter selects entries for listing. Owner is required.
type ListFilter struct {
	Owner    string
	ImportID string
	Limit    int
}

// ErrOwnerRequired is returned when listing without an owner.
var ErrOwnerRequired = errors.New("owner is required for listing entries")

// Store persists and lists entries.
//
// Create validates the entry itself and defaults an empty owner to actor.
// List returns the owner's entries ordered by date descending, newest
// creation first within a day.
type Store interface {
	Create(ctx context.Context, actor string, n NewEntry) (Entry, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}

// prepare runs the shared pre-persistence checks used by every Store.
func prepare(actor string, n NewEntry) (NewEntry, error) {
	if err := n.Validate(); err != nil {
		return n, err
	}
	return n.WithOwner(actor)
}

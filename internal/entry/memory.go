package entry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Entries live only as long as the
// process; it backs STORE_DRIVER=memory and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	seq     map[string]int // entry ID -> insertion order
	audit   []AuditEntry   // insertion order
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seq: make(map[string]int),
		now: time.Now,
	}
}

// Create validates n and appends it.
func (s *MemoryStore) Create(ctx context.Context, actor string, n NewEntry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	n, err := prepare(actor, n)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:          uuid.New().String(),
		Date:        n.Date,
		Kind:        n.Kind,
		Description: n.Description,
		Amount:      n.Amount,
		Owner:       n.Owner,
		ImportID:    n.ImportID,
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.seq[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	return e, nil
}

// List returns the owner's entries, date descending.
func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filter.Owner == "" {
		return nil, ErrOwnerRequired
	}

	s.mu.RLock()
	result := make([]Entry, 0)
	for _, e := range s.entries {
		if e.Owner != filter.Owner {
			continue
		}
		if filter.ImportID != "" && e.ImportID != filter.ImportID {
			continue
		}
		result = append(result, e)
	}
	seq := s.seq
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return seq[result[i].ID] > seq[result[j].ID]
	})
	s.mu.RUnlock()

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Len returns the total number of stored entries across all owners.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RecordAudit appends e to the activity log.
func (s *MemoryStore) RecordAudit(ctx context.Context, e AuditEntry) (AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return AuditEntry{}, err
	}
	if e.Owner == "" {
		return AuditEntry{}, ErrOwnerRequired
	}

	e.ID = uuid.New().String()
	e.CreatedAt = s.now().UTC()

	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
	return e, nil
}

// ListAudit returns the owner's activity, newest first.
func (s *MemoryStore) ListAudit(ctx context.Context, owner string, limit int) ([]AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]AuditEntry, 0)
	for i := len(s.audit) - 1; i >= 0; i-- {
		if s.audit[i].Owner != owner {
			continue
		}
		result = append(result, s.audit[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// PurgeAudit drops activity recorded before cutoff.
func (s *MemoryStore) PurgeAudit(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.audit[:0]
	for _, e := range s.audit {
		if !e.CreatedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	purged := int64(len(s.audit) - len(kept))
	s.audit = kept
	return purged, nil
}

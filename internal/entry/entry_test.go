package entry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewEntry_Validate(t *testing.T) {
	valid := NewEntry{
		Date:        day(2024, 3, 4),
		Kind:        KindInflow,
		Description: "Salary",
		Amount:      1500,
	}

	tests := []struct {
		name      string
		mutate    func(n *NewEntry)
		wantField string
	}{
		{name: "valid", mutate: func(n *NewEntry) {}},
		{name: "zero amount is allowed", mutate: func(n *NewEntry) { n.Amount = 0 }},
		{name: "negative amount is allowed", mutate: func(n *NewEntry) { n.Amount = -12.5 }},
		{name: "missing date", mutate: func(n *NewEntry) { n.Date = time.Time{} }, wantField: "date"},
		{name: "missing kind", mutate: func(n *NewEntry) { n.Kind = "" }, wantField: "type"},
		{name: "unknown kind", mutate: func(n *NewEntry) { n.Kind = "transfer" }, wantField: "type"},
		{name: "capitalized kind", mutate: func(n *NewEntry) { n.Kind = "Inflow" }, wantField: "type"},
		{name: "blank description", mutate: func(n *NewEntry) { n.Description = "   " }, wantField: "description"},
		{name: "NaN amount", mutate: func(n *NewEntry) { n.Amount = math.NaN() }, wantField: "amount"},
		{name: "infinite amount", mutate: func(n *NewEntry) { n.Amount = math.Inf(1) }, wantField: "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			err := n.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEntry)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestKind(t *testing.T) {
	assert.True(t, KindInflow.Valid())
	assert.True(t, KindOutflow.Valid())
	assert.False(t, Kind("INFLOW").Valid())
	assert.Equal(t, "Inflow", KindInflow.Label())
	assert.Equal(t, "Outflow", KindOutflow.Label())
	assert.Equal(t, "other", Kind("other").Label())
}

func TestMemoryStore_CreateDefaultsOwner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	e, err := s.Create(ctx, "alice", NewEntry{
		Date:        time.Date(2024, 3, 4, 17, 30, 0, 0, time.UTC),
		Kind:        KindOutflow,
		Description: "  Groceries ",
		Amount:      42.1,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", e.Owner)
	assert.Equal(t, "Groceries", e.Description)
	assert.Equal(t, day(2024, 3, 4), e.Date)
	assert.Equal(t, "2024-03-04", e.DateString())
	_, err = uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestMemoryStore_CreateKeepsExplicitOwner(t *testing.T) {
	s := NewMemoryStore()
	e, err := s.Create(context.Background(), "alice", NewEntry{
		Date: day(2024, 1, 1), Kind: KindInflow, Description: "Gift", Amount: 10, Owner: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", e.Owner)
}

func TestMemoryStore_CreateRejects(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Create(ctx, "", NewEntry{Date: day(2024, 1, 1), Kind: KindInflow, Description: "x", Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = s.Create(ctx, "alice", NewEntry{Date: day(2024, 1, 1), Kind: "bonus", Description: "x", Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_ListOrderAndFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	importID := uuid.New().String()

	mustCreate := func(owner string, d time.Time, desc, imp string) {
		t.Helper()
		_, err := s.Create(ctx, owner, NewEntry{Date: d, Kind: KindInflow, Description: desc, Amount: 1, ImportID: imp})
		require.NoError(t, err)
	}

	mustCreate("alice", day(2024, 1, 5), "old", "")
	mustCreate("alice", day(2024, 2, 1), "newest-first", importID)
	mustCreate("alice", day(2024, 2, 1), "newest-second", importID)
	mustCreate("bob", day(2024, 3, 1), "bob's", "")

	got, err := s.List(ctx, ListFilter{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "newest-second", got[0].Description)
	assert.Equal(t, "newest-first", got[1].Description)
	assert.Equal(t, "old", got[2].Description)

	got, err = s.List(ctx, ListFilter{Owner: "alice", ImportID: importID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.List(ctx, ListFilter{Owner: "alice", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = s.List(ctx, ListFilter{})
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestSummarize(t *testing.T) {
	entries := []Entry{
		{Kind: KindInflow, Amount: 0.1},
		{Kind: KindInflow, Amount: 0.2},
		{Kind: KindOutflow, Amount: 0.25},
		{Kind: "odd", Amount: 100},
	}

	got := Summarize(entries)
	assert.Equal(t, 4, got.Count)
	assert.Equal(t, "0.3", got.Inflow.String())
	assert.Equal(t, "0.25", got.Outflow.String())
	assert.Equal(t, "0.05", got.Net.String())

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.Net.IsZero())
}

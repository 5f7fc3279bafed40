package entry

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgresStore connects to TEST_DATABASE_URL and returns a store
// scoped to a transaction that is rolled back at the end of the test.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })

	s := NewPostgresStore(tx)
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func TestPostgresStore_CreateAndList(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()
	owner := "pg-" + uuid.NewString()
	importID := uuid.NewString()

	first, err := s.Create(ctx, owner, NewEntry{
		Date: day(2024, 3, 4), Kind: KindInflow, Description: "Salary", Amount: 1500, ImportID: importID,
	})
	require.NoError(t, err)
	assert.Equal(t, owner, first.Owner)

	_, err = s.Create(ctx, owner, NewEntry{
		Date: day(2024, 5, 1), Kind: KindOutflow, Description: "Rent", Amount: 900,
	})
	require.NoError(t, err)

	got, err := s.List(ctx, ListFilter{Owner: owner})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Rent", got[0].Description)
	assert.Equal(t, "2024-03-04", got[1].DateString())
	assert.Equal(t, importID, got[1].ImportID)

	got, err = s.List(ctx, ListFilter{Owner: owner, ImportID: importID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)
}

func TestPostgresStore_RejectsInvalid(t *testing.T) {
	s := newTestPostgresStore(t)
	_, err := s.Create(context.Background(), "x", NewEntry{Date: day(2024, 1, 1), Kind: "bonus", Description: "d", Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = s.List(context.Background(), ListFilter{Owner: "x", ImportID: "not-a-uuid"})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

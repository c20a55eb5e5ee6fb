package clientdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/database"
)

// testSchema creates all tables needed for testing
const testSchema = `
CREATE TABLE finnhub_search (cache_key TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE finnhub_profile (cache_key TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE finnhub_news (cache_key TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would otherwise get its own empty in-memory database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func newRepo(t *testing.T) (*Repository, *sql.DB) {
	db := setupTestDB(t)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(database.FromConn(db)), db
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo, db := newRepo(t)
	ctx := context.Background()

	data := map[string]interface{}{
		"name":   "Apple Inc",
		"ticker": "AAPL",
		"logo":   "https://static.finnhub.io/logo/aapl.png",
	}

	require.NoError(t, repo.Store(ctx, TableProfile, "AAPL", data, TTLProfile))

	var expiresAt int64
	require.NoError(t, db.QueryRow("SELECT expires_at FROM finnhub_profile WHERE cache_key = ?", "AAPL").Scan(&expiresAt))
	assert.InDelta(t, time.Now().Add(TTLProfile).Unix(), expiresAt, 5)

	raw, err := repo.GetIfFresh(ctx, TableProfile, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, "Apple Inc", parsed["name"])
}

func TestStore_Upserts(t *testing.T) {
	repo, db := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableSearch, "apple", []string{"AAPL"}, TTLSearch))
	require.NoError(t, repo.Store(ctx, TableSearch, "apple", []string{"AAPL", "APLE"}, TTLSearch))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM finnhub_search").Scan(&count))
	assert.Equal(t, 1, count)

	raw, err := repo.Get(ctx, TableSearch, "apple")
	require.NoError(t, err)
	assert.JSONEq(t, `["AAPL","APLE"]`, string(raw))
}

func TestGet_ReturnsStaleData(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableNews, "general", []int{1, 2}, -time.Minute))

	fresh, err := repo.GetIfFresh(ctx, TableNews, "general")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	stale, err := repo.Get(ctx, TableNews, "general")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(stale))
}

func TestMissingKey(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	raw, err := repo.Get(ctx, TableProfile, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = repo.GetIfFresh(ctx, TableProfile, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestInvalidTable(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"store", func() error { return repo.Store(ctx, "users; DROP TABLE users", "k", 1, time.Hour) }},
		{"get", func() error { _, err := repo.Get(ctx, "users", "k"); return err }},
		{"fresh", func() error { _, err := repo.GetIfFresh(ctx, "sessions", "k"); return err }},
		{"delete", func() error { return repo.Delete(ctx, "watchlist", "k") }},
		{"expired", func() error { _, err := repo.DeleteExpired(ctx, "users"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid table name")
		})
	}
}

func TestDelete(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableProfile, "MSFT", map[string]string{"name": "Microsoft"}, TTLProfile))
	require.NoError(t, repo.Delete(ctx, TableProfile, "MSFT"))

	raw, err := repo.Get(ctx, TableProfile, "MSFT")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDeleteAllExpired(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	for _, table := range AllTables {
		require.NoError(t, repo.Store(ctx, table, "old", 1, -time.Hour))
		require.NoError(t, repo.Store(ctx, table, "new", 2, time.Hour))
	}

	results, err := repo.DeleteAllExpired(ctx)
	require.NoError(t, err)
	for _, table := range AllTables {
		assert.Equal(t, int64(1), results[table], table)

		raw, err := repo.Get(ctx, table, "new")
		require.NoError(t, err)
		assert.NotNil(t, raw)
	}
}

// Package clientdata provides persistent caching for external API client responses.
// All data is stored as JSON blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/signalist/signalist/internal/database"
)

// Cache tables. Every table has the layout (cache_key, data, expires_at).
const (
	TableSearch  = "finnhub_search"
	TableProfile = "finnhub_profile"
	TableNews    = "finnhub_news"
)

// AllTables lists all cache tables for cleanup operations.
var AllTables = []string{TableSearch, TableProfile, TableNews}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for client data.
type Repository struct {
	db database.Provider
}

// NewRepository creates a new client data repository.
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// validateTable ensures the table name is in our allowed list.
// This prevents SQL injection through table names.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with expiration = now + ttl.
func (r *Repository) Store(ctx context.Context, table, key string, data interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (cache_key, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
	`, table)

	if _, err := conn.ExecContext(ctx, query, key, string(jsonData), time.Now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh returns data only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
// Use Get() to retrieve stale data as a fallback when API calls fail.
func (r *Repository) GetIfFresh(ctx context.Context, table, key string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE cache_key = ? AND expires_at > ?", table)

	var data string
	err = conn.QueryRowContext(ctx, query, key, time.Now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// Get returns data regardless of expiration status.
// Use this as a fallback when API calls fail - stale data is better than no data.
// Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(ctx context.Context, table, key string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE cache_key = ?", table)

	var data string
	err = conn.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, table, key string) error {
	if err := validateTable(table); err != nil {
		return err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE cache_key = ?", table), key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context, table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return 0, err
	}

	result, err := conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes all expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired(ctx context.Context) (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(ctx, table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}

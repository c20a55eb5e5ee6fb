// Package watchlist provides the per-user watchlist store.
package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/signalist/signalist/internal/database"
	"github.com/signalist/signalist/internal/domain"
)

// Repository handles watchlist database operations.
// The (user_id, symbol) unique index is what makes Add idempotent under concurrent requests;
// the repository never relies on a read-then-write check for correctness.
type Repository struct {
	db  database.Provider
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(db database.Provider, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "watchlist").Logger(),
	}
}

// NormalizeSymbol trims and upper-cases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

const itemColumns = "id, user_id, symbol, company, added_at, price, change_percent, market_cap, pe_ratio"

// List returns the user's items, most recently added first
func (r *Repository) List(ctx context.Context, userID string) ([]domain.WatchlistItem, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM watchlist
		WHERE user_id = ?
		ORDER BY added_at DESC, symbol
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// All returns every user's items ordered by symbol
func (r *Repository) All(ctx context.Context) ([]domain.WatchlistItem, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, "SELECT "+itemColumns+" FROM watchlist ORDER BY symbol, user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlists: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]domain.WatchlistItem, error) {
	items := make([]domain.WatchlistItem, 0)
	for rows.Next() {
		var (
			item    domain.WatchlistItem
			addedAt int64
			price   sql.NullFloat64
			change  sql.NullFloat64
			mcap    sql.NullFloat64
			pe      sql.NullFloat64
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.Symbol, &item.Company, &addedAt, &price, &change, &mcap, &pe); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		item.AddedAt = time.Unix(addedAt, 0)
		item.Price = nullFloat(price)
		item.ChangePercent = nullFloat(change)
		item.MarketCap = nullFloat(mcap)
		item.PERatio = nullFloat(pe)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return items, nil
}

// Symbols returns only the user's symbols
func (r *Repository) Symbols(ctx context.Context, userID string) ([]string, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, "SELECT symbol FROM watchlist WHERE user_id = ? ORDER BY added_at DESC, symbol", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// Add inserts the symbol if absent. added reports whether a row was created;
// a concurrent or repeated add of the same symbol returns added=false and no error.
func (r *Repository) Add(ctx context.Context, userID, symbol, company string, metrics *domain.Metrics) (added bool, err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	symbol = NormalizeSymbol(symbol)
	company = strings.TrimSpace(company)
	if symbol == "" {
		return false, fmt.Errorf("symbol is required")
	}
	if company == "" {
		company = symbol
	}

	var price, change, mcap, pe any
	if metrics != nil {
		price, change, mcap, pe = metrics.Price, metrics.ChangePercent, metrics.MarketCap, metrics.PERatio
	}

	res, err := conn.ExecContext(ctx, `
		INSERT INTO watchlist (id, user_id, symbol, company, added_at, price, change_percent, market_cap, pe_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO NOTHING
	`, uuid.NewString(), userID, symbol, company, time.Now().Unix(), price, change, mcap, pe)
	if err != nil {
		return false, fmt.Errorf("failed to add %s to watchlist: %w", symbol, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Remove deletes the symbol. removed is false when it was not in the list.
func (r *Repository) Remove(ctx context.Context, userID, symbol string) (removed bool, err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	res, err := conn.ExecContext(ctx, "DELETE FROM watchlist WHERE user_id = ? AND symbol = ?", userID, NormalizeSymbol(symbol))
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Exists reports whether the user follows symbol
func (r *Repository) Exists(ctx context.Context, userID, symbol string) (bool, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	var one int
	err = conn.QueryRowContext(ctx, "SELECT 1 FROM watchlist WHERE user_id = ? AND symbol = ?", userID, NormalizeSymbol(symbol)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}
	return true, nil
}

// UpdateMetrics refreshes the snapshot figures in place. This is the only in-place update.
func (r *Repository) UpdateMetrics(ctx context.Context, userID, symbol string, m domain.Metrics) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		UPDATE watchlist SET price = ?, change_percent = ?, market_cap = ?, pe_ratio = ?
		WHERE user_id = ? AND symbol = ?
	`, m.Price, m.ChangePercent, m.MarketCap, m.PERatio, userID, NormalizeSymbol(symbol))
	if err != nil {
		return fmt.Errorf("failed to update metrics for %s: %w", symbol, err)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

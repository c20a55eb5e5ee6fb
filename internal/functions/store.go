package functions

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/database"
)

// RunStore persists run history in function_runs
type RunStore struct {
	db  database.Provider
	log zerolog.Logger
}

// NewRunStore creates a run store
func NewRunStore(db database.Provider, log zerolog.Logger) *RunStore {
	return &RunStore{
		db:  db,
		log: log.With().Str("repository", "function_runs").Logger(),
	}
}

// Record inserts one run
func (s *RunStore) Record(ctx context.Context, run RunRecord) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO function_runs (id, function_id, trigger, status, message, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.FunctionID, run.Trigger, run.Status, run.Message, run.StartedAt.UnixMilli(), run.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to record run of %s: %w", run.FunctionID, err)
	}
	return nil
}

// Recent returns the newest runs, optionally for one function
func (s *RunStore) Recent(ctx context.Context, functionID string, limit int) ([]RunRecord, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, function_id, trigger, status, message, started_at, duration_ms FROM function_runs`
	args := []interface{}{}
	if functionID != "" {
		query += ` WHERE function_id = ?`
		args = append(args, functionID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		var r RunRecord
		var started int64
		if err := rows.Scan(&r.ID, &r.FunctionID, &r.Trigger, &r.Status, &r.Message, &started, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes runs older than cutoff
func (s *RunStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, err
	}

	res, err := conn.ExecContext(ctx, `DELETE FROM function_runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.log.Debug().Int64("deleted", n).Msg("Pruned function runs")
	}
	return n, nil
}

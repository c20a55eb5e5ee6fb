// Package auth provides email/password accounts, server-side sessions and the
// signed session cookie that guards the web pages.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/signalist/signalist/internal/database"
)

// ErrSessionNotFound is returned for unknown or expired session tokens
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores session tokens
type SessionRepository struct {
	db  database.Provider
	log zerolog.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.Provider, log zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log.With().Str("repository", "sessions").Logger(),
	}
}

// Create stores a new session for userID and returns its token
func (r *SessionRepository) Create(ctx context.Context, userID string, ttl time.Duration) (string, time.Time, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	token := uuid.NewString()
	now := time.Now()
	expires := now.Add(ttl)

	_, err = conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		token, userID, now.Unix(), expires.Unix())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create session: %w", err)
	}
	return token, expires, nil
}

// UserID returns the owner of a live session
func (r *SessionRepository) UserID(ctx context.Context, token string) (string, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return "", err
	}

	var userID string
	err = conn.QueryRowContext(ctx,
		"SELECT user_id FROM sessions WHERE token = ? AND expires_at > ?",
		token, time.Now().Unix()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	return userID, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired session and returns how many were removed
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return 0, err
	}

	res, err := conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

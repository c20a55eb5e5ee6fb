// Package users provides the user directory: lookup by email, registration records,
// profile updates and the daily-email subscription flag.
package users

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

// ErrUserNotFound is returned when an email does not resolve to a user
var ErrUserNotFound = domain.ErrUserNotFound

// ErrEmailTaken is returned by Create when the email is already registered
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, name, country, investment_goals, risk_tolerance, preferred_industry, daily_emails, created_at`

// NewUser holds the fields captured at sign-up
type NewUser struct {
	Email             string
	Name              string
	PasswordHash      string
	Country           string
	InvestmentGoals   string
	RiskTolerance     string
	PreferredIndustry string
}

// Repository handles user database operations.
// Emails are matched case-insensitively (the column is COLLATE NOCASE).
type Repository struct {
	db  database.Provider
	log zerolog.Logger
}

// NewRepository creates a new user repository.
//
// Parameters:
//   - db: Lazily connected database provider
//   - log: Structured logger
//
// Returns:
//   - *Repository: Initialized repository instance
func NewRepository(db database.Provider, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "users").Logger(),
	}
}

// FindIDByEmail resolves a user's identifier from an email address.
// Unknown emails return ErrUserNotFound, never a query error.
func (r *Repository) FindIDByEmail(ctx context.Context, email string) (string, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return "", err
	}

	var id string
	err = conn.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", normalizeEmail(email)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user %s: %w", email, err)
	}
	return id, nil
}

// FindByEmail returns the full user record for an email address
func (r *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	row := conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", email, err)
	}
	return user, nil
}

// FindByID returns a user by identifier
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	row := conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return user, nil
}

// PasswordHash returns the stored bcrypt hash and user id for an email
func (r *Repository) PasswordHash(ctx context.Context, email string) (id string, hash string, err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return "", "", err
	}

	err = conn.QueryRowContext(ctx, "SELECT id, password_hash FROM users WHERE email = ?", normalizeEmail(email)).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrUserNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load credentials for %s: %w", email, err)
	}
	return id, hash, nil
}

// Create registers a new user with daily emails enabled.
//
// Returns:
//   - *domain.User: The stored user
//   - error: ErrEmailTaken if the email exists, or a database error
func (r *Repository) Create(ctx context.Context, u NewUser) (*domain.User, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:                uuid.NewString(),
		Email:             normalizeEmail(u.Email),
		Name:              strings.TrimSpace(u.Name),
		Country:           strings.ToUpper(strings.TrimSpace(u.Country)),
		InvestmentGoals:   u.InvestmentGoals,
		RiskTolerance:     u.RiskTolerance,
		PreferredIndustry: u.PreferredIndustry,
		DailyEmails:       true,
		CreatedAt:         now,
	}

	res, err := conn.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, country, investment_goals, risk_tolerance, preferred_industry, daily_emails, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`, user.ID, user.Email, user.Name, u.PasswordHash, user.Country, user.InvestmentGoals,
		user.RiskTolerance, user.PreferredIndustry, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrEmailTaken
	}

	r.log.Info().Str("user_id", user.ID).Msg("User created")
	return user, nil
}

// ListForNewsEmail returns users eligible for the daily digest:
// a non-empty email and name with daily emails enabled.
func (r *Repository) ListForNewsEmail(ctx context.Context) ([]domain.User, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email != '' AND name != '' AND daily_emails = 1
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for news email: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan user row")
			continue
		}
		out = append(out, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return out, nil
}

// UpdateCountry stores the user's country code (upper-cased)
func (r *Repository) UpdateCountry(ctx context.Context, email, country string) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}

	res, err := conn.ExecContext(ctx, "UPDATE users SET country = ?, updated_at = ? WHERE email = ?",
		strings.ToUpper(strings.TrimSpace(country)), time.Now().Unix(), normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to update country for %s: %w", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetDailyEmails flips the daily digest subscription.
// matched is false when no user has that email.
func (r *Repository) SetDailyEmails(ctx context.Context, email string, enabled bool) (matched bool, err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	flag := 0
	if enabled {
		flag = 1
	}

	res, err := conn.ExecContext(ctx, "UPDATE users SET daily_emails = ?, updated_at = ? WHERE email = ?",
		flag, time.Now().Unix(), normalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("failed to update daily emails for %s: %w", email, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		daily     int
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Country, &u.InvestmentGoals, &u.RiskTolerance,
		&u.PreferredIndustry, &daily, &createdAt); err != nil {
		return nil, err
	}
	u.DailyEmails = daily == 1
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

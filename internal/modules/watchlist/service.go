package watchlist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"
	"github.com/signalist/signalist/internal/domain"
)

// Action is the outcome of a toggle
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// MetricsFunc produces the initial snapshot figures for a newly added symbol
type MetricsFunc func(symbol string) domain.Metrics

// Service exposes the watchlist by user email. Every mutation resolves the user first;
// an unresolved email fails the operation.
type Service struct {
	repo    *Repository
	users   domain.UserDirectory
	metrics MetricsFunc
	log     zerolog.Logger
}

// NewService creates a watchlist service
func NewService(repo *Repository, users domain.UserDirectory, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		metrics: PlaceholderMetrics,
		log:     log.With().Str("service", "watchlist").Logger(),
	}
}

// SetMetricsFunc overrides the snapshot generator (for dependency injection)
func (s *Service) SetMetricsFunc(fn MetricsFunc) {
	s.metrics = fn
}

// PlaceholderMetrics returns randomized display figures: price 50-500,
// daily change -5..+5 %, market cap 1e9-1e12 USD, P/E 5-40.
func PlaceholderMetrics(string) domain.Metrics {
	return domain.Metrics{
		Price:         round2(50 + rand.Float64()*450),
		ChangePercent: round2(-5 + rand.Float64()*10),
		MarketCap:     math.Floor(1e9 + rand.Float64()*999e9),
		PERatio:       round2(5 + rand.Float64()*35),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ListByEmail returns the user's items
func (s *Service) ListByEmail(ctx context.Context, email string) ([]domain.WatchlistItem, error) {
	userID, err := s.users.FindIDByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID)
}

// SymbolsByEmail returns the user's symbols. Unknown users have an empty watchlist.
func (s *Service) SymbolsByEmail(ctx context.Context, email string) ([]string, error) {
	if email == "" {
		return []string{}, nil
	}

	userID, err := s.users.FindIDByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return s.repo.Symbols(ctx, userID)
}

// AddByEmail adds symbol to the user's watchlist. Adding an existing symbol is a no-op.
func (s *Service) AddByEmail(ctx context.Context, email, symbol, company string) (bool, error) {
	userID, err := s.users.FindIDByEmail(ctx, email)
	if err != nil {
		return false, err
	}

	m := s.metrics(NormalizeSymbol(symbol))
	added, err := s.repo.Add(ctx, userID, symbol, company, &m)
	if err != nil {
		return false, err
	}
	if added {
		s.log.Debug().Str("user_id", userID).Str("symbol", NormalizeSymbol(symbol)).Msg("Symbol added to watchlist")
	}
	return added, nil
}

// RemoveByEmail removes symbol from the user's watchlist
func (s *Service) RemoveByEmail(ctx context.Context, email, symbol string) (bool, error) {
	userID, err := s.users.FindIDByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return s.repo.Remove(ctx, userID, symbol)
}

// ToggleByEmail removes symbol if present, otherwise adds it.
// The insert is insert-if-absent, so two racing toggles can never create a duplicate row.
func (s *Service) ToggleByEmail(ctx context.Context, email, symbol, company string) (Action, error) {
	userID, err := s.users.FindIDByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	exists, err := s.repo.Exists(ctx, userID, symbol)
	if err != nil {
		return "", err
	}

	if exists {
		if _, err := s.repo.Remove(ctx, userID, symbol); err != nil {
			return "", err
		}
		return ActionRemoved, nil
	}

	m := s.metrics(NormalizeSymbol(symbol))
	if _, err := s.repo.Add(ctx, userID, symbol, company, &m); err != nil {
		return "", err
	}
	return ActionAdded, nil
}

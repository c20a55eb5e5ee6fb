package domain

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when an email does not resolve to a user.
// Callers treat it as an empty result rather than a failure where that makes sense.
var ErrUserNotFound = errors.New("user not found")

// UserDirectory resolves users by email address
// This interface breaks circular dependencies between watchlist, notifications, and users packages
type UserDirectory interface {
	// FindIDByEmail returns the user's stable identifier or ErrUserNotFound
	FindIDByEmail(ctx context.Context, email string) (string, error)

	// FindByEmail returns the full user or ErrUserNotFound
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// WatchlistSymbols returns the symbols a user follows
// Used by market search annotation and the daily digest
type WatchlistSymbols interface {
	// SymbolsByEmail returns an empty slice for unknown users
	SymbolsByEmail(ctx context.Context, email string) ([]string, error)
}

// NewsProvider fetches up to six formatted articles for the given symbols.
// An empty symbol list means general market news.
type NewsProvider interface {
	GetNews(ctx context.Context, symbols []string) ([]FormattedNewsArticle, error)
}

// TextGenerator produces text from a prompt (generative AI)
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

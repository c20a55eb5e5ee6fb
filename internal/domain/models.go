// Package domain provides core domain models and types.
package domain

import "time"

// User represents a registered account
type User struct {
	CreatedAt         time.Time `json:"created_at"`
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Country           string    `json:"country"`
	InvestmentGoals   string    `json:"investment_goals,omitempty"`
	RiskTolerance     string    `json:"risk_tolerance,omitempty"`
	PreferredIndustry string    `json:"preferred_industry,omitempty"`
	DailyEmails       bool      `json:"daily_emails"`
}

// WatchlistItem is one symbol a user follows. (UserID, Symbol) is unique.
type WatchlistItem struct {
	AddedAt       time.Time `json:"added_at"`
	Price         *float64  `json:"price,omitempty"`
	ChangePercent *float64  `json:"change_percent,omitempty"`
	MarketCap     *float64  `json:"market_cap,omitempty"`
	PERatio       *float64  `json:"pe_ratio,omitempty"`
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Symbol        string    `json:"symbol"`
	Company       string    `json:"company"`
}

// Metrics holds the optional market figures displayed next to a watchlist item
type Metrics struct {
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	MarketCap     float64 `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
}

// NewsArticle is the raw article shape returned by the market-data provider.
// Every field except ID may be missing.
type NewsArticle struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Source   string `json:"source,omitempty"`
	URL      string `json:"url,omitempty"`
	Datetime int64  `json:"datetime,omitempty"`
	Image    string `json:"image,omitempty"`
	Category string `json:"category,omitempty"`
	Related  string `json:"related,omitempty"`
}

// FormattedNewsArticle is a validated article ready for display, with provenance
type FormattedNewsArticle struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
	Image    string `json:"image"`
	Category string `json:"category"`
	Related  string `json:"related"`
	Symbol   string `json:"symbol,omitempty"` // Watchlist symbol the article was picked for
	Round    int    `json:"round"`            // Round-robin round, or arrival index for general news
}

// StockSearchResult is a search hit annotated for the requesting user. Never persisted.
type StockSearchResult struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Exchange      string `json:"exchange"`
	Type          string `json:"type"`
	LogoURL       string `json:"logoUrl,omitempty"`
	OfficialName  string `json:"officialName,omitempty"`
	IsInWatchlist bool   `json:"isInWatchlist"`
}

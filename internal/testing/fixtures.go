package testing

import (
	"fmt"
	"time"

	"github.com/signalist/signalist/internal/domain"
)

// NewUserFixtures returns a set of test users for use in tests
func NewUserFixtures() []domain.User {
	now := time.Now()
	return []domain.User{
		{ID: "u-ada", Email: "ada@example.com", Name: "Ada", Country: "GB", DailyEmails: true, CreatedAt: now},
		{ID: "u-bob", Email: "bob@example.com", Name: "Bob", Country: "US", DailyEmails: true, CreatedAt: now},
		{ID: "u-cleo", Email: "cleo@example.com", Name: "Cleo", Country: "", DailyEmails: true, CreatedAt: now},
		{ID: "u-dev", Email: "dev@example.com", Name: "Dev", Country: "IN", DailyEmails: true, CreatedAt: now},
		{ID: "u-eli", Email: "eli@example.com", Name: "Eli", Country: "DE", DailyEmails: true, CreatedAt: now},
	}
}

// NewArticleFixtures returns n valid raw articles for symbol, newest first.
// IDs and URLs are unique per (symbol, index).
func NewArticleFixtures(symbol string, n int, newest int64) []domain.NewsArticle {
	out := make([]domain.NewsArticle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.NewsArticle{
			ID:       int64(len(symbol)*1000 + i),
			Headline: fmt.Sprintf("%s headline %d", symbol, i+1),
			Summary:  fmt.Sprintf("%s summary %d", symbol, i+1),
			Source:   "Reuters",
			URL:      fmt.Sprintf("https://news.example.com/%s/%d", symbol, i+1),
			Datetime: newest - int64(i*60),
			Category: "company",
			Related:  symbol,
		})
	}
	return out
}

// InvalidArticle returns an article missing its headline
func InvalidArticle(id int64) domain.NewsArticle {
	return domain.NewsArticle{ID: id, Summary: "no headline", URL: "https://news.example.com/invalid", Datetime: time.Now().Unix()}
}

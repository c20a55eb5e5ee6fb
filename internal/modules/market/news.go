// Package market is the market-data gateway: news selection and symbol search over Finnhub.
package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/signalist/signalist/internal/clients/finnhub"
	"github.com/signalist/signalist/internal/domain"
)

const (
	// MaxArticles caps every news result
	MaxArticles = 6
	// NewsWindowDays is the company-news lookback
	NewsWindowDays = 5

	companySummaryLen = 200
	generalSummaryLen = 150
)

// ErrNewsUnavailable is returned when no news source could be read at all
var ErrNewsUnavailable = errors.New("failed to fetch news")

// DataSource is the subset of the Finnhub client the gateway uses
type DataSource interface {
	GeneralNews(ctx context.Context) ([]domain.NewsArticle, error)
	CompanyNews(ctx context.Context, symbol, from, to string) ([]domain.NewsArticle, error)
	Search(ctx context.Context, query string) ([]finnhub.SearchResult, error)
	CompanyProfile(ctx context.Context, symbol string) (*finnhub.Profile, error)
}

// Gateway serves news and search results
type Gateway struct {
	source  DataSource
	popular []string
	now     func() time.Time
	log     zerolog.Logger
}

// NewGateway creates a market gateway
func NewGateway(source DataSource, log zerolog.Logger) *Gateway {
	return &Gateway{
		source:  source,
		popular: PopularSymbols,
		now:     time.Now,
		log:     log.With().Str("service", "market").Logger(),
	}
}

// ValidateArticle reports whether an article has a headline, summary, url and positive datetime
func ValidateArticle(a domain.NewsArticle) bool {
	return strings.TrimSpace(a.Headline) != "" &&
		strings.TrimSpace(a.Summary) != "" &&
		strings.TrimSpace(a.URL) != "" &&
		a.Datetime > 0
}

// FormatArticle projects a valid article for display.
// Company news is tagged with its symbol and round; general news with its arrival index.
func FormatArticle(a domain.NewsArticle, isCompanyNews bool, symbol string, index int) domain.FormattedNewsArticle {
	summaryLen := generalSummaryLen
	source := "Market News"
	category := a.Category
	related := a.Related
	if category == "" {
		category = "general"
	}
	if isCompanyNews {
		summaryLen = companySummaryLen
		source = "Company News"
		category = "company"
		related = symbol
	}
	if a.Source != "" {
		source = a.Source
	}

	return domain.FormattedNewsArticle{
		ID:       a.ID,
		Headline: strings.TrimSpace(a.Headline),
		Summary:  truncate(strings.TrimSpace(a.Summary), summaryLen),
		Source:   source,
		URL:      a.URL,
		Datetime: a.Datetime,
		Image:    a.Image,
		Category: category,
		Related:  related,
		Symbol:   symbol,
		Round:    index,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// NormalizeSymbols trims, upper-cases and de-duplicates symbols, keeping first-seen order
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// DateRange returns the YYYY-MM-DD bounds of the last days days ending at now
func DateRange(now time.Time, days int) (from, to string) {
	return now.AddDate(0, 0, -days).Format("2006-01-02"), now.Format("2006-01-02")
}

// GetNews returns up to six articles, newest first.
// Without symbols it returns general market news. With symbols it picks company news
// round-robin across symbols, falling back to general news when nothing is found.
// Only a failure to read any source returns an error.
func (g *Gateway) GetNews(ctx context.Context, symbols []string) ([]domain.FormattedNewsArticle, error) {
	clean := NormalizeSymbols(symbols)
	if len(clean) == 0 {
		return g.generalNews(ctx)
	}

	lists := g.fetchCompanyNews(ctx, clean)
	results := roundRobin(clean, lists)
	if len(results) == 0 {
		return g.generalNews(ctx)
	}

	sortNewestFirst(results)
	if len(results) > MaxArticles {
		results = results[:MaxArticles]
	}
	return results, nil
}

func (g *Gateway) generalNews(ctx context.Context) ([]domain.FormattedNewsArticle, error) {
	articles, err := g.source.GeneralNews(ctx)
	if err != nil {
		g.log.Error().Err(err).Msg("Failed to fetch news")
		return nil, fmt.Errorf("%w: %v", ErrNewsUnavailable, err)
	}

	seen := make(map[string]bool)
	out := make([]domain.FormattedNewsArticle, 0, MaxArticles)
	for _, a := range articles {
		if !ValidateArticle(a) {
			continue
		}
		key := fmt.Sprintf("%d|%s|%s", a.ID, a.URL, a.Headline)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, FormatArticle(a, false, "", len(out)))
		if len(out) == MaxArticles {
			break
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// fetchCompanyNews fetches every symbol concurrently. A failed symbol gets an empty list
// and never cancels the others.
func (g *Gateway) fetchCompanyNews(ctx context.Context, symbols []string) map[string][]domain.NewsArticle {
	from, to := DateRange(g.now(), NewsWindowDays)

	var mu sync.Mutex
	lists := make(map[string][]domain.NewsArticle, len(symbols))

	var eg errgroup.Group
	for _, sym := range symbols {
		sym := sym
		eg.Go(func() error {
			articles, err := g.source.CompanyNews(ctx, sym, from, to)
			if err != nil {
				g.log.Warn().Err(err).Str("symbol", sym).Msg("Error fetching company news")
				articles = nil
			}

			valid := make([]domain.NewsArticle, 0, len(articles))
			for _, a := range articles {
				if ValidateArticle(a) {
					valid = append(valid, a)
				}
			}

			mu.Lock()
			lists[sym] = valid
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	return lists
}

// roundRobin takes one article per symbol per round, in symbol order, for up to
// MaxArticles rounds. Each symbol's cursor only moves forward, so an exhausted or
// all-invalid list is skipped in constant time.
func roundRobin(symbols []string, lists map[string][]domain.NewsArticle) []domain.FormattedNewsArticle {
	results := make([]domain.FormattedNewsArticle, 0, MaxArticles)
	cursor := make(map[string]int, len(symbols))

	for round := 0; round < MaxArticles && len(results) < MaxArticles; round++ {
		for _, sym := range symbols {
			if len(results) >= MaxArticles {
				break
			}
			list := lists[sym]
			idx := cursor[sym]
			for idx < len(list) && !ValidateArticle(list[idx]) {
				idx++
			}
			if idx >= len(list) {
				cursor[sym] = idx
				continue
			}
			results = append(results, FormatArticle(list[idx], true, sym, round))
			cursor[sym] = idx + 1
		}
	}
	return results
}

func sortNewestFirst(articles []domain.FormattedNewsArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Datetime > articles[j].Datetime
	})
}

package market

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/signalist/signalist/internal/clients/finnhub"
	"github.com/signalist/signalist/internal/domain"
)

// MaxSearchResults caps search output
const MaxSearchResults = 15

// PopularSymbols is shown when the search box is empty
var PopularSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "NFLX", "ORCL", "CRM",
	"ADBE", "INTC", "AMD", "PYPL", "UBER", "SHOP", "SPOT", "COIN", "PLTR", "SNOW",
}

// SearchStocks returns up to 15 results for query, or popular symbols when query is empty,
// each marked with whether it is in watchlist (case-insensitive).
// Profile lookups are concurrent; a failed lookup degrades that item to a bare result.
func (g *Gateway) SearchStocks(ctx context.Context, query string, watchlist []string) ([]domain.StockSearchResult, error) {
	query = strings.TrimSpace(query)

	var candidates []domain.StockSearchResult
	if query == "" {
		candidates = g.popularCandidates(ctx)
	} else {
		hits, err := g.source.Search(ctx, query)
		if err != nil {
			g.log.Error().Err(err).Str("query", query).Msg("Error in stock search")
			return []domain.StockSearchResult{}, nil
		}
		for _, h := range hits {
			symbol := strings.ToUpper(strings.TrimSpace(h.Symbol))
			if symbol == "" {
				continue
			}
			name := h.Description
			if name == "" {
				name = symbol
			}
			candidates = append(candidates, domain.StockSearchResult{
				Symbol:   symbol,
				Name:     name,
				Exchange: displayExchange(h.DisplaySymbol, symbol),
				Type:     orDefault(h.Type, "Stock"),
			})
		}
	}

	if len(candidates) > MaxSearchResults {
		candidates = candidates[:MaxSearchResults]
	}

	g.enrich(ctx, candidates)

	inList := make(map[string]bool, len(watchlist))
	for _, s := range watchlist {
		inList[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	for i := range candidates {
		candidates[i].IsInWatchlist = inList[candidates[i].Symbol]
	}

	return candidates, nil
}

// popularCandidates profiles every popular symbol and keeps those with a resolved name
func (g *Gateway) popularCandidates(ctx context.Context) []domain.StockSearchResult {
	profiles := g.profiles(ctx, g.popular)

	out := make([]domain.StockSearchResult, 0, len(g.popular))
	for _, sym := range g.popular {
		p := profiles[sym]
		if p == nil || p.Name == "" {
			continue
		}
		out = append(out, domain.StockSearchResult{
			Symbol:   sym,
			Name:     p.Name,
			Exchange: orDefault(p.Exchange, "US"),
			Type:     "Common Stock",
		})
	}
	return out
}

// enrich fills logo and official name from company profiles
func (g *Gateway) enrich(ctx context.Context, items []domain.StockSearchResult) {
	symbols := make([]string, len(items))
	for i, it := range items {
		symbols[i] = it.Symbol
	}
	profiles := g.profiles(ctx, symbols)

	for i := range items {
		p := profiles[items[i].Symbol]
		if p == nil {
			continue
		}
		items[i].LogoURL = p.Logo
		items[i].OfficialName = p.Name
		if p.Exchange != "" {
			items[i].Exchange = p.Exchange
		}
	}
}

// profiles looks up each distinct symbol concurrently. Failures are logged and left out.
func (g *Gateway) profiles(ctx context.Context, symbols []string) map[string]*finnhub.Profile {
	var mu sync.Mutex
	out := make(map[string]*finnhub.Profile, len(symbols))

	var eg errgroup.Group
	for _, sym := range NormalizeSymbols(symbols) {
		sym := sym
		eg.Go(func() error {
			p, err := g.source.CompanyProfile(ctx, sym)
			if err != nil {
				g.log.Warn().Err(err).Str("symbol", sym).Msg("Error fetching profile")
				return nil
			}
			mu.Lock()
			out[sym] = p
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	return out
}

// MarketCap returns the symbol's market capitalisation in USD (Finnhub reports millions).
// A missing profile yields 0.
func (g *Gateway) MarketCap(ctx context.Context, symbol string) (float64, error) {
	p, err := g.source.CompanyProfile(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, nil
	}
	return p.MarketCapitalization * 1e6, nil
}

// displayExchange derives an exchange hint from a display symbol like "BMW.DE"
func displayExchange(displaySymbol, symbol string) string {
	if i := strings.LastIndexByte(displaySymbol, '.'); i > 0 && i < len(displaySymbol)-1 {
		return displaySymbol[i+1:]
	}
	if i := strings.LastIndexByte(symbol, '.'); i > 0 && i < len(symbol)-1 {
		return symbol[i+1:]
	}
	return "US"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

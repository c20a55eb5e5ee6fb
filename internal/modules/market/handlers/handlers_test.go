package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/clients/finnhub"
	"github.com/signalist/signalist/internal/domain"
	"github.com/signalist/signalist/internal/modules/auth"
	"github.com/signalist/signalist/internal/modules/market"
	testingutil "github.com/signalist/signalist/internal/testing"
)

type stubSource struct {
	mu         sync.Mutex
	generalErr error
	symbols    []string
}

func (s *stubSource) GeneralNews(ctx context.Context) ([]domain.NewsArticle, error) {
	if s.generalErr != nil {
		return nil, s.generalErr
	}
	return testingutil.NewArticleFixtures("GEN", 2, 1_700_000_000), nil
}

func (s *stubSource) CompanyNews(ctx context.Context, symbol, from, to string) ([]domain.NewsArticle, error) {
	s.mu.Lock()
	s.symbols = append(s.symbols, symbol)
	s.mu.Unlock()
	return testingutil.NewArticleFixtures(symbol, 1, 1_700_000_000), nil
}

func (s *stubSource) Search(ctx context.Context, query string) ([]finnhub.SearchResult, error) {
	return []finnhub.SearchResult{{Symbol: "AAPL", Description: "APPLE INC"}, {Symbol: "APLE", Description: "APPLE HOSPITALITY"}}, nil
}

func (s *stubSource) CompanyProfile(ctx context.Context, symbol string) (*finnhub.Profile, error) {
	return nil, errors.New("no profile")
}

type stubWatchlist map[string][]string

func (s stubWatchlist) SymbolsByEmail(ctx context.Context, email string) ([]string, error) {
	return s[email], nil
}

func setupRouter(src *stubSource, user *domain.User) http.Handler {
	h := NewHandler(market.NewGateway(src, zerolog.Nop()), stubWatchlist{"ada@example.com": {"AAPL"}}, zerolog.Nop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(auth.WithUser(req.Context(), user))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.RegisterRoutes(r)
	return r
}

func TestHandleNews_Symbols(t *testing.T) {
	src := &stubSource{}
	rec := httptest.NewRecorder()
	setupRouter(src, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/news?symbols=aapl,MSFT", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var articles []domain.FormattedNewsArticle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &articles))
	assert.Len(t, articles, 2)
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, src.symbols)
}

func TestHandleNews_Unavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	setupRouter(&stubSource{generalErr: errors.New("down")}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/news", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleSearch_MarksWatchlist(t *testing.T) {
	users := testingutil.NewUserFixtures()
	rec := httptest.NewRecorder()
	setupRouter(&stubSource{}, &users[0]).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=apple", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var results []domain.StockSearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].IsInWatchlist)
	assert.False(t, results[1].IsInWatchlist)
}

func TestHandleSearch_Anonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	setupRouter(&stubSource{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=apple", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var results []domain.StockSearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	for _, r := range results {
		assert.False(t, r.IsInWatchlist)
	}
}

// Package finnhub provides a Finnhub market-data client with persistent response caching.
package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/clientdata"
	"github.com/signalist/signalist/internal/domain"
)

// SearchResult is one hit of /search
type SearchResult struct {
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
}

// SearchResponse is the /search payload
type SearchResponse struct {
	Result []SearchResult `json:"result"`
	Count  int            `json:"count"`
}

// Profile is the /stock/profile2 payload. Unknown symbols return an empty object.
type Profile struct {
	Name                 string  `json:"name"`
	Ticker               string  `json:"ticker"`
	Exchange             string  `json:"exchange"`
	Logo                 string  `json:"logo"`
	WebURL               string  `json:"weburl"`
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	Industry             string  `json:"finnhubIndustry"`
	IPO                  string  `json:"ipo"`
	MarketCapitalization float64 `json:"marketCapitalization"`
}

// Client for the Finnhub REST API
type Client struct {
	baseURL   string
	token     string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new Finnhub client
// cacheRepo is optional - if nil, caching is disabled
func NewClient(baseURL, token string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "finnhub").Logger(),
		cacheRepo: cacheRepo,
	}
}

// SetHTTPClient replaces the HTTP client (for tests)
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.client = hc
}

// Search looks up symbols matching query. Cached for 30 minutes.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var resp SearchResponse
	params := url.Values{"q": {query}}
	if err := c.cachedGet(ctx, "/search", params, clientdata.TableSearch, strings.ToLower(query), clientdata.TTLSearch, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// CompanyProfile returns the profile for symbol. Cached for one hour.
func (c *Client) CompanyProfile(ctx context.Context, symbol string) (*Profile, error) {
	var p Profile
	params := url.Values{"symbol": {symbol}}
	if err := c.cachedGet(ctx, "/stock/profile2", params, clientdata.TableProfile, symbol, clientdata.TTLProfile, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GeneralNews returns the general market news feed. Cached for five minutes.
func (c *Client) GeneralNews(ctx context.Context) ([]domain.NewsArticle, error) {
	var articles []domain.NewsArticle
	params := url.Values{"category": {"general"}}
	if err := c.cachedGet(ctx, "/news", params, clientdata.TableNews, "general", clientdata.TTLGeneralNews, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// CompanyNews returns news for symbol between from and to (YYYY-MM-DD). Never cached.
func (c *Client) CompanyNews(ctx context.Context, symbol, from, to string) ([]domain.NewsArticle, error) {
	var articles []domain.NewsArticle
	params := url.Values{"symbol": {symbol}, "from": {from}, "to": {to}}
	if err := c.get(ctx, "/company-news", params, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// cachedGet serves fresh cache entries, otherwise fetches and stores.
// If the API fails, stale cached data is returned when available.
func (c *Client) cachedGet(ctx context.Context, path string, params url.Values, table, key string, ttl time.Duration, out interface{}) error {
	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh(ctx, table, key)
		if err == nil && data != nil {
			if err := json.Unmarshal(data, out); err == nil {
				c.log.Debug().Str("path", path).Str("key", key).Msg("Cache hit")
				return nil
			}
		}
	}

	fetchErr := c.get(ctx, path, params, out)
	if fetchErr != nil {
		if c.cacheRepo != nil {
			if data, err := c.cacheRepo.Get(ctx, table, key); err == nil && data != nil {
				if err := json.Unmarshal(data, out); err == nil {
					c.log.Warn().Err(fetchErr).Str("path", path).Str("key", key).Msg("API failed, using stale cached data")
					return nil
				}
			}
		}
		return fetchErr
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(ctx, table, key, out, ttl); err != nil {
			c.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Failed to cache response")
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	c.log.Debug().Str("path", path).Msg("Fetching")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("Finnhub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.New(strings.TrimSpace(fmt.Sprintf("Finnhub request failed: %d %s %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(body)))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse Finnhub response from %s: %w", path, err)
	}
	return nil
}

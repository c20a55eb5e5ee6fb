// Package handlers provides HTTP handlers for market news and symbol search.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/domain"
	"github.com/signalist/signalist/internal/modules/auth"
	"github.com/signalist/signalist/internal/modules/market"
)

// Handler provides HTTP handlers for market endpoints
type Handler struct {
	gateway   *market.Gateway
	watchlist domain.WatchlistSymbols
	log       zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(gateway *market.Gateway, watchlist domain.WatchlistSymbols, log zerolog.Logger) *Handler {
	return &Handler{
		gateway:   gateway,
		watchlist: watchlist,
		log:       log.With().Str("handler", "market").Logger(),
	}
}

// RegisterRoutes mounts /news and /search
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/news", h.HandleNews)
	r.Get("/search", h.HandleSearch)
}

// HandleNews handles GET /api/news?symbols=AAPL,MSFT
func (h *Handler) HandleNews(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		symbols = strings.Split(raw, ",")
	}

	articles, err := h.gateway.GetNews(r.Context(), symbols)
	if err != nil {
		if errors.Is(err, market.ErrNewsUnavailable) {
			http.Error(w, "Failed to fetch news", http.StatusBadGateway)
			return
		}
		h.log.Error().Err(err).Msg("Failed to get news")
		http.Error(w, "Failed to fetch news", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, articles)
}

// HandleSearch handles GET /api/search?q=apple
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var inWatchlist []string
	if user, ok := auth.UserFromContext(r.Context()); ok {
		symbols, err := h.watchlist.SymbolsByEmail(r.Context(), user.Email)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to load watchlist for search")
		}
		inWatchlist = symbols
	}

	results, err := h.gateway.SearchStocks(r.Context(), r.URL.Query().Get("q"), inWatchlist)
	if err != nil {
		h.log.Error().Err(err).Msg("Search failed")
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Package handlers provides HTTP handlers for the watchlist.
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
	"github.com/signalist/signalist/internal/modules/watchlist"
)

// Handler provides HTTP handlers for watchlist endpoints
type Handler struct {
	service *watchlist.Service
	log     zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(service *watchlist.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "watchlist").Logger(),
	}
}

type itemRequest struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
}

// RegisterRoutes mounts the watchlist API. The caller must have run auth.Authenticate.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/watchlist", func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Get("/", h.HandleList)
		r.Get("/symbols", h.HandleSymbols)
		r.Post("/", h.HandleAdd)
		r.Post("/toggle", h.HandleToggle)
		r.Delete("/{symbol}", h.HandleRemove)
	})
}

// HandleList handles GET /api/watchlist
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	items, err := h.service.ListByEmail(r.Context(), user.Email)
	if err != nil {
		h.fail(w, err, "Failed to load watchlist")
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// HandleSymbols handles GET /api/watchlist/symbols
func (h *Handler) HandleSymbols(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	symbols, err := h.service.SymbolsByEmail(r.Context(), user.Email)
	if err != nil {
		h.fail(w, err, "Failed to load watchlist")
		return
	}
	h.writeJSON(w, http.StatusOK, symbols)
}

// HandleAdd handles POST /api/watchlist
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	req, ok := decodeItem(w, r)
	if !ok {
		return
	}

	added, err := h.service.AddByEmail(r.Context(), user.Email, req.Symbol, req.Company)
	if err != nil {
		h.fail(w, err, "Failed to add to watchlist")
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, map[string]interface{}{"ok": true, "added": added, "symbol": watchlist.NormalizeSymbol(req.Symbol)})
}

// HandleToggle handles POST /api/watchlist/toggle
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	req, ok := decodeItem(w, r)
	if !ok {
		return
	}

	action, err := h.service.ToggleByEmail(r.Context(), user.Email, req.Symbol, req.Company)
	if err != nil {
		h.fail(w, err, "Failed to update watchlist")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "action": action})
}

// HandleRemove handles DELETE /api/watchlist/{symbol}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	symbol := chi.URLParam(r, "symbol")

	removed, err := h.service.RemoveByEmail(r.Context(), user.Email, symbol)
	if err != nil {
		h.fail(w, err, "Failed to remove from watchlist")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "removed": removed})
}

func decodeItem(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	if strings.TrimSpace(req.Symbol) == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, domain.ErrUserNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Package handlers provides the email unsubscribe endpoint.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/modules/notifications"
)

// Subscriptions toggles the daily-email flag
type Subscriptions interface {
	SetDailyEmails(ctx context.Context, email string, enabled bool) (bool, error)
}

// UnsubscribeHandler serves GET /api/email/unsubscribe
type UnsubscribeHandler struct {
	signer   *notifications.UnsubscribeSigner
	subs     Subscriptions
	renderer *notifications.Renderer
	homeURL  string
	log      zerolog.Logger
}

// NewUnsubscribeHandler creates the unsubscribe handler
func NewUnsubscribeHandler(signer *notifications.UnsubscribeSigner, subs Subscriptions, renderer *notifications.Renderer, homeURL string, log zerolog.Logger) *UnsubscribeHandler {
	if homeURL == "" {
		homeURL = "/"
	}
	return &UnsubscribeHandler{
		signer:   signer,
		subs:     subs,
		renderer: renderer,
		homeURL:  homeURL,
		log:      log.With().Str("handler", "unsubscribe").Logger(),
	}
}

// RegisterRoutes mounts /email/unsubscribe under the API router
func (h *UnsubscribeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/email/unsubscribe", h.ServeHTTP)
}

// ServeHTTP verifies the link and clears the daily-email flag
func (h *UnsubscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email, t, sig := q.Get("email"), q.Get("t"), q.Get("sig")

	if email == "" || t == "" || sig == "" {
		h.fail(w, http.StatusBadRequest, "Invalid unsubscribe link.")
		return
	}
	if !h.signer.Verify(email, t, sig) {
		h.log.Warn().Str("email", email).Msg("Unsubscribe signature mismatch")
		h.fail(w, http.StatusBadRequest, "Signature mismatch.")
		return
	}

	matched, err := h.subs.SetDailyEmails(r.Context(), email, false)
	if err != nil {
		h.log.Error().Err(err).Str("email", email).Msg("Unsubscribe error")
		h.fail(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if !matched {
		h.fail(w, http.StatusNotFound, "User not found.")
		return
	}

	page, err := h.renderer.Unsubscribed(notifications.UnsubscribedData{Email: email, HomeURL: h.homeURL})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render unsubscribe page")
		h.fail(w, http.StatusInternalServerError, "Server error.")
		return
	}

	h.log.Info().Str("email", email).Msg("Unsubscribed from daily emails")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *UnsubscribeHandler) fail(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": message})
}

// Package handlers exposes the function runtime over HTTP.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/events"
	"github.com/signalist/signalist/internal/functions"
)

const maxBodyBytes = 1 << 20

// Handler serves /functions
type Handler struct {
	runtime *functions.Runtime
	store   *functions.RunStore
	signer  *functions.RequestSigner
	log     zerolog.Logger
}

// NewHandler creates the functions handler. store may be nil.
func NewHandler(runtime *functions.Runtime, store *functions.RunStore, signer *functions.RequestSigner, log zerolog.Logger) *Handler {
	return &Handler{
		runtime: runtime,
		store:   store,
		signer:  signer,
		log:     log.With().Str("handler", "functions").Logger(),
	}
}

// RegisterRoutes mounts GET, POST and PUT on /functions, all behind the request signature
func (h *Handler) RegisterRoutes(r chi.Router) {
	signed := r.With(h.requireSignature)
	signed.Get("/functions", h.HandleList)
	signed.Post("/functions", h.HandleSend)
	signed.Put("/functions", h.HandleSend)
}

// requireSignature rejects requests whose body is not signed with the functions key
func (h *Handler) requireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		if err := h.signer.Verify(r.Header.Get(functions.SignatureHeader), body); err != nil {
			h.log.Warn().Err(err).Str("method", r.Method).Str("remote", r.RemoteAddr).Msg("Rejected functions request")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

type sendRequest struct {
	Name string                 `json:"name"`
	Data map[string]interface{} `json:"data"`
}

// HandleList handles GET /api/functions
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	fns := h.runtime.Registry().All()
	infos := make([]functions.Info, 0, len(fns))
	for _, fn := range fns {
		infos = append(infos, fn.Describe())
	}

	runs := []functions.RunRecord{}
	if h.store != nil {
		recent, err := h.store.Recent(r.Context(), r.URL.Query().Get("function"), 20)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to load function runs")
		} else {
			runs = recent
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"functions": infos,
		"runs":      runs,
	})
}

// HandleSend handles POST/PUT /api/functions with {name, data}
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	eventType := events.EventType(req.Name)
	if len(h.runtime.Registry().ForEvent(eventType)) == 0 {
		http.Error(w, "No function listens to "+req.Name, http.StatusBadRequest)
		return
	}

	id, err := h.runtime.Send(eventType, req.Data)
	if err != nil {
		if errors.Is(err, functions.ErrUnknownEvent) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Failed to send event")
		http.Error(w, "Failed to send event", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{"ids": []string{id}, "status": http.StatusAccepted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

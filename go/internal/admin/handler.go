// Package admin exposes a small token-protected JSON API for operators.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App defines what the admin API needs from the game engine
type App interface {
	CreatePromo(ctx context.Context, mediaRef, caption string) (*models.Promo, error)
	ActivePromo(ctx context.Context) *models.Promo
	ResetCards(ctx context.Context) error
}

// Handler serves the admin routes.
type Handler struct {
	app   App
	token string
}

func NewHandler(app App, token string) *Handler {
	return &Handler{app: app, token: token}
}

type createPromoRequest struct {
	MediaRef string `json:"media_ref"`
	Caption  string `json:"caption"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes registers admin routes with an HTTP mux. Nothing is
// registered when no token is configured.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	if h.token == "" {
		log.Warn().Msg("admin token not set, admin API disabled")
		return
	}
	mux.Handle("POST /admin/promos", h.auth(http.HandlerFunc(h.createPromo)))
	mux.Handle("GET /admin/promos/active", h.auth(http.HandlerFunc(h.activePromo)))
	mux.Handle("POST /admin/cards/reset", h.auth(http.HandlerFunc(h.resetCards)))
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) createPromo(w http.ResponseWriter, r *http.Request) {
	var req createPromoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.MediaRef) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "media_ref is required"})
		return
	}

	promo, err := h.app.CreatePromo(r.Context(), req.MediaRef, req.Caption)
	if err != nil {
		log.Error().Err(err).Msg("failed to create promo")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create promo"})
		return
	}
	writeJSON(w, http.StatusCreated, promo)
}

func (h *Handler) activePromo(w http.ResponseWriter, r *http.Request) {
	promo := h.app.ActivePromo(r.Context())
	if promo == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no active promo"})
		return
	}
	writeJSON(w, http.StatusOK, promo)
}

func (h *Handler) resetCards(w http.ResponseWriter, r *http.Request) {
	if err := h.app.ResetCards(r.Context()); err != nil {
		log.Error().Err(err).Msg("failed to reset cards")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to reset cards"})
		return
	}
	log.Info().Msg("cards reset by admin")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// Package admin exposes the operational HTTP surface: health probes,
// response-cache statistics, and cache flushing. It is bound to a
// separate listener from any caller-facing traffic.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/botwire/conversation-gateway/pkg/health"
	"github.com/botwire/conversation-gateway/pkg/respcache"
)

// Handler serves the admin endpoints.
type Handler struct {
	checker *health.Checker
	cache   *respcache.Cache
	logger  *slog.Logger
}

// NewHandler creates the admin handler.
func NewHandler(checker *health.Checker, cache *respcache.Cache, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{checker: checker, cache: cache, logger: logger}
}

// Router builds the admin chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.checker.LivenessHandler())
	r.Get("/readyz", h.checker.ReadinessHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/cache/stats", h.cacheStats)
		r.Post("/cache/flush", h.cacheFlush)
	})

	return r
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// flushRequest selects which entries to flush. An empty prefix flushes
// every cached answer.
type flushRequest struct {
	Prefix string `json:"prefix"`
}

type flushResponse struct {
	Flushed int `json:"flushed"`
}

func (h *Handler) cacheFlush(w http.ResponseWriter, r *http.Request) {
	var req flushRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	flushed, err := h.cache.Flush(r.Context(), req.Prefix)
	if err != nil {
		h.logger.Error("cache flush failed", "prefix", req.Prefix, "error", err)
		writeError(w, http.StatusBadGateway, "cache store unavailable")
		return
	}

	h.logger.Info("cache flushed", "prefix", req.Prefix, "entries", flushed)
	writeJSON(w, http.StatusOK, flushResponse{Flushed: flushed})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/history"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every dashboard route. health is mounted at /health.
func NewRouter(store *dataset.Store, runs *history.Store, health http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", HandleSummary(store, runs))
	r.Get("/activity", HandleActivity(store))
	r.Get("/products", HandleProducts(store))
	r.Get("/visitors", HandleVisitors(store))
	r.Get("/tests", HandleTests(store))
	r.Get("/runs", HandleRuns(store, runs))
	r.Post("/refresh", HandleRefresh(store))

	r.Get("/api/kpis", HandleKPIs(store))
	r.Get("/health", health)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, "Cette page n'existe pas.", http.StatusNotFound)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

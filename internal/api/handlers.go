/**
 * @description
 * Small operational HTTP surface for the direct debit service. The service
 * is job-driven, not request-driven; these endpoints exist for deployment
 * health checks and for operators to see what the last tick did.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vervebank/directdebit-service/internal/app"
)

// StatusHandler exposes health and last-run information.
type StatusHandler struct {
	jobs *app.Jobs
}

// NewStatusHandler creates the handler bound to the jobs runner.
func NewStatusHandler(jobs *app.Jobs) *StatusHandler {
	return &StatusHandler{jobs: jobs}
}

// NewRouter builds the ops router.
func NewRouter(handler *StatusHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", handler.Health)
	r.Get("/status", handler.Status)
	return r
}

// Health reports process liveness.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Direct debit service is healthy"))
}

// Status returns the last tick's summary as JSON, or 204 before the first
// tick has run.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	summary := h.jobs.LastRun()
	if summary == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		http.Error(w, "failed to encode status", http.StatusInternalServerError)
	}
}

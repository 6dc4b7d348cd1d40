package api

import (
	"net/http"
	"yard-kpi-service/internal/api/handlers"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/platform/obs"
	"yard-kpi-service/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Dependencies of the HTTP surface. A nil Logger falls back to the package logger.
// GET /distances is mounted only when Distances and NewProvider are both set.
type Deps struct {
	Runs        handlers.Runner
	Results     ports.ResultRepository
	Distances   handlers.DistanceReference
	NewProvider func(domain.DistanceTables) ports.DistanceProvider
	Metrics     *obs.Metrics
	Logger      *logrus.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = obs.Logger()
	}

	inst := &handlers.InstanceHandler{Runs: deps.Runs, Results: deps.Results}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(loggingMiddleware(logger, deps.Metrics))

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	if deps.Distances != nil && deps.NewProvider != nil {
		dist := &handlers.DistanceHandler{Reference: deps.Distances, NewProvider: deps.NewProvider}
		r.Get("/distances", dist.Lookup)
	}

	r.Route("/instances/{instance}", func(r chi.Router) {
		r.Post("/reconcile", inst.Reconcile)
		r.Get("/summary", inst.Summary)
		r.Get("/kpis", inst.KPIs)
		r.Get("/dashboard", inst.Dashboard)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, http.StatusNotFound, "not found")
	})

	return r
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"yard-kpi-service/internal/api/dto"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/platform/obs"
	"yard-kpi-service/internal/ports"
	"yard-kpi-service/internal/services"
)

// Runner triggers reconciliation runs and serves the cached dashboard.
type Runner interface {
	Reconcile(ctx context.Context, key domain.InstanceKey) (*domain.ResultSummary, error)
	Dashboard(ctx context.Context, key domain.InstanceKey) (*domain.Dashboard, error)
	InFlight(key domain.InstanceKey) (services.RunState, bool)
}

// InstanceHandler exposes the reconciliation trigger and the committed results of an instance.
type InstanceHandler struct {
	Runs    Runner
	Results ports.ResultRepository
}

func runResponse(key domain.InstanceKey, st services.RunState) dto.RunResponse {
	return dto.RunResponse{
		Instance:  key.Code(),
		RunID:     st.RunID.String(),
		Status:    string(st.Status),
		StartedAt: st.StartedAt,
	}
}

// Reconcile runs synchronously and returns the committed summary.
func (h *InstanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	key, ok := instanceKey(w, r)
	if !ok {
		return
	}

	sum, err := h.Runs.Reconcile(r.Context(), key)
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		if st, ok := h.Runs.InFlight(key); ok {
			writeJSON(w, r, http.StatusConflict, runResponse(key, st))
			return
		}
		WriteError(w, r, http.StatusConflict, "reconciliation already running")
		return
	case err != nil:
		obs.Logger().WithField("instance", key.Code()).WithError(err).Error("reconcile failed")
		WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewSummaryResponse(*sum))
}

// Summary returns the committed summary, or 202 while the first run is still processing.
func (h *InstanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	key, ok := instanceKey(w, r)
	if !ok {
		return
	}

	sum, err := h.Results.GetSummary(r.Context(), key)
	if errors.Is(err, ports.ErrNotFound) {
		if st, ok := h.Runs.InFlight(key); ok {
			writeJSON(w, r, http.StatusAccepted, runResponse(key, st))
			return
		}
		WriteError(w, r, http.StatusNotFound, "no results for instance")
		return
	}
	if err != nil {
		obs.Logger().WithField("instance", key.Code()).WithError(err).Error("get summary failed")
		WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewSummaryResponse(*sum))
}

var validCategories = map[domain.KPICategory]bool{
	"":                        true,
	domain.CategoryMovements:  true,
	domain.CategoryDistance:   true,
	domain.CategoryEfficiency: true,
}

func (h *InstanceHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	key, ok := instanceKey(w, r)
	if !ok {
		return
	}

	category := domain.KPICategory(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category"))))
	if !validCategories[category] {
		WriteError(w, r, http.StatusBadRequest, "category must be movements, distance or efficiency")
		return
	}

	kpis, err := h.Results.ListKPIs(r.Context(), key, category)
	if err != nil {
		obs.Logger().WithField("instance", key.Code()).WithError(err).Error("list kpis failed")
		WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(kpis) == 0 {
		if _, err := h.Results.GetSummary(r.Context(), key); errors.Is(err, ports.ErrNotFound) {
			WriteError(w, r, http.StatusNotFound, "no results for instance")
			return
		}
	}

	writeJSON(w, r, http.StatusOK, dto.ListKPIsResponse{Instance: key.Code(), KPIs: dto.NewKPIResponses(kpis)})
}

func (h *InstanceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	key, ok := instanceKey(w, r)
	if !ok {
		return
	}

	d, err := h.Runs.Dashboard(r.Context(), key)
	if errors.Is(err, ports.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "no results for instance")
		return
	}
	if err != nil {
		obs.Logger().WithField("instance", key.Code()).WithError(err).Error("dashboard failed")
		WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewDashboardResponse(*d))
}

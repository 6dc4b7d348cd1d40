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
)

// DistanceReference loads the current distance reference tables.
type DistanceReference interface {
	LoadDistanceTables(ctx context.Context) (domain.DistanceTables, error)
}

// DistanceHandler answers point lookups against the stored reference tables,
// so missing pairs can be checked before a run.
type DistanceHandler struct {
	Reference   DistanceReference
	NewProvider func(domain.DistanceTables) ports.DistanceProvider
}

func (h *DistanceHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		WriteError(w, r, http.StatusBadRequest, "from and to are required")
		return
	}

	tables, err := h.Reference.LoadDistanceTables(r.Context())
	if err != nil {
		obs.Logger().WithError(err).Error("load distance tables failed")
		WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res, err := h.NewProvider(tables).GetDistance(r.Context(), from, to)
	if errors.Is(err, ports.ErrDistanceNotFound) {
		WriteError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		obs.Logger().WithError(err).Error("distance lookup failed")
		WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.DistanceResponse{
		Origin:         res.Origin,
		Destination:    res.Destination,
		DistanceMeters: res.DistanceMeters,
		Source:         string(res.Source),
		Reversed:       res.Reversed,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"yard-kpi-service/internal/domain"
	"yard-kpi-service/internal/platform/obs"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Logger().WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Warn("encode response failed")
	}
}

// WriteError writes the JSON error envelope used by every endpoint.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// instanceKey parses the {instance} path parameter, writing a 400 on failure.
func instanceKey(w http.ResponseWriter, r *http.Request) (domain.InstanceKey, bool) {
	key, err := domain.ParseInstanceKey(chi.URLParam(r, "instance"))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err.Error())
		return key, false
	}
	return key, true
}

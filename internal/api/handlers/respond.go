// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tour-dashboard/backend/internal/api/middleware"
	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/livingapps"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDashboardError maps dashboard and remote errors to HTTP responses.
// Remote failures carry the raw remote message.
func writeDashboardError(w http.ResponseWriter, err error) {
	var verr *dashboard.ValidationError
	var rerr *livingapps.RemoteAPIError
	switch {
	case errors.As(err, &verr):
		middleware.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, middleware.ErrValidation,
			"Bitte alle Pflichtfelder ausfüllen", verr.FieldErrors)
	case dashboard.IsUnavailable(err):
		middleware.WriteError(w, http.StatusServiceUnavailable, middleware.ErrUnavailable, err.Error())
	case errors.As(err, &rerr):
		middleware.WriteErrorWithDetails(w, http.StatusBadGateway, middleware.ErrRemote, err.Error(),
			map[string]int{"status": rerr.StatusCode})
	default:
		middleware.WriteError(w, http.StatusBadGateway, middleware.ErrRemote, err.Error())
	}
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

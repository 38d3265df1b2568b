package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tour-dashboard/backend/internal/api/middleware"
	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/storage"
)

// MaxUpcomingLimit bounds the configurable upcoming list length.
const MaxUpcomingLimit = 100

// SettingsRequest is a partial settings update.
type SettingsRequest struct {
	UpcomingLimit *int  `json:"upcoming_limit"`
	IncludeWeekly *bool `json:"include_weekly"`
}

// GetSettings returns the active view settings.
func GetSettings(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dash.Settings())
	}
}

// UpdateSettings persists the given settings and rebuilds the view model.
func UpdateSettings(dash *dashboard.Dashboard, repo *storage.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		vs := dash.Settings()
		values := make(map[string]string)
		if req.UpcomingLimit != nil {
			if *req.UpcomingLimit < 1 || *req.UpcomingLimit > MaxUpcomingLimit {
				middleware.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, middleware.ErrValidation,
					"Invalid settings", map[string]string{storage.SettingUpcomingLimit: "must be between 1 and 100"})
				return
			}
			vs.UpcomingLimit = *req.UpcomingLimit
			values[storage.SettingUpcomingLimit] = strconv.Itoa(vs.UpcomingLimit)
		}
		if req.IncludeWeekly != nil {
			vs.IncludeWeekly = *req.IncludeWeekly
			values[storage.SettingIncludeWeekly] = strconv.FormatBool(vs.IncludeWeekly)
		}

		if len(values) > 0 {
			if err := repo.SetMany(r.Context(), values); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
				return
			}
		}
		dash.ApplySettings(vs)

		writeJSON(w, http.StatusOK, dash.Settings())
	}
}

// RestoreSettings applies settings persisted by UpdateSettings on top of the
// dashboard's configured ones. Unparseable values are ignored.
func RestoreSettings(ctx context.Context, dash *dashboard.Dashboard, repo *storage.SettingsRepository) error {
	stored, err := repo.GetAll(ctx)
	if err != nil {
		return err
	}

	vs := dash.Settings()
	if raw, ok := stored[storage.SettingUpcomingLimit]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= MaxUpcomingLimit {
			vs.UpcomingLimit = n
		}
	}
	if raw, ok := stored[storage.SettingIncludeWeekly]; ok {
		if b, err := strconv.ParseBool(raw); err == nil {
			vs.IncludeWeekly = b
		}
	}
	dash.ApplySettings(vs)
	return nil
}

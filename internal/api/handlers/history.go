package handlers

import (
	"net/http"

	"github.com/tour-dashboard/backend/internal/api/middleware"
	"github.com/tour-dashboard/backend/internal/storage"
)

// ListLoadRuns returns the most recent load cycles, newest first.
func ListLoadRuns(runs *storage.LoadRunRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := intParam(r, "limit")
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "limit must be a non-negative integer")
			return
		}

		list, err := runs.ListRecent(r.Context(), limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query load runs")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// ListSubmissions returns the most recent add-entry submissions, newest first.
func ListSubmissions(subs *storage.SubmissionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := intParam(r, "limit")
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "limit must be a non-negative integer")
			return
		}

		list, err := subs.ListRecent(r.Context(), limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query submissions")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

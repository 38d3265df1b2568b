package handlers

import (
	"net/http"

	"github.com/tour-dashboard/backend/internal/api/middleware"
	"github.com/tour-dashboard/backend/internal/calendar"
	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// ExportCalendar serves the unified entries as an iCalendar feed, optionally
// narrowed by ?participant= and ?tour=.
func ExportCalendar(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := dash.View()
		if err != nil {
			writeDashboardError(w, err)
			return
		}

		q := r.URL.Query()
		opts := calendar.ExportOptions{Name: q.Get("name"), Participant: q.Get("participant")}
		if raw := q.Get("tour"); raw != "" {
			opts.Tour = models.ParseTour(raw)
			if opts.Tour == "" {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Unknown tour: "+raw)
				return
			}
		}

		data, err := calendar.Export(vm, opts)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to render calendar")
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="tourenkalender.ics"`)
		w.Write([]byte(data))
	}
}

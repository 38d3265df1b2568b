package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tour-dashboard/backend/internal/api/middleware"
	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// DashboardResponse is the full view model plus load state.
type DashboardResponse struct {
	*dashboard.ViewModel
	Loading    bool   `json:"loading"`
	Generation uint64 `json:"generation"`
}

// GetDashboard returns the current view model. While the last load failed it
// answers 503 with the remote message so the client can offer a retry.
func GetDashboard(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := dash.View()
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		st := dash.State()
		writeJSON(w, http.StatusOK, DashboardResponse{ViewModel: vm, Loading: st.Loading, Generation: st.Generation})
	}
}

// ReloadDashboard re-fetches all three collections and returns the new view.
func ReloadDashboard(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := dash.Reload(context.WithoutCancel(r.Context()), models.TriggerManual); err != nil {
			writeDashboardError(w, &dashboard.LoadError{Err: err})
			return
		}
		GetDashboard(dash)(w, r)
	}
}

// ListUpcoming returns upcoming entries, optionally filtered by participant
// and tour and limited in count.
func ListUpcoming(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := dash.View()
		if err != nil {
			writeDashboardError(w, err)
			return
		}

		q := r.URL.Query()
		limit, ok := intParam(r, "limit")
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "limit must be a non-negative integer")
			return
		}
		opts := dashboard.UpcomingOptions{Limit: limit, Participant: q.Get("participant")}
		if raw := q.Get("tour"); raw != "" {
			opts.Tour = models.ParseTour(raw)
			if opts.Tour == "" {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Unknown tour: "+raw)
				return
			}
		}

		writeJSON(w, http.StatusOK, vm.UpcomingFor(dash.Now(), opts))
	}
}

// GetEntry returns one unified entry with participants and tour resolved.
func GetEntry(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := dash.View()
		if err != nil {
			writeDashboardError(w, err)
			return
		}

		id := mux.Vars(r)["id"]
		entry, ok := vm.Entry(id)
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Entry not found")
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// CreateEntry submits the add-entry form. Missing times fall back to the form
// defaults.
func CreateEntry(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := dashboard.NewEntryForm()
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		result, err := dash.CreateEntry(r.Context(), form)
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

// ToursResponse is the tour distribution of a period with its most active
// participants.
type ToursResponse struct {
	dashboard.PeriodSummary
	Active []dashboard.ParticipantStat `json:"active"`
}

// GetTours returns the tour distribution for ?period=week|month.
func GetTours(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := dash.View()
		if err != nil {
			writeDashboardError(w, err)
			return
		}

		kind, err := dashboard.ParsePeriodKind(r.URL.Query().Get("period"))
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}
		limit, ok := intParam(r, "limit")
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "limit must be a non-negative integer")
			return
		}

		now := dash.Now()
		writeJSON(w, http.StatusOK, ToursResponse{
			PeriodSummary: vm.ToursFor(kind, now),
			Active:        vm.ActiveFor(kind, now, limit),
		})
	}
}

// ListParticipants returns all users ordered by last name with their
// assignment counts.
func ListParticipants(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := dash.View()
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vm.Participants)
	}
}

// ListDays returns entries grouped by day, ?filter=upcoming (default) or all.
func ListDays(dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := dash.View()
		if err != nil {
			writeDashboardError(w, err)
			return
		}

		filter := dashboard.DayFilter(r.URL.Query().Get("filter"))
		switch filter {
		case "":
			filter = dashboard.DaysUpcoming
		case dashboard.DaysUpcoming, dashboard.DaysAll:
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Unknown filter: "+string(filter))
			return
		}
		writeJSON(w, http.StatusOK, vm.DaysFor(filter, dash.Now()))
	}
}

// UserResponse is one user record with its resolved display fields.
type UserResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Assembly      string `json:"assembly,omitempty"`
	AssemblyLabel string `json:"assembly_label,omitempty"`
	Pioneer       bool   `json:"pioneer"`
	Ref           string `json:"ref"`
}

// ListUsers returns the user directory ordered by last name. Ref is the
// lookup reference the add-entry form sends for a participant.
func ListUsers(dash *dashboard.Dashboard, userRef func(id string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := dash.View()
		if err != nil {
			writeDashboardError(w, err)
			return
		}

		users := vm.Directory().SortedByLastName()
		resp := make([]UserResponse, 0, len(users))
		for _, u := range users {
			assembly := u.Fields.AssemblyTag()
			resp = append(resp, UserResponse{
				ID:            u.ID,
				Name:          u.Fields.DisplayName(),
				FirstName:     u.Fields.FirstName.String(),
				LastName:      u.Fields.LastName.String(),
				Assembly:      string(assembly),
				AssemblyLabel: assembly.Label(),
				Pioneer:       bool(u.Fields.Pioneer),
				Ref:           userRef(u.ID),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

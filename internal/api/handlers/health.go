package handlers

import (
	"net/http"
	"time"

	"github.com/tour-dashboard/backend/internal/calendar"
	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/logging"
	"github.com/tour-dashboard/backend/internal/storage"
	"github.com/tour-dashboard/backend/internal/storage/models"
	"github.com/tour-dashboard/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status          string `json:"status"`
	DBConnected     bool   `json:"db_connected"`
	DashboardLoaded bool   `json:"dashboard_loaded"`
}

// HealthCheck returns a handler that performs a health check. A dashboard
// that has not loaded yet does not make the process unhealthy.
func HealthCheck(db *storage.DB, dash *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{
			Status:          status,
			DBConnected:     dbConnected,
			DashboardLoaded: dash.State().View != nil,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Version          string          `json:"version"`
	Loading          bool            `json:"loading"`
	Generation       uint64          `json:"generation"`
	LoadedAt         *time.Time      `json:"loaded_at,omitempty"`
	LastError        string          `json:"last_error,omitempty"`
	Users            int             `json:"users"`
	Entries          int             `json:"entries"`
	Schedule         string          `json:"schedule,omitempty"`
	NextReloadAt     *time.Time      `json:"next_reload_at,omitempty"`
	WebSocketClients int             `json:"websocket_clients"`
	LastRun          *models.LoadRun `json:"last_run,omitempty"`
}

// Status returns a handler that provides system status information.
func Status(
	dash *dashboard.Dashboard,
	scheduler *calendar.Scheduler,
	hub *websocket.Hub,
	runs *storage.LoadRunRepository,
	version string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := dash.State()
		resp := StatusResponse{
			Version:          version,
			Loading:          st.Loading,
			Generation:       st.Generation,
			WebSocketClients: hub.ClientCount(),
		}
		if st.Err != nil {
			resp.LastError = st.Err.Error()
		}
		if st.View != nil {
			loadedAt := st.View.LoadedAt
			resp.LoadedAt = &loadedAt
			resp.Users = st.View.Users
			resp.Entries = len(st.View.Entries)
		}
		if scheduler != nil {
			resp.Schedule = scheduler.Schedule()
			resp.NextReloadAt = scheduler.NextRun()
		}
		if runs != nil {
			last, err := runs.Latest(r.Context())
			if err != nil {
				logger := logging.Component("api")
				logger.Debug().Err(err).Msg("Failed to read last load run")
			}
			resp.LastRun = last
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

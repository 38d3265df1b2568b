// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tour-dashboard/backend/internal/api/handlers"
	"github.com/tour-dashboard/backend/internal/api/middleware"
	"github.com/tour-dashboard/backend/internal/auth"
	"github.com/tour-dashboard/backend/internal/calendar"
	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/metrics"
	"github.com/tour-dashboard/backend/internal/storage"
	"github.com/tour-dashboard/backend/internal/websocket"
)

// Services are the dependencies of the HTTP API. Scheduler, Metrics and
// Credentials may be nil.
type Services struct {
	DB          *storage.DB
	Dashboard   *dashboard.Dashboard
	UserRef     func(id string) string
	Scheduler   *calendar.Scheduler
	Hub         *websocket.Hub
	Metrics     *metrics.Metrics
	Credentials *auth.Credentials
	StaticDir   string
	Version     string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	loadRuns := storage.NewLoadRunRepository(s.DB)
	submissions := storage.NewSubmissionRepository(s.DB)
	settings := storage.NewSettingsRepository(s.DB)
	protect := middleware.BasicAuth(s.Credentials)

	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB, s.Dashboard)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(s.Dashboard, s.Scheduler, s.Hub, loadRuns, s.Version)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub)).Methods("GET")

	// Dashboard endpoints
	api.HandleFunc("/dashboard", handlers.GetDashboard(s.Dashboard)).Methods("GET")
	api.HandleFunc("/dashboard/reload", protect(handlers.ReloadDashboard(s.Dashboard))).Methods("POST")
	api.HandleFunc("/tours", handlers.GetTours(s.Dashboard)).Methods("GET")
	api.HandleFunc("/participants", handlers.ListParticipants(s.Dashboard)).Methods("GET")
	api.HandleFunc("/days", handlers.ListDays(s.Dashboard)).Methods("GET")
	api.HandleFunc("/users", handlers.ListUsers(s.Dashboard, s.UserRef)).Methods("GET")
	api.HandleFunc("/calendar.ics", handlers.ExportCalendar(s.Dashboard)).Methods("GET")

	// Entry endpoints
	api.HandleFunc("/entries", protect(handlers.CreateEntry(s.Dashboard))).Methods("POST")
	api.HandleFunc("/entries/upcoming", handlers.ListUpcoming(s.Dashboard)).Methods("GET")
	api.HandleFunc("/entries/{id}", handlers.GetEntry(s.Dashboard)).Methods("GET")

	// History endpoints
	api.HandleFunc("/load-runs", handlers.ListLoadRuns(loadRuns)).Methods("GET")
	api.HandleFunc("/submissions", handlers.ListSubmissions(submissions)).Methods("GET")

	// Settings endpoints
	api.HandleFunc("/settings", handlers.GetSettings(s.Dashboard)).Methods("GET")
	api.HandleFunc("/settings", protect(handlers.UpdateSettings(s.Dashboard, settings))).Methods("PUT")

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler()).Methods("GET")
	}

	// Serve static frontend files
	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return r
}

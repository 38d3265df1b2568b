// Package main is the entry point for the tour dashboard server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tour-dashboard/backend/internal/api"
	"github.com/tour-dashboard/backend/internal/api/handlers"
	"github.com/tour-dashboard/backend/internal/auth"
	"github.com/tour-dashboard/backend/internal/calendar"
	"github.com/tour-dashboard/backend/internal/config"
	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/livingapps"
	"github.com/tour-dashboard/backend/internal/logging"
	"github.com/tour-dashboard/backend/internal/metrics"
	"github.com/tour-dashboard/backend/internal/storage"
	"github.com/tour-dashboard/backend/internal/storage/models"
	"github.com/tour-dashboard/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := runHashPassword(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Parse command-line flags
	configPath := flag.String("config", "", "Path to the YAML configuration file (default <data>/config.yaml)")
	addr := flag.String("addr", "", "HTTP server address (overrides config)")
	dataDir := flag.String("data", config.DefaultDataDir, "Data directory for configuration and SQLite database")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides config)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		target := *addr
		if target == "" {
			target = config.DefaultListen
		}
		if err := runHealthCheck(target); err != nil {
			fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	if *configPath == "" {
		*configPath = filepath.Join(*dataDir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(*configPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create config directory: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "data" {
			cfg.DataDir = *dataDir
		}
	})

	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Invalid configuration")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	logger := logging.Component("main")
	logger.Info().Str("version", version).Msg("Starting tour dashboard")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	m := metrics.New()

	// Initialize database
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	logger.Info().Str("path", db.Path()).Msg("Database ready")

	// Remote record service
	client, err := livingapps.NewClient(livingapps.Config{
		BaseURL:           cfg.Remote.BaseURL,
		SessionCookieName: cfg.Remote.SessionCookieName,
		Session:           cfg.Remote.Session,
		Metrics:           m,
	})
	if err != nil {
		return err
	}
	if cfg.Remote.Session == "" {
		logger.Warn().Msg("No session configured; the record service may reject requests")
	}
	svc := livingapps.NewService(client, cfg.Remote.Apps)
	apps := svc.Apps()
	logger.Info().
		Str("base_url", client.BaseURL()).
		Str("users", apps.Users).
		Str("calendar_entries", apps.CalendarEntries).
		Str("weekly_entries", apps.WeeklyEntries).
		Msg("Record service configured")

	dash := dashboard.New(svc, dashboard.Options{
		Location:          loc,
		UpcomingLimit:     cfg.UpcomingLimit,
		IncludeWeekly:     cfg.WeeklyIncluded(),
		ParticipantPolicy: policy,
		History:           storage.NewLoadRunRepository(db),
		Submissions:       storage.NewSubmissionRepository(db),
		Metrics:           m,
	})
	if err := handlers.RestoreSettings(context.Background(), dash, storage.NewSettingsRepository(db)); err != nil {
		logger.Warn().Err(err).Msg("Failed to restore stored settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize WebSocket hub
	hub := websocket.NewHub(m)
	go hub.Run(ctx)
	dash.AddObserver(websocket.NewEventBroadcaster(hub))

	scheduler, err := calendar.NewScheduler(dash, cfg.Refresh)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initial load runs in the background; views answer 503 until it lands.
	scheduler.TriggerReload(models.TriggerStartup)

	var creds *auth.Credentials
	if cfg.BasicAuth != nil {
		creds = &auth.Credentials{Username: cfg.BasicAuth.Username, PasswordHash: cfg.BasicAuth.PasswordHash}
		logger.Info().Str("username", creds.Username).Msg("Basic auth enabled for write endpoints")
	}

	router := api.NewRouter(api.Services{
		DB:          db,
		Dashboard:   dash,
		UserRef:     svc.UserRef,
		Scheduler:   scheduler,
		Hub:         hub,
		Metrics:     m,
		Credentials: creds,
		StaticDir:   cfg.StaticDir,
		Version:     version,
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Listen).Msg("Server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// Package config loads the server configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/tour-dashboard/backend/internal/auth"
	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/livingapps"
	"github.com/tour-dashboard/backend/internal/logging"
	"github.com/tour-dashboard/backend/internal/lookup"
)

// Environment overrides.
const (
	EnvListen    = "DASHBOARD_LISTEN"
	EnvBaseURL   = "LIVINGAPPS_BASE_URL"
	EnvSession   = "LIVINGAPPS_SESSION"
	EnvLogLevel  = "DASHBOARD_LOG_LEVEL"
	EnvLogPretty = "DASHBOARD_LOG_PRETTY"
)

// Defaults.
const (
	DefaultListen    = ":8099"
	DefaultDataDir   = "/data"
	DefaultStaticDir = "./static"
	DefaultTimezone  = "Europe/Berlin"
	DefaultRefresh   = "@every 15m"
	DefaultLogLevel  = "info"
)

// RemoteConfig points the record client at the hosted service.
type RemoteConfig struct {
	BaseURL           string          `yaml:"base_url" json:"base_url"`
	SessionCookieName string          `yaml:"session_cookie_name" json:"session_cookie_name"`
	Session           string          `yaml:"session" json:"-"`
	Apps              livingapps.Apps `yaml:"apps" json:"apps"`
}

// BasicAuthConfig protects the mutating endpoints. PasswordHash is an
// argon2id hash as produced by the hash-password command.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"-"`
}

// Config is the top-level server configuration.
type Config struct {
	Listen    string `yaml:"listen" json:"listen"`
	DataDir   string `yaml:"data_dir" json:"data_dir"`
	StaticDir string `yaml:"static_dir" json:"static_dir"`

	// Timezone is the IANA zone dates without an offset are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogPretty bool   `yaml:"log_pretty" json:"log_pretty"`

	Remote RemoteConfig `yaml:"remote" json:"remote"`

	// Refresh is a cron schedule for periodic reloads. Empty disables them.
	Refresh string `yaml:"refresh" json:"refresh"`

	UpcomingLimit int `yaml:"upcoming_limit" json:"upcoming_limit"`

	// IncludeWeekly merges the weekly calendar into the unified entries.
	IncludeWeekly *bool `yaml:"include_weekly" json:"include_weekly"`

	// ParticipantFields is "omit" or "null".
	ParticipantFields string `yaml:"participant_fields" json:"participant_fields"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	includeWeekly := true
	return &Config{
		Listen:    DefaultListen,
		DataDir:   DefaultDataDir,
		StaticDir: DefaultStaticDir,
		Timezone:  DefaultTimezone,
		LogLevel:  DefaultLogLevel,
		Remote: RemoteConfig{
			BaseURL:           lookup.DefaultBaseURL,
			SessionCookieName: livingapps.DefaultSessionCookie,
			Apps:              livingapps.DefaultApps,
		},
		Refresh:           DefaultRefresh,
		UpcomingLimit:     dashboard.DefaultUpcomingLimit,
		IncludeWeekly:     &includeWeekly,
		ParticipantFields: string(dashboard.ParticipantOmit),
	}
}

// Normalize fills zero values with defaults. An explicitly empty refresh is
// kept because it disables periodic reloads.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.StaticDir == "" {
		c.StaticDir = def.StaticDir
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = def.Remote.BaseURL
	}
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")
	if c.Remote.SessionCookieName == "" {
		c.Remote.SessionCookieName = def.Remote.SessionCookieName
	}
	if c.Remote.Apps.Users == "" {
		c.Remote.Apps.Users = def.Remote.Apps.Users
	}
	if c.Remote.Apps.CalendarEntries == "" {
		c.Remote.Apps.CalendarEntries = def.Remote.Apps.CalendarEntries
	}
	if c.Remote.Apps.WeeklyEntries == "" {
		c.Remote.Apps.WeeklyEntries = def.Remote.Apps.WeeklyEntries
	}
	if c.UpcomingLimit <= 0 {
		c.UpcomingLimit = def.UpcomingLimit
	}
	if c.IncludeWeekly == nil {
		c.IncludeWeekly = def.IncludeWeekly
	}
	if c.ParticipantFields == "" {
		c.ParticipantFields = def.ParticipantFields
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.PasswordHash == "" {
		c.BasicAuth = nil
	}
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Remote.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvSession); v != "" {
		c.Remote.Session = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogPretty); v != "" {
		c.LogPretty = v == "1" || strings.EqualFold(v, "true")
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	for name, id := range map[string]string{
		"remote.apps.users":            c.Remote.Apps.Users,
		"remote.apps.calendar_entries": c.Remote.Apps.CalendarEntries,
		"remote.apps.weekly_entries":   c.Remote.Apps.WeeklyEntries,
	} {
		if !lookup.IsRecordID(id) {
			return fmt.Errorf("%s: %q is not a 24 character hex id", name, id)
		}
	}
	if !strings.HasPrefix(c.Remote.BaseURL, "http://") && !strings.HasPrefix(c.Remote.BaseURL, "https://") {
		return fmt.Errorf("remote.base_url: %q must be an http(s) URL", c.Remote.BaseURL)
	}
	if c.Refresh != "" {
		if _, err := cron.ParseStandard(c.Refresh); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}
	if c.BasicAuth != nil {
		if c.BasicAuth.Username == "" || c.BasicAuth.PasswordHash == "" {
			return errors.New("basic_auth: username and password_hash are both required")
		}
		if err := auth.ValidateHash(c.BasicAuth.PasswordHash); err != nil {
			return fmt.Errorf("basic_auth.password_hash: %w", err)
		}
	}
	return nil
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// Policy returns the participant field policy.
func (c *Config) Policy() (dashboard.ParticipantPolicy, error) {
	p, err := dashboard.ParseParticipantPolicy(c.ParticipantFields)
	if err != nil {
		return "", fmt.Errorf("participant_fields: %w", err)
	}
	return p, nil
}

// WeeklyIncluded reports whether weekly entries are merged.
func (c *Config) WeeklyIncluded() bool {
	return c.IncludeWeekly == nil || *c.IncludeWeekly
}

// Load reads the YAML file at path. A missing file is created with the
// defaults and 0600 permissions. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
		logger := logging.Component("config")
		logger.Info().Str("path", path).Msg("Wrote default configuration")
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		// A key present but empty in the file keeps refresh disabled.
		if !hasKey(data, "refresh") {
			cfg.Refresh = DefaultRefresh
		}
	}

	cfg.Normalize()
	cfg.ApplyEnv()
	return cfg, nil
}

func hasKey(data []byte, key string) bool {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false
	}
	_, ok := raw[key]
	return ok
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dashboard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

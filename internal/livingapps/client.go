// Package livingapps is a client for the hosted per-collection record API.
package livingapps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tour-dashboard/backend/internal/logging"
	"github.com/tour-dashboard/backend/internal/lookup"
	"github.com/tour-dashboard/backend/internal/metrics"
)

// DefaultSessionCookie is the cookie name carrying the session credentials.
const DefaultSessionCookie = "sessionid"

// ErrNotFound matches a RemoteAPIError for a 404 response, and Get on a
// record the service reports as empty.
var ErrNotFound = errors.New("livingapps: record not found")

// RemoteAPIError is returned for every non-2xx response. Its message is the
// raw response body.
type RemoteAPIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *RemoteAPIError) Error() string {
	if msg := strings.TrimSpace(e.Body); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *RemoteAPIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Config configures a Client.
type Config struct {
	// BaseURL is the REST root, e.g. https://my.living-apps.de/rest
	BaseURL string

	// SessionCookieName and Session carry the session credentials sent with
	// every request. Cookies set by the service are kept for later requests.
	SessionCookieName string
	Session           string

	// HTTPClient overrides the transport. Its Jar is replaced when nil.
	HTTPClient *http.Client

	Metrics *metrics.Metrics
}

// Client issues JSON requests against the record service. Each call is a
// single attempt; cancellation and deadlines come from the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewClient creates a client. It fails only when BaseURL cannot be parsed.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = lookup.DefaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	if cfg.Session != "" {
		name := cfg.SessionCookieName
		if name == "" {
			name = DefaultSessionCookie
		}
		httpClient.Jar.SetCookies(baseURL, []*http.Cookie{{
			Name:  name,
			Value: cfg.Session,
			Path:  "/",
		}})
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     logging.Component("livingapps"),
	}, nil
}

// BaseURL returns the REST root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call performs one request and returns the raw response body of a 2xx
// response. collection only labels metrics and logs.
func (c *Client) call(ctx context.Context, collection, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRemoteRequest(collection, method, 0, time.Since(start), true)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.metrics.ObserveRemoteRequest(collection, method, resp.StatusCode, time.Since(start), !ok || err != nil)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug().
		Str("collection", collection).
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("remote request")

	if !ok {
		return nil, &RemoteAPIError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}
	return data, nil
}

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRemoteRequest("users", "GET", 200, time.Millisecond, false)
	m.LoadSucceeded(time.Now(), 1, 2, 3)
	m.LoadFailed()
	m.LoadDiscarded()
	m.Submission("failed")
	m.SetWebSocketClients(2)
	if m.Registry() != nil {
		t.Error("nil metrics should have nil registry")
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRemoteRequest("calendar_entries", "GET", 500, 20*time.Millisecond, true)
	m.LoadSucceeded(time.Unix(1700000000, 0), 4, 10, 2)
	m.Submission("succeeded")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`tour_dashboard_remote_errors_total{collection="calendar_entries",method="GET"} 1`,
		`tour_dashboard_dashboard_loads_total{result="success"} 1`,
		`tour_dashboard_dashboard_records{collection="calendar_entries"} 10`,
		`tour_dashboard_entries_submissions_total{result="succeeded"} 1`,
		`tour_dashboard_dashboard_last_success_timestamp_seconds 1.7e+09`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

package dashboard

import (
	"strings"
	"time"
)

// NoDate is the day-group key for entries without a start datetime.
const NoDate = "none"

const dateLayout = "2006-01-02"

// Layouts without a zone are interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses the datetime strings the record service stores
// (YYYY-MM-DDTHH:MM with optional seconds, a bare date, or either time form
// with an offset). Values carrying an offset are converted into loc. It
// reports false instead of failing so callers can exclude the entry and
// continue.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey returns the YYYY-MM-DD key of a start datetime: the literal date
// portion of the string, so an offset never moves an entry to another day.
// Missing values map to NoDate; unparseable ones report false.
func DayKey(start string, loc *time.Location) (string, bool) {
	start = strings.TrimSpace(start)
	if start == "" {
		return NoDate, true
	}
	t, ok := ParseDateTime(start, loc)
	if !ok {
		return "", false
	}
	if len(start) >= len(dateLayout) {
		if _, err := time.Parse(dateLayout, start[:len(dateLayout)]); err == nil {
			return start[:len(dateLayout)], true
		}
	}
	return t.Format(dateLayout), true
}

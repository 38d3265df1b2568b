package dashboard

import (
	"fmt"
	"strings"
	"time"
)

// PeriodKind selects the aggregation window.
type PeriodKind string

// Supported periods.
const (
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

// ParsePeriodKind accepts "week" or "month"; an empty string selects month.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch PeriodKind(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth, "":
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Period is an inclusive time interval.
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

// WeekOf returns Monday 00:00 through Sunday 23:59:59.999999999 of the week
// containing now, in now's location.
func WeekOf(now time.Time) Period {
	day := StartOfDay(now)
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	start := day.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return Period{Kind: PeriodWeek, Start: start, End: end}
}

// MonthOf returns the first through the last calendar day of now's month.
func MonthOf(now time.Time) Period {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return Period{Kind: PeriodMonth, Start: start, End: end}
}

// PeriodFor returns the period of the given kind containing now.
func PeriodFor(kind PeriodKind, now time.Time) Period {
	if kind == PeriodWeek {
		return WeekOf(now)
	}
	return MonthOf(now)
}

// Contains reports whether t lies within the period, both ends inclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

package dashboard

import (
	"sort"
	"time"

	"github.com/tour-dashboard/backend/internal/storage/models"
)

// UpcomingOptions narrows the upcoming list. Zero values disable a filter.
type UpcomingOptions struct {
	Limit       int
	Participant string
	Tour        models.Tour
}

// Upcoming returns the entries starting today or later, compared by calendar
// day in now's location, sorted ascending by the raw start string. Entries
// without a parseable start are skipped.
func Upcoming(entries []models.UnifiedEntry, now time.Time, opts UpcomingOptions) []models.UnifiedEntry {
	today := StartOfDay(now)
	out := make([]models.UnifiedEntry, 0)
	for _, e := range entries {
		start, ok := ParseDateTime(e.Start, now.Location())
		if !ok || start.Before(today) {
			continue
		}
		if opts.Participant != "" && !e.HasParticipant(opts.Participant) {
			continue
		}
		if opts.Tour != "" && e.Tour != opts.Tour {
			continue
		}
		out = append(out, e)
	}

	SortByStart(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// SortByStart sorts entries in place by their raw start string. For
// well-formed ISO 8601 values this is chronological order; ties keep their
// incoming order.
func SortByStart(entries []models.UnifiedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Start < entries[j].Start
	})
}

// InPeriod returns the entries whose start lies within p. Entries with a
// missing or unparseable start are excluded.
func InPeriod(entries []models.UnifiedEntry, p Period) []models.UnifiedEntry {
	out := make([]models.UnifiedEntry, 0)
	for _, e := range entries {
		start, ok := ParseDateTime(e.Start, p.Start.Location())
		if !ok || !p.Contains(start) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TourCounts maps each known tour to its number of entries.
type TourCounts map[models.Tour]int

// Total sums the counts of all known tours.
func (c TourCounts) Total() int {
	total := 0
	for _, t := range models.Tours {
		total += c[t]
	}
	return total
}

// TourDistribution counts entries per known tour. Every known tour is present
// in the result; entries without a known tour are not counted.
func TourDistribution(entries []models.UnifiedEntry) TourCounts {
	counts := make(TourCounts, len(models.Tours))
	for _, t := range models.Tours {
		counts[t] = 0
	}
	for _, e := range entries {
		if e.Tour.Valid() {
			counts[e.Tour]++
		}
	}
	return counts
}

// ParticipantLoad counts how often each participant id appears across all
// participant slots of entries.
func ParticipantLoad(entries []models.UnifiedEntry) map[string]int {
	load := make(map[string]int)
	for _, e := range entries {
		for _, id := range e.Participants {
			if id != "" {
				load[id]++
			}
		}
	}
	return load
}

// DayGroup is a run of entries sharing a calendar day.
type DayGroup struct {
	// Date is YYYY-MM-DD, or NoDate for entries without a start.
	Date    string                `json:"date"`
	Entries []models.UnifiedEntry `json:"entries"`
}

// GroupByDay partitions entries by the calendar day of their start, keeping
// the order of first appearance for groups and the incoming order within each
// group. Entries with an unparseable start are excluded.
func GroupByDay(entries []models.UnifiedEntry, loc *time.Location) []DayGroup {
	groups := make([]DayGroup, 0)
	index := make(map[string]int)
	for _, e := range entries {
		key, ok := DayKey(e.Start, loc)
		if !ok {
			continue
		}
		i, seen := index[key]
		if !seen {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: key})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

package dashboard

import (
	"reflect"
	"testing"
	"time"

	"github.com/tour-dashboard/backend/internal/storage/models"
)

// Wednesday afternoon.
var testNow = time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)

func entry(id, start string, tour models.Tour, participants ...string) models.UnifiedEntry {
	if participants == nil {
		participants = []string{}
	}
	return models.UnifiedEntry{
		ID:           id,
		Source:       models.SourceCalendar,
		Start:        start,
		Tour:         tour,
		Participants: participants,
	}
}

func ids(entries []models.UnifiedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestUpcomingComparesByCalendarDay(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("tomorrow", "2024-06-13T09:00", models.Tour1),
		entry("yesterday", "2024-06-11T10:00", models.Tour1),
		// Earlier than now but still today.
		entry("today", "2024-06-12T08:00", models.Tour2),
	}

	got := ids(Upcoming(entries, testNow, UpcomingOptions{}))
	want := []string{"today", "tomorrow"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Upcoming = %v, want %v", got, want)
	}
}

func TestUpcomingFiltersAndLimit(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("e1", "2024-06-14T09:00", models.Tour1, "A"),
		entry("e2", "2024-06-13T09:00", models.Tour2, "A", "B"),
		entry("e3", "2024-06-15T09:00", models.Tour1, "B"),
		entry("e4", "", models.Tour1, "A"),
		entry("e5", "garbage", models.Tour1, "A"),
	}

	tests := []struct {
		name string
		opts UpcomingOptions
		want []string
	}{
		{"all", UpcomingOptions{}, []string{"e2", "e1", "e3"}},
		{"limit", UpcomingOptions{Limit: 2}, []string{"e2", "e1"}},
		{"participant", UpcomingOptions{Participant: "A"}, []string{"e2", "e1"}},
		{"tour", UpcomingOptions{Tour: models.Tour1}, []string{"e1", "e3"}},
		{"participant and tour", UpcomingOptions{Participant: "B", Tour: models.Tour2}, []string{"e2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Upcoming(entries, testNow, tt.opts))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Upcoming = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInPeriodWeekBoundsAreInclusive(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("monday", "2024-06-10T00:00", models.Tour1),
		entry("sunday", "2024-06-16T23:59", models.Tour1),
		entry("next-monday", "2024-06-17T00:00", models.Tour1),
		entry("previous-sunday", "2024-06-09T23:59", models.Tour1),
		entry("missing", "", models.Tour1),
		entry("broken", "16.06.2024", models.Tour1),
	}

	got := ids(InPeriod(entries, WeekOf(testNow)))
	want := []string{"monday", "sunday"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InPeriod(week) = %v, want %v", got, want)
	}
}

func TestInPeriodMonth(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("first", "2024-06-01", models.Tour1),
		entry("last", "2024-06-30T23:59:59", models.Tour1),
		entry("july", "2024-07-01T00:00", models.Tour1),
		entry("may", "2024-05-31T23:59", models.Tour1),
	}

	got := ids(InPeriod(entries, MonthOf(testNow)))
	want := []string{"first", "last"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InPeriod(month) = %v, want %v", got, want)
	}
}

func TestTourDistribution(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("1", "2024-06-12", models.Tour1),
		entry("2", "2024-06-12", models.Tour1),
		entry("3", "2024-06-12", models.Tour2),
		entry("4", "2024-06-12", ""),
		entry("5", "2024-06-12", models.Tour("unknown")),
	}

	got := TourDistribution(entries)
	want := TourCounts{models.Tour1: 2, models.Tour2: 1, models.Tour3: 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TourDistribution = %v, want %v", got, want)
	}
	if got.Total() != 3 {
		t.Errorf("Total = %d, want 3", got.Total())
	}
}

func TestTourDistributionEmpty(t *testing.T) {
	got := TourDistribution(nil)
	for _, tour := range models.Tours {
		if n, ok := got[tour]; !ok || n != 0 {
			t.Errorf("count for %s = %d (present %v), want 0", tour, n, ok)
		}
	}
}

func TestParticipantLoad(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("1", "2024-06-12", models.Tour1, "A", "B"),
		entry("2", "2024-06-13", models.Tour1, "A"),
	}

	got := ParticipantLoad(entries)
	want := map[string]int{"A": 2, "B": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParticipantLoad = %v, want %v", got, want)
	}
}

func TestGroupByDay(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("a", "2024-06-01T09:00", models.Tour1),
		entry("b", "2024-06-01T14:00", models.Tour2),
		entry("c", "2024-06-02T09:00", models.Tour1),
	}

	groups := GroupByDay(entries, time.UTC)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Date != "2024-06-01" || !reflect.DeepEqual(ids(groups[0].Entries), []string{"a", "b"}) {
		t.Errorf("group 0 = %s %v", groups[0].Date, ids(groups[0].Entries))
	}
	if groups[1].Date != "2024-06-02" || !reflect.DeepEqual(ids(groups[1].Entries), []string{"c"}) {
		t.Errorf("group 1 = %s %v", groups[1].Date, ids(groups[1].Entries))
	}
}

func TestGroupByDayMissingAndBrokenStarts(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("a", "2024-06-01T09:00", models.Tour1),
		entry("none", "", models.Tour1),
		entry("broken", "tomorrow", models.Tour1),
	}

	groups := GroupByDay(entries, time.UTC)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[1].Date != NoDate || groups[1].Entries[0].ID != "none" {
		t.Errorf("group 1 = %s %v, want %s [none]", groups[1].Date, ids(groups[1].Entries), NoDate)
	}
}

func TestSortByStartIsStable(t *testing.T) {
	entries := []models.UnifiedEntry{
		entry("late", "2024-06-02T09:00", models.Tour1),
		entry("first", "2024-06-01T09:00", models.Tour1),
		entry("second", "2024-06-01T09:00", models.Tour2),
	}
	SortByStart(entries)

	want := []string{"first", "second", "late"}
	if got := ids(entries); !reflect.DeepEqual(got, want) {
		t.Errorf("SortByStart = %v, want %v", got, want)
	}
}

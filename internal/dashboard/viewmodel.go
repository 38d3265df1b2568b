package dashboard

import (
	"time"

	"github.com/tour-dashboard/backend/internal/storage/models"
)

// DefaultUpcomingLimit is the number of upcoming entries shown when no limit is set.
const DefaultUpcomingLimit = 8

// EntryView is a unified entry with display data resolved.
type EntryView struct {
	models.UnifiedEntry
	TourLabel string `json:"tour_label,omitempty"`
	// ParticipantNames is aligned with Participants; unknown users map to "".
	ParticipantNames []string `json:"participant_names"`
}

// PeriodSummary is the tour distribution of one period.
type PeriodSummary struct {
	Period Period     `json:"period"`
	Tours  TourCounts `json:"tours"`
	Total  int        `json:"total"`
}

// BuildOptions configures view-model derivation.
type BuildOptions struct {
	Location      *time.Location
	UpcomingLimit int
	IncludeWeekly bool
}

// ViewModel is the derived, read-only state of one load cycle.
type ViewModel struct {
	LoadedAt     time.Time         `json:"loaded_at"`
	Users        int               `json:"users"`
	Entries      []EntryView       `json:"-"`
	Upcoming     []EntryView       `json:"upcoming"`
	Week         PeriodSummary     `json:"week"`
	Month        PeriodSummary     `json:"month"`
	Participants []ParticipantStat `json:"participants"`
	Active       []ParticipantStat `json:"active"`
	Days         []DayView         `json:"days"`
	FormDefaults EntryForm         `json:"form_defaults"`

	unified   []models.UnifiedEntry
	directory *Directory
	location  *time.Location
	limit     int
}

// DayView is a day group with resolved entries.
type DayView struct {
	Date    string      `json:"date"`
	Entries []EntryView `json:"entries"`
}

// Build derives the view model of a snapshot as seen at now.
func Build(snap *Snapshot, now time.Time, opts BuildOptions) *ViewModel {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	limit := opts.UpcomingLimit
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}

	weekly := snap.WeeklyEntries
	if !opts.IncludeWeekly {
		weekly = nil
	}
	unified := Normalize(snap.CalendarEntries, weekly)
	dir := NewDirectory(snap.Users)

	vm := &ViewModel{
		LoadedAt:  snap.FetchedAt,
		Users:     dir.Len(),
		unified:   unified,
		directory: dir,
		location:  loc,
		limit:     limit,
	}
	vm.Entries = vm.resolve(unified)
	vm.Upcoming = vm.resolve(Upcoming(unified, now, UpcomingOptions{Limit: limit}))
	vm.Week = vm.summary(WeekOf(now))
	vm.Month = vm.summary(MonthOf(now))

	load := ParticipantLoad(unified)
	vm.Participants = dir.Participants(load)
	vm.Active = dir.RankActive(ParticipantLoad(InPeriod(unified, vm.Month.Period)), 0)
	vm.Days = vm.DaysFor(DaysUpcoming, now)

	form := NewEntryForm()
	form.DateFrom = now.Format("2006-01-02")
	form.DateTo = form.DateFrom
	vm.FormDefaults = form
	return vm
}

// DayFilter selects which entries DaysFor groups.
type DayFilter string

// Day filters.
const (
	// DaysUpcoming groups the upcoming entries without a limit.
	DaysUpcoming DayFilter = "upcoming"
	DaysAll      DayFilter = "all"
)

func (vm *ViewModel) summary(p Period) PeriodSummary {
	counts := TourDistribution(InPeriod(vm.unified, p))
	return PeriodSummary{Period: p, Tours: counts, Total: counts.Total()}
}

func (vm *ViewModel) resolve(entries []models.UnifiedEntry) []EntryView {
	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, vm.resolveOne(e))
	}
	return views
}

func (vm *ViewModel) resolveOne(e models.UnifiedEntry) EntryView {
	names := make([]string, len(e.Participants))
	for i, id := range e.Participants {
		names[i] = vm.directory.Name(id)
	}
	return EntryView{UnifiedEntry: e, TourLabel: e.Tour.Label(), ParticipantNames: names}
}

// Directory returns the user directory of the snapshot.
func (vm *ViewModel) Directory() *Directory {
	return vm.directory
}

// Location returns the zone dates are interpreted in.
func (vm *ViewModel) Location() *time.Location {
	return vm.location
}

// UpcomingFor returns upcoming entries as seen at now. A zero limit uses the
// limit the view model was built with.
func (vm *ViewModel) UpcomingFor(now time.Time, opts UpcomingOptions) []EntryView {
	if opts.Limit == 0 {
		opts.Limit = vm.limit
	}
	return vm.resolve(Upcoming(vm.unified, now.In(vm.location), opts))
}

// Entry returns one entry by record id.
func (vm *ViewModel) Entry(id string) (EntryView, bool) {
	for _, e := range vm.unified {
		if e.ID == id {
			return vm.resolveOne(e), true
		}
	}
	return EntryView{}, false
}

// ToursFor returns the tour distribution of the period of kind containing now.
func (vm *ViewModel) ToursFor(kind PeriodKind, now time.Time) PeriodSummary {
	return vm.summary(PeriodFor(kind, now.In(vm.location)))
}

// ActiveFor ranks participants by their assignments in the period of kind
// containing now.
func (vm *ViewModel) ActiveFor(kind PeriodKind, now time.Time, limit int) []ParticipantStat {
	p := PeriodFor(kind, now.In(vm.location))
	return vm.directory.RankActive(ParticipantLoad(InPeriod(vm.unified, p)), limit)
}

// DaysFor groups entries by calendar day. The upcoming filter groups every
// entry from today on, the all filter every entry, both sorted by start.
func (vm *ViewModel) DaysFor(filter DayFilter, now time.Time) []DayView {
	var entries []models.UnifiedEntry
	if filter == DaysAll {
		entries = make([]models.UnifiedEntry, len(vm.unified))
		copy(entries, vm.unified)
		SortByStart(entries)
	} else {
		entries = Upcoming(vm.unified, now.In(vm.location), UpcomingOptions{})
	}

	groups := GroupByDay(entries, vm.location)
	days := make([]DayView, 0, len(groups))
	for _, g := range groups {
		days = append(days, DayView{Date: g.Date, Entries: vm.resolve(g.Entries)})
	}
	return days
}

// Package calendar schedules periodic dashboard reloads and exports the
// unified entries as an iCalendar feed.
package calendar

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/tour-dashboard/backend/internal/dashboard"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// DefaultCalendarName is the X-WR-CALNAME of the exported feed.
const DefaultCalendarName = "Tourenkalender"

// DefaultEventDuration is used when an entry has no usable end.
const DefaultEventDuration = time.Hour

const unassigned = "Nicht zugewiesen"

// ExportOptions narrows and labels the exported feed.
type ExportOptions struct {
	Name        string
	Participant string
	Tour        models.Tour
	// Stamp is the DTSTAMP of every event; zero uses the load time.
	Stamp time.Time
}

// Export renders the entries of vm as a VCALENDAR with one VEVENT per entry
// that has a parseable start. Entries are filtered by participant and tour
// when set.
func Export(vm *dashboard.ViewModel, opts ExportOptions) (string, error) {
	name := opts.Name
	if name == "" {
		name = DefaultCalendarName
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = vm.LoadedAt
	}
	loc := vm.Location()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//tour-dashboard//backend//DE")
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	for _, e := range vm.Entries {
		if opts.Participant != "" && !e.HasParticipant(opts.Participant) {
			continue
		}
		if opts.Tour != "" && e.Tour != opts.Tour {
			continue
		}

		start, ok := dashboard.ParseDateTime(e.Start, loc)
		if !ok {
			continue
		}
		end, ok := dashboard.ParseDateTime(e.End, loc)
		if !ok || !end.After(start) {
			end = start.Add(DefaultEventDuration)
		}

		event := cal.AddEvent(e.ID + "@" + string(e.Source))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(summary(e))
		if e.Tour != "" {
			event.SetProperty(ical.ComponentPropertyCategories, string(e.Tour))
		}
		event.SetDescription(description(e))
	}

	var b strings.Builder
	if err := cal.SerializeTo(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func summary(e dashboard.EntryView) string {
	label := e.TourLabel
	if label == "" {
		label = "Eintrag"
	}
	return label + ": " + participantList(e)
}

func participantList(e dashboard.EntryView) string {
	names := make([]string, 0, len(e.ParticipantNames))
	for _, n := range e.ParticipantNames {
		if n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return unassigned
	}
	return strings.Join(names, " / ")
}

func description(e dashboard.EntryView) string {
	source := "Kalender"
	if e.Source == models.SourceWeekly {
		source = "Wochenkalender"
	}
	return source + "\nTeilnehmer: " + participantList(e)
}

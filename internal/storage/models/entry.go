package models

// Tour tags which route a calendar entry belongs to.
type Tour string

// Known tours.
const (
	Tour1 Tour = "tour_1"
	Tour2 Tour = "tour_2"
	Tour3 Tour = "tour_3"
)

// Tours lists the known tours in display order.
var Tours = []Tour{Tour1, Tour2, Tour3}

var tourLabels = map[Tour]string{
	Tour1: "Tour 1",
	Tour2: "Tour 2",
	Tour3: "Tour 3",
}

// Valid reports whether t is one of the known tours.
func (t Tour) Valid() bool {
	_, ok := tourLabels[t]
	return ok
}

// Label returns the display label, or "" for unknown or missing tours.
func (t Tour) Label() string {
	return tourLabels[t]
}

// ParseTour returns the tour for s, or "" when s is not a known tour.
// Unknown values degrade to "no tour" instead of failing.
func ParseTour(s string) Tour {
	t := Tour(s)
	if !t.Valid() {
		return ""
	}
	return t
}

// CalendarEntryFields are the fields of a calendar entry ("Kalendereintraege").
type CalendarEntryFields struct {
	DateFrom     Text `json:"datum_von,omitempty"`
	DateTo       Text `json:"datum_bis,omitempty"`
	Participant1 Text `json:"teilnehmer_1,omitempty"`
	Participant2 Text `json:"teilnehmer_2,omitempty"`
	Tour         Text `json:"tour,omitempty"`
}

// WeeklyEntryFields are the fields of a weekly calendar entry ("Wochenkalender").
// It carries only the second participant slot.
type WeeklyEntryFields struct {
	DateFrom     Text `json:"datum_von,omitempty"`
	DateTo       Text `json:"datum_bis,omitempty"`
	Participant2 Text `json:"teilnehmer_2,omitempty"`
	Tour         Text `json:"tour,omitempty"`
}

// EntrySource identifies which collection a unified entry came from.
type EntrySource string

// Entry sources.
const (
	SourceCalendar EntrySource = "calendar"
	SourceWeekly   EntrySource = "weekly"
)

// UnifiedEntry is the normalized view of a calendar or weekly entry. It is
// derived on every load and never persisted.
type UnifiedEntry struct {
	ID     string      `json:"id"`
	Source EntrySource `json:"source"`
	Start  string      `json:"start,omitempty"`
	End    string      `json:"end,omitempty"`
	// Tour is "" when the record had no tour or an unknown one.
	Tour Tour `json:"tour,omitempty"`
	// Participants holds 0-2 decoded user record ids in slot order.
	Participants []string `json:"participants"`
}

// HasParticipant reports whether userID is assigned to the entry.
func (e UnifiedEntry) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

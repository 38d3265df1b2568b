package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/tour-dashboard/backend/internal/lookup"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// ParticipantPolicy controls how an unselected participant is sent.
type ParticipantPolicy string

// Participant policies. The record service treats both as "no participant".
const (
	ParticipantOmit ParticipantPolicy = "omit"
	ParticipantNull ParticipantPolicy = "null"
)

// ParseParticipantPolicy accepts "omit" or "null"; empty selects omit.
func ParseParticipantPolicy(s string) (ParticipantPolicy, error) {
	switch ParticipantPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case ParticipantOmit, "":
		return ParticipantOmit, nil
	case ParticipantNull:
		return ParticipantNull, nil
	default:
		return "", fmt.Errorf("unknown participant policy %q", s)
	}
}

// Form defaults.
const (
	DefaultTimeFrom = "09:00"
	DefaultTimeTo   = "17:00"
)

// EntryForm is the add-entry form as submitted. Dates are YYYY-MM-DD, times
// HH:MM (seconds are accepted and dropped), participants are user record ids.
type EntryForm struct {
	DateFrom     string `json:"datum_von"`
	TimeFrom     string `json:"zeit_von"`
	DateTo       string `json:"datum_bis,omitempty"`
	TimeTo       string `json:"zeit_bis,omitempty"`
	Participant1 string `json:"teilnehmer_1,omitempty"`
	Participant2 string `json:"teilnehmer_2,omitempty"`
	Tour         string `json:"tour"`
}

// NewEntryForm returns a form with the default times filled in.
func NewEntryForm() EntryForm {
	return EntryForm{TimeFrom: DefaultTimeFrom, TimeTo: DefaultTimeTo}
}

func (f EntryForm) trimmed() EntryForm {
	return EntryForm{
		DateFrom:     strings.TrimSpace(f.DateFrom),
		TimeFrom:     strings.TrimSpace(f.TimeFrom),
		DateTo:       strings.TrimSpace(f.DateTo),
		TimeTo:       strings.TrimSpace(f.TimeTo),
		Participant1: strings.TrimSpace(f.Participant1),
		Participant2: strings.TrimSpace(f.Participant2),
		Tour:         strings.TrimSpace(f.Tour),
	}
}

// Validate checks required fields (start date, start time, tour) and the
// format of the optional ones. It returns nil or a *ValidationError.
func (f EntryForm) Validate() error {
	f = f.trimmed()
	v := &ValidationError{}

	if f.DateFrom == "" {
		v.add("datum_von", "date is required")
	} else if !validDate(f.DateFrom) {
		v.add("datum_von", "date must be YYYY-MM-DD")
	}
	if f.TimeFrom == "" {
		v.add("zeit_von", "time is required")
	} else if _, ok := clockTime(f.TimeFrom); !ok {
		v.add("zeit_von", "time must be HH:MM")
	}
	if f.Tour == "" {
		v.add("tour", "tour is required")
	} else if !models.Tour(f.Tour).Valid() {
		v.add("tour", "unknown tour")
	}

	if f.DateTo != "" && !validDate(f.DateTo) {
		v.add("datum_bis", "date must be YYYY-MM-DD")
	}
	if f.TimeTo != "" {
		if _, ok := clockTime(f.TimeTo); !ok {
			v.add("zeit_bis", "time must be HH:MM")
		}
	}
	if f.Participant1 != "" && !lookup.IsRecordID(f.Participant1) {
		v.add("teilnehmer_1", "unknown participant")
	}
	if f.Participant2 != "" && !lookup.IsRecordID(f.Participant2) {
		v.add("teilnehmer_2", "unknown participant")
	}

	if v.HasErrors() {
		return v
	}
	return nil
}

// Payload builds the calendar entry fields for a validated form. userRef
// encodes a user id as a lookup reference. The end defaults to the start date
// combined with the end time, and the end time to DefaultTimeTo.
func (f EntryForm) Payload(userRef func(id string) string, policy ParticipantPolicy) map[string]any {
	f = f.trimmed()
	timeFrom, _ := clockTime(f.TimeFrom)
	timeTo, ok := clockTime(f.TimeTo)
	if !ok {
		timeTo = DefaultTimeTo
	}
	dateTo := f.DateTo
	if dateTo == "" {
		dateTo = f.DateFrom
	}

	fields := map[string]any{
		"datum_von": f.DateFrom + "T" + timeFrom,
		"datum_bis": dateTo + "T" + timeTo,
		"tour":      f.Tour,
	}
	for key, id := range map[string]string{
		"teilnehmer_1": f.Participant1,
		"teilnehmer_2": f.Participant2,
	} {
		switch {
		case id != "":
			fields[key] = userRef(id)
		case policy == ParticipantNull:
			fields[key] = nil
		}
	}
	return fields
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// clockTime normalizes HH:MM or HH:MM:SS to HH:MM.
func clockTime(s string) (string, bool) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

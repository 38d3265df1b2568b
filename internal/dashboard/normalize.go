// Package dashboard turns the raw record collections into the dashboard view
// model: normalization, aggregation, the load cycle and entry creation.
package dashboard

import (
	"github.com/tour-dashboard/backend/internal/livingapps"
	"github.com/tour-dashboard/backend/internal/lookup"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// Normalize merges calendar and weekly entries into unified entries, calendar
// entries first. Participant references that do not decode to a record id
// are left out; the entry itself is always kept.
func Normalize(
	calendar []livingapps.Record[models.CalendarEntryFields],
	weekly []livingapps.Record[models.WeeklyEntryFields],
) []models.UnifiedEntry {
	entries := make([]models.UnifiedEntry, 0, len(calendar)+len(weekly))

	for _, rec := range calendar {
		f := rec.Fields
		entries = append(entries, models.UnifiedEntry{
			ID:           rec.ID,
			Source:       models.SourceCalendar,
			Start:        string(f.DateFrom),
			End:          string(f.DateTo),
			Tour:         models.ParseTour(string(f.Tour)),
			Participants: decodeParticipants(f.Participant1, f.Participant2),
		})
	}

	for _, rec := range weekly {
		f := rec.Fields
		entries = append(entries, models.UnifiedEntry{
			ID:           rec.ID,
			Source:       models.SourceWeekly,
			Start:        string(f.DateFrom),
			End:          string(f.DateTo),
			Tour:         models.ParseTour(string(f.Tour)),
			Participants: decodeParticipants(f.Participant2),
		})
	}

	return entries
}

func decodeParticipants(refs ...models.Text) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id, ok := lookup.Decode(string(ref)); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

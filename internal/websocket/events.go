package websocket

import (
	"github.com/tour-dashboard/backend/internal/dashboard"
)

// EventBroadcaster turns dashboard lifecycle events into hub messages. It
// implements dashboard.Observer.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// OnReloaded sends a dashboard.reloaded event.
func (b *EventBroadcaster) OnReloaded(vm *dashboard.ViewModel, trigger string) {
	b.broadcast(NewMessage(TypeDashboardReloaded, ReloadedPayload{
		Trigger:         trigger,
		LoadedAt:        vm.LoadedAt,
		Users:           vm.Users,
		Entries:         len(vm.Entries),
		UpcomingEntries: len(vm.Upcoming),
	}))
}

// OnReloadFailed sends a dashboard.load_error event.
func (b *EventBroadcaster) OnReloadFailed(err error, trigger string) {
	b.broadcast(NewMessage(TypeDashboardLoadError, LoadErrorPayload{
		Trigger: trigger,
		Message: err.Error(),
	}))
}

// OnEntryCreated sends an entry.created event and a success notification.
func (b *EventBroadcaster) OnEntryCreated(result *dashboard.CreateResult) {
	start, _ := result.Fields["datum_von"].(string)
	tour, _ := result.Fields["tour"].(string)
	b.broadcast(NewMessage(TypeEntryCreated, EntryCreatedPayload{
		RecordID:     result.RecordID,
		Start:        start,
		Tour:         tour,
		Participants: result.ParticipantNames,
		ReloadError:  result.ReloadError,
	}))
	b.Notify("success", "Eintrag erstellt", "Der Kalendereintrag wurde gespeichert.")
}

// OnEntryCreateFailed sends an entry.create_failed event.
func (b *EventBroadcaster) OnEntryCreateFailed(form dashboard.EntryForm, err error) {
	b.broadcast(NewMessage(TypeEntryCreateFailed, EntryCreateFailedPayload{
		Start:   form.DateFrom + "T" + form.TimeFrom,
		Tour:    form.Tour,
		Message: err.Error(),
	}))
}

// Notify sends a dismissible notification to all clients.
func (b *EventBroadcaster) Notify(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.hub.logger.Error().Err(err).Str("type", string(msg.Type)).Msg("Failed to marshal WebSocket message")
		return
	}
	b.hub.Broadcast(data)
}

package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeDashboardReloaded  MessageType = "dashboard.reloaded"
	TypeDashboardLoadError MessageType = "dashboard.load_error"
	TypeEntryCreated       MessageType = "entry.created"
	TypeEntryCreateFailed  MessageType = "entry.create_failed"
	TypeNotification       MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReloadedPayload is the payload for dashboard.reloaded events. Clients
// re-fetch the views they show.
type ReloadedPayload struct {
	Trigger         string    `json:"trigger"`
	LoadedAt        time.Time `json:"loaded_at"`
	Users           int       `json:"users"`
	Entries         int       `json:"entries"`
	UpcomingEntries int       `json:"upcoming_entries"`
}

// LoadErrorPayload is the payload for dashboard.load_error events.
type LoadErrorPayload struct {
	Trigger string `json:"trigger"`
	Message string `json:"message"`
}

// EntryCreatedPayload is the payload for entry.created events.
type EntryCreatedPayload struct {
	RecordID     string   `json:"record_id,omitempty"`
	Start        string   `json:"start"`
	Tour         string   `json:"tour"`
	Participants []string `json:"participants,omitempty"`
	ReloadError  string   `json:"reload_error,omitempty"`
}

// EntryCreateFailedPayload is the payload for entry.create_failed events.
type EntryCreateFailedPayload struct {
	Start   string `json:"start"`
	Tour    string `json:"tour"`
	Message string `json:"message"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}

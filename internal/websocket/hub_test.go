package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tour-dashboard/backend/internal/dashboard"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send():
		if !ok {
			t.Fatal("send channel closed")
		}
		var msg struct {
			Type    MessageType     `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding message: %v", err)
		}
		return Message{Type: msg.Type, Payload: msg.Payload}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub, _ := startHub(t)
	a, b := NewClient(hub), NewClient(hub)
	hub.Register(a)
	hub.Register(b)
	waitForClients(t, hub, 2)

	hub.Broadcast([]byte(`{"type":"notification"}`))
	for _, c := range []*Client{a, b} {
		if msg := receive(t, c); msg.Type != TypeNotification {
			t.Errorf("type = %q", msg.Type)
		}
	}

	hub.Unregister(a)
	waitForClients(t, hub, 1)
	if _, ok := <-a.Send(); ok {
		t.Error("unregistered client channel still open")
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	c := NewClient(hub)
	hub.Register(c)
	waitForClients(t, hub, 1)

	cancel()
	select {
	case _, ok := <-c.Send():
		if ok {
			t.Error("unexpected message after stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client not closed on stop")
	}

	if hub.Register(NewClient(hub)) {
		t.Error("Register succeeded on a stopped hub")
	}
	hub.Unregister(c) // must not block
}

func TestClientReply(t *testing.T) {
	hub, _ := startHub(t)
	c := NewClient(hub)
	if c.Reply([]byte("x")) {
		t.Error("Reply succeeded for an unregistered client")
	}
	hub.Register(c)
	waitForClients(t, hub, 1)

	pong, _ := NewMessage(TypePong, nil).JSON()
	if !c.Reply(pong) {
		t.Fatal("Reply failed")
	}
	if msg := receive(t, c); msg.Type != TypePong {
		t.Errorf("type = %q", msg.Type)
	}
}

func TestEventBroadcaster(t *testing.T) {
	hub, _ := startHub(t)
	c := NewClient(hub)
	hub.Register(c)
	waitForClients(t, hub, 1)

	var _ dashboard.Observer = (*EventBroadcaster)(nil)
	b := NewEventBroadcaster(hub)

	vm := dashboard.Build(&dashboard.Snapshot{FetchedAt: time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)},
		time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC), dashboard.BuildOptions{Location: time.UTC})
	b.OnReloaded(vm, "manual")
	msg := receive(t, c)
	if msg.Type != TypeDashboardReloaded {
		t.Fatalf("type = %q", msg.Type)
	}
	var reloaded ReloadedPayload
	if err := json.Unmarshal(msg.Payload.(json.RawMessage), &reloaded); err != nil {
		t.Fatal(err)
	}
	if reloaded.Trigger != "manual" || !reloaded.LoadedAt.Equal(vm.LoadedAt) {
		t.Errorf("payload = %+v", reloaded)
	}

	b.OnReloadFailed(errors.New("weekly down"), "schedule")
	msg = receive(t, c)
	var loadErr LoadErrorPayload
	if err := json.Unmarshal(msg.Payload.(json.RawMessage), &loadErr); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeDashboardLoadError || loadErr.Message != "weekly down" {
		t.Errorf("load error = %q %+v", msg.Type, loadErr)
	}

	b.OnEntryCreated(&dashboard.CreateResult{
		RecordID:         "abc",
		Fields:           map[string]any{"datum_von": "2024-06-13T09:00", "tour": "tour_1"},
		ParticipantNames: []string{"Anna Meier"},
	})
	msg = receive(t, c)
	var created EntryCreatedPayload
	if err := json.Unmarshal(msg.Payload.(json.RawMessage), &created); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeEntryCreated || created.RecordID != "abc" || created.Start != "2024-06-13T09:00" || created.Tour != "tour_1" ||
		len(created.Participants) != 1 || created.Participants[0] != "Anna Meier" {
		t.Errorf("created = %q %+v", msg.Type, created)
	}
	if msg := receive(t, c); msg.Type != TypeNotification {
		t.Errorf("expected notification, got %q", msg.Type)
	}

	form := dashboard.EntryForm{DateFrom: "2024-06-13", TimeFrom: "09:00", Tour: "tour_2"}
	b.OnEntryCreateFailed(form, errors.New("forbidden"))
	msg = receive(t, c)
	var failed EntryCreateFailedPayload
	if err := json.Unmarshal(msg.Payload.(json.RawMessage), &failed); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeEntryCreateFailed || failed.Message != "forbidden" || failed.Start != "2024-06-13T09:00" {
		t.Errorf("failed = %q %+v", msg.Type, failed)
	}
}

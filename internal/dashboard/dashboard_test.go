package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tour-dashboard/backend/internal/livingapps"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

type fakeRemote struct {
	mu sync.Mutex

	users    []livingapps.Record[models.UserFields]
	calendar []livingapps.Record[models.CalendarEntryFields]
	weekly   []livingapps.Record[models.WeeklyEntryFields]

	usersErr, calendarErr, weeklyErr, createErr error

	// gate, when set, blocks ListUsers until it is closed.
	gate chan struct{}
	// hang makes ListUsers wait for the caller's context to end.
	hang bool

	created []map[string]any
	lists   int
}

func (f *fakeRemote) ListUsers(ctx context.Context) ([]livingapps.Record[models.UserFields], error) {
	f.mu.Lock()
	gate, hang := f.gate, f.hang
	f.lists++
	users, err := f.users, f.usersErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return users, err
}

func (f *fakeRemote) ListCalendarEntries(ctx context.Context) ([]livingapps.Record[models.CalendarEntryFields], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calendar, f.calendarErr
}

func (f *fakeRemote) ListWeeklyEntries(ctx context.Context) ([]livingapps.Record[models.WeeklyEntryFields], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weekly, f.weeklyErr
}

func (f *fakeRemote) CreateCalendarEntry(ctx context.Context, fields any) (livingapps.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	m := fields.(map[string]any)
	f.created = append(f.created, m)
	f.calendar = append(f.calendar, livingapps.Record[models.CalendarEntryFields]{
		ID:     "new-entry",
		Fields: models.CalendarEntryFields{DateFrom: models.Text(m["datum_von"].(string)), Tour: models.Text(m["tour"].(string))},
	})
	return livingapps.Response{"id": "new-entry"}, nil
}

func (f *fakeRemote) UserRef(userID string) string {
	return fakeRef(userID)
}

func (f *fakeRemote) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		users: testUsers(),
		calendar: []livingapps.Record[models.CalendarEntryFields]{
			{ID: "cal1", Fields: models.CalendarEntryFields{DateFrom: "2024-06-12T09:00", Tour: "tour_1",
				Participant1: userRef(userAnna), Participant2: userRef(userBernd)}},
			{ID: "cal2", Fields: models.CalendarEntryFields{DateFrom: "2024-06-11T09:00", Tour: "tour_2",
				Participant1: userRef(userAnna)}},
		},
		weekly: []livingapps.Record[models.WeeklyEntryFields]{
			{ID: "week1", Fields: models.WeeklyEntryFields{DateFrom: "2024-06-14T09:00", Tour: "tour_3",
				Participant2: userRef(userCarla)}},
		},
	}
}

type recordingObserver struct {
	mu           sync.Mutex
	reloaded     []string
	failed       []error
	created      []*CreateResult
	createFailed []error
}

func (o *recordingObserver) OnReloaded(vm *ViewModel, trigger string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reloaded = append(o.reloaded, trigger)
}

func (o *recordingObserver) OnReloadFailed(err error, trigger string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, err)
}

func (o *recordingObserver) OnEntryCreated(result *CreateResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created = append(o.created, result)
}

func (o *recordingObserver) OnEntryCreateFailed(form EntryForm, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.createFailed = append(o.createFailed, err)
}

type memoryHistory struct {
	mu   sync.Mutex
	runs []models.LoadRun
}

func (h *memoryHistory) Create(ctx context.Context, run *models.LoadRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	run.ID = "run-" + string(rune('a'+len(h.runs)))
	h.runs = append(h.runs, *run)
	return nil
}

func (h *memoryHistory) Finish(ctx context.Context, run *models.LoadRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.runs {
		if h.runs[i].ID == run.ID {
			h.runs[i] = *run
		}
	}
	return nil
}

type memorySubmissions struct {
	subs map[string]*models.EntrySubmission
}

func (m *memorySubmissions) Create(ctx context.Context, sub *models.EntrySubmission) error {
	sub.ID = "sub-1"
	m.subs = map[string]*models.EntrySubmission{sub.ID: sub}
	return nil
}

func (m *memorySubmissions) MarkSucceeded(ctx context.Context, id, remoteRecordID string) error {
	m.subs[id].Status = models.SubmissionSucceeded
	m.subs[id].RemoteRecordID = &remoteRecordID
	return nil
}

func (m *memorySubmissions) MarkFailed(ctx context.Context, id, message string) error {
	m.subs[id].Status = models.SubmissionFailed
	m.subs[id].Error = &message
	return nil
}

func newTestDashboard(remote Remote, opts Options) *Dashboard {
	opts.Location = time.UTC
	opts.Clock = func() time.Time { return testNow }
	opts.IncludeWeekly = true
	return New(remote, opts)
}

func TestViewBeforeLoad(t *testing.T) {
	d := newTestDashboard(newFakeRemote(), Options{})
	if _, err := d.View(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("View() error = %v, want ErrNotLoaded", err)
	}
	if !IsUnavailable(ErrNotLoaded) {
		t.Error("ErrNotLoaded should be unavailable")
	}
}

func TestReloadBuildsViewModel(t *testing.T) {
	history := &memoryHistory{}
	obs := &recordingObserver{}
	d := newTestDashboard(newFakeRemote(), Options{History: history})
	d.AddObserver(obs)

	if err := d.Reload(context.Background(), models.TriggerStartup); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	vm, err := d.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	if vm.Users != 3 || len(vm.Entries) != 3 {
		t.Errorf("users=%d entries=%d", vm.Users, len(vm.Entries))
	}
	// cal2 was yesterday.
	if len(vm.Upcoming) != 2 || vm.Upcoming[0].ID != "cal1" || vm.Upcoming[1].ID != "week1" {
		t.Errorf("upcoming = %+v", vm.Upcoming)
	}
	if names := vm.Upcoming[0].ParticipantNames; len(names) != 2 || names[0] != "Anna Meier" || names[1] != "Bernd" {
		t.Errorf("participant names = %v", names)
	}
	if vm.Upcoming[0].TourLabel != "Tour 1" {
		t.Errorf("tour label = %q", vm.Upcoming[0].TourLabel)
	}
	if vm.Week.Total != 3 || vm.Week.Tours[models.Tour2] != 1 {
		t.Errorf("week = %+v", vm.Week)
	}
	if len(vm.Active) == 0 || vm.Active[0].ID != userAnna || vm.Active[0].Count != 2 {
		t.Errorf("active = %+v", vm.Active)
	}
	if vm.FormDefaults.DateFrom != "2024-06-12" || vm.FormDefaults.TimeFrom != DefaultTimeFrom {
		t.Errorf("form defaults = %+v", vm.FormDefaults)
	}

	if len(obs.reloaded) != 1 || obs.reloaded[0] != models.TriggerStartup {
		t.Errorf("observer reloaded = %v", obs.reloaded)
	}
	if len(history.runs) != 1 || history.runs[0].Status != models.LoadStatusSuccess || history.runs[0].Users != 3 {
		t.Errorf("history = %+v", history.runs)
	}
	if history.runs[0].FinishedAt == nil {
		t.Error("load run not finished")
	}
}

func TestReloadWeeklyFailureShowsNoPartialView(t *testing.T) {
	remote := newFakeRemote()
	remote.weeklyErr = &livingapps.RemoteAPIError{StatusCode: 500, Body: "weekly down"}
	history := &memoryHistory{}
	obs := &recordingObserver{}
	d := newTestDashboard(remote, Options{History: history})
	d.AddObserver(obs)

	err := d.Reload(context.Background(), models.TriggerStartup)
	if err == nil {
		t.Fatal("Reload succeeded with a failing collection")
	}

	vm, viewErr := d.View()
	if vm != nil {
		t.Error("partial view model exposed")
	}
	var loadErr *LoadError
	if !errors.As(viewErr, &loadErr) {
		t.Fatalf("View() error = %v, want *LoadError", viewErr)
	}
	var remoteErr *livingapps.RemoteAPIError
	if !errors.As(viewErr, &remoteErr) || remoteErr.Body != "weekly down" {
		t.Errorf("remote error not preserved: %v", viewErr)
	}
	if st := d.State(); st.View != nil || st.Err == nil || st.Loading {
		t.Errorf("state = %+v", st)
	}
	if len(obs.failed) != 1 {
		t.Errorf("observer failures = %d", len(obs.failed))
	}
	if history.runs[0].Status != models.LoadStatusError || history.runs[0].Error == nil {
		t.Errorf("history = %+v", history.runs[0])
	}
}

func TestReloadFailureAfterSuccessHidesOldViewUntilRetry(t *testing.T) {
	remote := newFakeRemote()
	d := newTestDashboard(remote, Options{})

	if err := d.Reload(context.Background(), models.TriggerStartup); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	remote.mu.Lock()
	remote.usersErr = errors.New("offline")
	remote.mu.Unlock()

	if err := d.Reload(context.Background(), models.TriggerManual); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := d.View(); !IsUnavailable(err) {
		t.Errorf("View() error = %v, want unavailable", err)
	}
	if st := d.State(); st.View == nil {
		t.Error("previous view model should be retained in state")
	}

	remote.mu.Lock()
	remote.usersErr = nil
	remote.mu.Unlock()
	if err := d.Reload(context.Background(), models.TriggerManual); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := d.View(); err != nil {
		t.Errorf("View() after retry = %v", err)
	}
}

func TestSupersededReloadIsDiscarded(t *testing.T) {
	remote := newFakeRemote()
	remote.gate = make(chan struct{})
	history := &memoryHistory{}
	d := newTestDashboard(remote, Options{History: history})

	slow := make(chan error, 1)
	go func() {
		slow <- d.Reload(context.Background(), models.TriggerSchedule)
	}()

	// Wait until the slow reload is parked in ListUsers.
	deadline := time.Now().Add(2 * time.Second)
	for remote.listCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow reload never started")
		}
		time.Sleep(time.Millisecond)
	}
	if !d.State().Loading {
		t.Error("state not loading during fetch")
	}

	remote.mu.Lock()
	gate := remote.gate
	remote.gate = nil
	remote.calendar = remote.calendar[:1]
	remote.mu.Unlock()

	if err := d.Reload(context.Background(), models.TriggerManual); err != nil {
		t.Fatalf("fast reload: %v", err)
	}
	close(gate)

	if err := <-slow; err != nil {
		t.Fatalf("slow reload: %v", err)
	}

	vm, err := d.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(vm.Entries) != 2 {
		t.Errorf("entries = %d, want the newer snapshot with 2", len(vm.Entries))
	}

	var discarded int
	for _, run := range history.runs {
		if run.Status == models.LoadStatusDiscarded {
			discarded++
		}
	}
	if discarded != 1 {
		t.Errorf("discarded runs = %d, want 1", discarded)
	}
}

func TestAbandonedReloadKeepsPreviousView(t *testing.T) {
	remote := newFakeRemote()
	history := &memoryHistory{}
	obs := &recordingObserver{}
	d := newTestDashboard(remote, Options{History: history})
	d.AddObserver(obs)

	if err := d.Reload(context.Background(), models.TriggerStartup); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	remote.mu.Lock()
	remote.hang = true
	remote.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Reload(ctx, models.TriggerManual); err != nil {
		t.Errorf("Reload with expired context = %v, want nil", err)
	}

	vm, err := d.View()
	if err != nil {
		t.Fatalf("View() after abandoned reload = %v", err)
	}
	if len(vm.Entries) != 3 {
		t.Errorf("entries = %d, want 3 from the earlier load", len(vm.Entries))
	}
	if len(obs.failed) != 0 {
		t.Errorf("OnReloadFailed called %d times", len(obs.failed))
	}

	history.mu.Lock()
	defer history.mu.Unlock()
	if len(history.runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(history.runs))
	}
	if got := history.runs[1].Status; got != models.LoadStatusDiscarded {
		t.Errorf("abandoned run status = %q, want %q", got, models.LoadStatusDiscarded)
	}
}

func TestCreateEntryWithoutParticipants(t *testing.T) {
	remote := newFakeRemote()
	subs := &memorySubmissions{}
	obs := &recordingObserver{}
	d := newTestDashboard(remote, Options{Submissions: subs})
	d.AddObserver(obs)

	form := EntryForm{DateFrom: "2024-06-20", TimeFrom: "10:00", Tour: "tour_3"}
	result, err := d.CreateEntry(context.Background(), form)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	if len(remote.created) != 1 {
		t.Fatalf("created %d entries", len(remote.created))
	}
	payload := remote.created[0]
	for _, key := range []string{"teilnehmer_1", "teilnehmer_2"} {
		if _, ok := payload[key]; ok {
			t.Errorf("payload contains %s: %v", key, payload)
		}
	}
	if result.RecordID != "new-entry" || result.SubmissionID != "sub-1" {
		t.Errorf("result = %+v", result)
	}
	if subs.subs["sub-1"].Status != models.SubmissionSucceeded {
		t.Errorf("submission = %+v", subs.subs["sub-1"])
	}

	// The follow-up reload picks up the new entry.
	if len(obs.reloaded) != 1 || obs.reloaded[0] != models.TriggerCreate {
		t.Errorf("reloads = %v", obs.reloaded)
	}
	vm, err := d.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if _, ok := vm.Entry("new-entry"); !ok {
		t.Error("new entry missing after reload")
	}
	if len(obs.created) != 1 {
		t.Errorf("created events = %d", len(obs.created))
	}
}

func TestCreateEntryResolvesParticipantNames(t *testing.T) {
	remote := newFakeRemote()
	obs := &recordingObserver{}
	d := newTestDashboard(remote, Options{})
	d.AddObserver(obs)

	form := EntryForm{DateFrom: "2024-06-20", TimeFrom: "10:00", Tour: "tour_2",
		Participant1: userAnna, Participant2: "dddddddddddddddddddddd04"}
	result, err := d.CreateEntry(context.Background(), form)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if len(result.ParticipantNames) != 1 || result.ParticipantNames[0] != "Anna Meier" {
		t.Errorf("participant names = %v, want [Anna Meier]", result.ParticipantNames)
	}
	if len(obs.created) != 1 || len(obs.created[0].ParticipantNames) != 1 {
		t.Errorf("observer result = %+v", obs.created)
	}
}

func TestCreateEntryNullPolicy(t *testing.T) {
	remote := newFakeRemote()
	d := newTestDashboard(remote, Options{ParticipantPolicy: ParticipantNull})

	form := EntryForm{DateFrom: "2024-06-20", TimeFrom: "10:00", Tour: "tour_1"}
	if _, err := d.CreateEntry(context.Background(), form); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	payload := remote.created[0]
	for _, key := range []string{"teilnehmer_1", "teilnehmer_2"} {
		if v, ok := payload[key]; !ok || v != nil {
			t.Errorf("%s = %v (present %v), want explicit nil", key, v, ok)
		}
	}
}

func TestCreateEntryValidationSkipsRemote(t *testing.T) {
	remote := newFakeRemote()
	d := newTestDashboard(remote, Options{})

	_, err := d.CreateEntry(context.Background(), EntryForm{TimeFrom: "10:00"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(remote.created) != 0 || remote.listCount() != 0 {
		t.Error("remote contacted for an invalid form")
	}
}

func TestCreateEntryRemoteErrorReturnedUnchanged(t *testing.T) {
	remote := newFakeRemote()
	remoteErr := &livingapps.RemoteAPIError{StatusCode: 400, Body: `{"error":"tour invalid"}`}
	remote.createErr = remoteErr
	subs := &memorySubmissions{}
	obs := &recordingObserver{}
	d := newTestDashboard(remote, Options{Submissions: subs})
	d.AddObserver(obs)

	_, err := d.CreateEntry(context.Background(), EntryForm{DateFrom: "2024-06-20", TimeFrom: "10:00", Tour: "tour_1"})
	if err != remoteErr {
		t.Fatalf("err = %v, want the remote error", err)
	}
	if remote.listCount() != 0 {
		t.Error("reload triggered after a failed create")
	}
	if s := subs.subs["sub-1"]; s.Status != models.SubmissionFailed || s.Error == nil || *s.Error != remoteErr.Body {
		t.Errorf("submission = %+v", s)
	}
	if len(obs.createFailed) != 1 {
		t.Errorf("create failures = %d", len(obs.createFailed))
	}
}

func TestApplySettingsRebuildsFromSnapshot(t *testing.T) {
	remote := newFakeRemote()
	d := newTestDashboard(remote, Options{})
	if err := d.Reload(context.Background(), models.TriggerStartup); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	d.ApplySettings(ViewSettings{UpcomingLimit: 1, IncludeWeekly: false})
	vm, err := d.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(vm.Upcoming) != 1 || len(vm.Entries) != 2 {
		t.Errorf("upcoming=%d entries=%d", len(vm.Upcoming), len(vm.Entries))
	}
	if remote.listCount() != 1 {
		t.Errorf("settings change refetched: %d list calls", remote.listCount())
	}
	if got := d.Settings(); got.UpcomingLimit != 1 || got.IncludeWeekly {
		t.Errorf("settings = %+v", got)
	}
}

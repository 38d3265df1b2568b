package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tour-dashboard/backend/internal/livingapps"
	"github.com/tour-dashboard/backend/internal/logging"
	"github.com/tour-dashboard/backend/internal/metrics"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// History records load cycles.
type History interface {
	Create(ctx context.Context, run *models.LoadRun) error
	Finish(ctx context.Context, run *models.LoadRun) error
}

// SubmissionLog audits add-entry submissions.
type SubmissionLog interface {
	Create(ctx context.Context, sub *models.EntrySubmission) error
	MarkSucceeded(ctx context.Context, id, remoteRecordID string) error
	MarkFailed(ctx context.Context, id, message string) error
}

// Observer is notified about dashboard lifecycle events. Calls happen on the
// goroutine that caused the event and must not block.
type Observer interface {
	OnReloaded(vm *ViewModel, trigger string)
	OnReloadFailed(err error, trigger string)
	OnEntryCreated(result *CreateResult)
	OnEntryCreateFailed(form EntryForm, err error)
}

// Options configures a Dashboard.
type Options struct {
	Location          *time.Location
	UpcomingLimit     int
	IncludeWeekly     bool
	ParticipantPolicy ParticipantPolicy
	Clock             func() time.Time
	History           History
	Submissions       SubmissionLog
	Metrics           *metrics.Metrics
}

// State is a consistent snapshot of the dashboard.
type State struct {
	Loading    bool
	Err        error
	View       *ViewModel
	Generation uint64
}

type state struct {
	err        error
	view       *ViewModel
	snapshot   *Snapshot
	generation uint64
}

// ViewSettings are the view options that can change at runtime.
type ViewSettings struct {
	UpcomingLimit int  `json:"upcoming_limit"`
	IncludeWeekly bool `json:"include_weekly"`
}

// Dashboard owns the load cycle and the current view model.
type Dashboard struct {
	remote    Remote
	loader    *Loader
	opts      Options
	observers []Observer
	logger    zerolog.Logger

	current    atomic.Pointer[state]
	generation atomic.Uint64
	loading    atomic.Int32

	// commitMu serializes view swaps and settings changes.
	commitMu sync.Mutex
	settings ViewSettings
}

// New creates a dashboard over remote. It holds no view until the first
// successful Reload.
func New(remote Remote, opts Options) *Dashboard {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.UpcomingLimit <= 0 {
		opts.UpcomingLimit = DefaultUpcomingLimit
	}
	if opts.ParticipantPolicy == "" {
		opts.ParticipantPolicy = ParticipantOmit
	}

	d := &Dashboard{
		remote: remote,
		loader: NewLoader(remote, opts.Clock),
		opts:   opts,
		logger: logging.Component("dashboard"),
		settings: ViewSettings{
			UpcomingLimit: opts.UpcomingLimit,
			IncludeWeekly: opts.IncludeWeekly,
		},
	}
	d.current.Store(&state{})
	return d
}

// AddObserver registers o for lifecycle events. It must be called before the
// dashboard is used concurrently.
func (d *Dashboard) AddObserver(o Observer) {
	d.observers = append(d.observers, o)
}

// Now returns the dashboard clock's current time in the configured zone.
func (d *Dashboard) Now() time.Time {
	return d.opts.Clock().In(d.opts.Location)
}

// Location returns the configured zone.
func (d *Dashboard) Location() *time.Location {
	return d.opts.Location
}

// State returns the current state. View is nil before the first successful
// load and is kept across failed ones; Err is the failure of the most recent
// completed load.
func (d *Dashboard) State() State {
	s := d.current.Load()
	return State{
		Loading:    d.loading.Load() > 0,
		Err:        s.err,
		View:       s.view,
		Generation: s.generation,
	}
}

// View returns the view model for display. It fails with a *LoadError while
// the most recent load has failed and with ErrNotLoaded before any load
// succeeded.
func (d *Dashboard) View() (*ViewModel, error) {
	s := d.current.Load()
	if s.err != nil {
		return nil, &LoadError{Err: s.err}
	}
	if s.view == nil {
		return nil, ErrNotLoaded
	}
	return s.view, nil
}

// Reload fetches all three collections and swaps in a new view model. If a
// newer reload started in the meantime, this result is discarded. On failure
// the previous view model is retained but hidden behind the error.
func (d *Dashboard) Reload(ctx context.Context, trigger string) error {
	gen := d.generation.Add(1)
	d.loading.Add(1)
	defer d.loading.Add(-1)

	run := &models.LoadRun{
		Trigger:   trigger,
		Status:    models.LoadStatusRunning,
		StartedAt: d.opts.Clock().UTC(),
	}
	d.recordStart(ctx, run)

	d.logger.Debug().Str("trigger", trigger).Uint64("generation", gen).Msg("Loading dashboard")

	snap, err := d.loader.Fetch(ctx)

	d.commitMu.Lock()
	superseded := d.generation.Load() != gen
	// A caller that gave up leaves the visible state alone.
	abandoned := err != nil && ctx.Err() != nil
	if superseded || abandoned {
		d.commitMu.Unlock()
		reason := "superseded"
		if !superseded {
			reason = "abandoned"
		}
		d.logger.Info().Uint64("generation", gen).Str("reason", reason).AnErr("cause", err).Msg("Discarding load")
		d.opts.Metrics.LoadDiscarded()
		run.Status = models.LoadStatusDiscarded
		d.recordFinish(ctx, run)
		return nil
	}

	if err != nil {
		prev := d.current.Load()
		d.current.Store(&state{err: err, view: prev.view, snapshot: prev.snapshot, generation: gen})
		d.commitMu.Unlock()

		d.logger.Error().Err(err).Str("trigger", trigger).Msg("Dashboard load failed")
		d.opts.Metrics.LoadFailed()
		msg := err.Error()
		run.Status = models.LoadStatusError
		run.Error = &msg
		d.recordFinish(ctx, run)
		for _, o := range d.observers {
			o.OnReloadFailed(err, trigger)
		}
		return err
	}

	vm := Build(snap, d.opts.Clock(), d.buildOptions())
	d.current.Store(&state{view: vm, snapshot: snap, generation: gen})
	d.commitMu.Unlock()

	d.logger.Info().
		Str("trigger", trigger).
		Int("users", len(snap.Users)).
		Int("calendar_entries", len(snap.CalendarEntries)).
		Int("weekly_entries", len(snap.WeeklyEntries)).
		Msg("Dashboard loaded")
	d.opts.Metrics.LoadSucceeded(snap.FetchedAt, len(snap.Users), len(snap.CalendarEntries), len(snap.WeeklyEntries))

	run.Status = models.LoadStatusSuccess
	run.Users = len(snap.Users)
	run.CalendarEntries = len(snap.CalendarEntries)
	run.WeeklyEntries = len(snap.WeeklyEntries)
	d.recordFinish(ctx, run)

	for _, o := range d.observers {
		o.OnReloaded(vm, trigger)
	}
	return nil
}

// Settings returns the current view settings.
func (d *Dashboard) Settings() ViewSettings {
	d.commitMu.Lock()
	defer d.commitMu.Unlock()
	return d.settings
}

// ApplySettings changes the view settings and rebuilds the current view model
// from the last snapshot without contacting the remote service.
func (d *Dashboard) ApplySettings(vs ViewSettings) {
	if vs.UpcomingLimit <= 0 {
		vs.UpcomingLimit = DefaultUpcomingLimit
	}

	d.commitMu.Lock()
	defer d.commitMu.Unlock()
	d.settings = vs

	s := d.current.Load()
	if s.snapshot == nil {
		return
	}
	vm := Build(s.snapshot, d.opts.Clock(), d.buildOptions())
	d.current.Store(&state{err: s.err, view: vm, snapshot: s.snapshot, generation: s.generation})
}

// buildOptions must be called with commitMu held.
func (d *Dashboard) buildOptions() BuildOptions {
	return BuildOptions{
		Location:      d.opts.Location,
		UpcomingLimit: d.settings.UpcomingLimit,
		IncludeWeekly: d.settings.IncludeWeekly,
	}
}

func (d *Dashboard) recordStart(ctx context.Context, run *models.LoadRun) {
	if d.opts.History == nil {
		return
	}
	if err := d.opts.History.Create(ctx, run); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to record load run")
	}
}

func (d *Dashboard) recordFinish(ctx context.Context, run *models.LoadRun) {
	if d.opts.History == nil || run.ID == "" {
		return
	}
	finished := d.opts.Clock().UTC()
	run.FinishedAt = &finished
	if err := d.opts.History.Finish(context.WithoutCancel(ctx), run); err != nil {
		d.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to finish load run")
	}
}

// CreateResult describes a successful add-entry submission.
type CreateResult struct {
	RecordID     string              `json:"record_id,omitempty"`
	SubmissionID string              `json:"submission_id,omitempty"`
	Fields       map[string]any      `json:"fields"`
	Response     livingapps.Response `json:"response"`
	// ParticipantNames are the display names of the referenced users.
	ParticipantNames []string `json:"participant_names,omitempty"`
	// ReloadError is set when the entry was created but the follow-up reload failed.
	ReloadError string `json:"reload_error,omitempty"`
}

// CreateEntry validates form, creates the calendar entry and reloads the
// dashboard. Validation failures return a *ValidationError without contacting
// the remote service; remote failures are returned unchanged. A failed
// follow-up reload does not fail the creation.
func (d *Dashboard) CreateEntry(ctx context.Context, form EntryForm) (*CreateResult, error) {
	if err := form.Validate(); err != nil {
		d.opts.Metrics.Submission("invalid")
		return nil, err
	}

	fields := form.Payload(d.remote.UserRef, d.opts.ParticipantPolicy)
	sub := d.auditSubmission(ctx, fields)

	resp, err := d.remote.CreateCalendarEntry(ctx, fields)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to create calendar entry")
		d.opts.Metrics.Submission(models.SubmissionFailed)
		if sub != nil {
			if markErr := d.opts.Submissions.MarkFailed(context.WithoutCancel(ctx), sub.ID, err.Error()); markErr != nil {
				d.logger.Warn().Err(markErr).Str("submission_id", sub.ID).Msg("Failed to update submission")
			}
		}
		for _, o := range d.observers {
			o.OnEntryCreateFailed(form, err)
		}
		return nil, err
	}

	result := &CreateResult{RecordID: resp.ID(), Fields: fields, Response: resp}
	d.opts.Metrics.Submission(models.SubmissionSucceeded)
	if sub != nil {
		result.SubmissionID = sub.ID
		if markErr := d.opts.Submissions.MarkSucceeded(context.WithoutCancel(ctx), sub.ID, result.RecordID); markErr != nil {
			d.logger.Warn().Err(markErr).Str("submission_id", sub.ID).Msg("Failed to update submission")
		}
	}
	d.logger.Info().Str("record_id", result.RecordID).Str("tour", form.Tour).Msg("Created calendar entry")

	// Re-fetch everything so the new entry shows up.
	if err := d.Reload(context.WithoutCancel(ctx), models.TriggerCreate); err != nil {
		result.ReloadError = err.Error()
	}
	if vm, err := d.View(); err == nil {
		result.ParticipantNames = participantNames(vm.Directory(), fields)
	}

	for _, o := range d.observers {
		o.OnEntryCreated(result)
	}
	return result, nil
}

func participantNames(dir *Directory, fields map[string]any) []string {
	var names []string
	for _, key := range []string{"teilnehmer_1", "teilnehmer_2"} {
		ref, _ := fields[key].(string)
		if name := dir.NameForRef(ref); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (d *Dashboard) auditSubmission(ctx context.Context, fields map[string]any) *models.EntrySubmission {
	if d.opts.Submissions == nil {
		return nil
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Failed to encode submission payload")
		return nil
	}
	sub := &models.EntrySubmission{Payload: string(payload), Status: models.SubmissionPending}
	if err := d.opts.Submissions.Create(ctx, sub); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to record submission")
		return nil
	}
	return sub
}

// IsUnavailable reports whether err means no view can be shown.
func IsUnavailable(err error) bool {
	var le *LoadError
	return errors.Is(err, ErrNotLoaded) || errors.As(err, &le)
}

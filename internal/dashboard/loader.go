package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tour-dashboard/backend/internal/livingapps"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// Remote is the record service as the dashboard uses it. *livingapps.Service
// implements it.
type Remote interface {
	ListUsers(ctx context.Context) ([]livingapps.Record[models.UserFields], error)
	ListCalendarEntries(ctx context.Context) ([]livingapps.Record[models.CalendarEntryFields], error)
	ListWeeklyEntries(ctx context.Context) ([]livingapps.Record[models.WeeklyEntryFields], error)
	CreateCalendarEntry(ctx context.Context, fields any) (livingapps.Response, error)
	UserRef(userID string) string
}

// Snapshot holds the three raw collections of one successful load.
type Snapshot struct {
	Users           []livingapps.Record[models.UserFields]
	CalendarEntries []livingapps.Record[models.CalendarEntryFields]
	WeeklyEntries   []livingapps.Record[models.WeeklyEntryFields]
	FetchedAt       time.Time
}

// Loader fetches snapshots from the remote service.
type Loader struct {
	remote Remote
	now    func() time.Time
}

// NewLoader creates a loader. A nil clock uses time.Now.
func NewLoader(remote Remote, now func() time.Time) *Loader {
	if now == nil {
		now = time.Now
	}
	return &Loader{remote: remote, now: now}
}

// Fetch loads the three collections concurrently. It succeeds only if all
// three do; the first failure cancels the others and is returned, so no
// partial snapshot is ever produced.
func (l *Loader) Fetch(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		users, err := l.remote.ListUsers(gctx)
		if err != nil {
			return fmt.Errorf("loading users: %w", err)
		}
		snap.Users = users
		return nil
	})
	g.Go(func() error {
		entries, err := l.remote.ListCalendarEntries(gctx)
		if err != nil {
			return fmt.Errorf("loading calendar entries: %w", err)
		}
		snap.CalendarEntries = entries
		return nil
	})
	g.Go(func() error {
		entries, err := l.remote.ListWeeklyEntries(gctx)
		if err != nil {
			return fmt.Errorf("loading weekly entries: %w", err)
		}
		snap.WeeklyEntries = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.FetchedAt = l.now()
	return &snap, nil
}

package livingapps

import (
	"context"

	"github.com/tour-dashboard/backend/internal/lookup"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// Apps holds the remote collection ids of the three resource types.
type Apps struct {
	Users           string `yaml:"users" json:"users"`
	CalendarEntries string `yaml:"calendar_entries" json:"calendar_entries"`
	WeeklyEntries   string `yaml:"weekly_entries" json:"weekly_entries"`
}

// DefaultApps are the collection ids of the production dashboard.
var DefaultApps = Apps{
	Users:           "6985ad6bb11d2147bcc3466a",
	CalendarEntries: "6985ad70362c1183b8ef9c05",
	WeeklyEntries:   "6985ad71cb3a25ac36638ce4",
}

// Collection labels used in logs and metrics.
const (
	CollectionUsers           = "users"
	CollectionCalendarEntries = "calendar_entries"
	CollectionWeeklyEntries   = "weekly_entries"
)

// Service groups the typed collections of the dashboard.
type Service struct {
	Users           *Collection[models.UserFields]
	CalendarEntries *Collection[models.CalendarEntryFields]
	WeeklyEntries   *Collection[models.WeeklyEntryFields]

	apps  Apps
	codec lookup.Codec
}

// NewService binds the three collections to client.
func NewService(client *Client, apps Apps) *Service {
	return &Service{
		Users:           NewCollection[models.UserFields](client, CollectionUsers, apps.Users),
		CalendarEntries: NewCollection[models.CalendarEntryFields](client, CollectionCalendarEntries, apps.CalendarEntries),
		WeeklyEntries:   NewCollection[models.WeeklyEntryFields](client, CollectionWeeklyEntries, apps.WeeklyEntries),
		apps:            apps,
		codec:           lookup.NewCodec(client.BaseURL()),
	}
}

// Apps returns the configured collection ids.
func (s *Service) Apps() Apps {
	return s.apps
}

// UserRef encodes a lookup reference to a user record.
func (s *Service) UserRef(userID string) string {
	return s.codec.Encode(s.apps.Users, userID)
}

// ListUsers lists all user records.
func (s *Service) ListUsers(ctx context.Context) ([]Record[models.UserFields], error) {
	return s.Users.List(ctx)
}

// ListCalendarEntries lists all calendar entries.
func (s *Service) ListCalendarEntries(ctx context.Context) ([]Record[models.CalendarEntryFields], error) {
	return s.CalendarEntries.List(ctx)
}

// ListWeeklyEntries lists all weekly entries.
func (s *Service) ListWeeklyEntries(ctx context.Context) ([]Record[models.WeeklyEntryFields], error) {
	return s.WeeklyEntries.List(ctx)
}

// CreateCalendarEntry creates a calendar entry from a fields payload.
func (s *Service) CreateCalendarEntry(ctx context.Context, fields any) (Response, error) {
	return s.CalendarEntries.Create(ctx, fields)
}

package dashboard

import (
	"sort"

	"github.com/tour-dashboard/backend/internal/livingapps"
	"github.com/tour-dashboard/backend/internal/lookup"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// User is a user record.
type User = livingapps.Record[models.UserFields]

// Directory resolves participant ids to users.
type Directory struct {
	users []User
	byID  map[string]User
}

// NewDirectory indexes users by record id. Later duplicates win.
func NewDirectory(users []User) *Directory {
	byID := make(map[string]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &Directory{users: users, byID: byID}
}

// Name returns the display name of a user id, or "" when unknown.
func (d *Directory) Name(id string) string {
	u, ok := d.byID[id]
	if !ok {
		return ""
	}
	return u.Fields.DisplayName()
}

// NameForRef resolves a lookup reference URL to a display name.
func (d *Directory) NameForRef(ref string) string {
	id, ok := lookup.Decode(ref)
	if !ok {
		return ""
	}
	return d.Name(id)
}

// Len returns the number of users.
func (d *Directory) Len() int {
	return len(d.users)
}

// SortedByLastName returns a copy of the users ordered by last name.
func (d *Directory) SortedByLastName() []User {
	sorted := make([]User, len(d.users))
	copy(sorted, d.users)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fields.LastName < sorted[j].Fields.LastName
	})
	return sorted
}

// ParticipantStat is a user together with an assignment count.
type ParticipantStat struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Assembly      models.Assembly `json:"assembly,omitempty"`
	AssemblyLabel string          `json:"assembly_label,omitempty"`
	Pioneer       bool            `json:"pioneer"`
	Count         int             `json:"count"`
}

func (d *Directory) stat(id string, count int) ParticipantStat {
	s := ParticipantStat{ID: id, Count: count}
	if u, ok := d.byID[id]; ok {
		s.Name = u.Fields.DisplayName()
		s.Assembly = u.Fields.AssemblyTag()
		s.AssemblyLabel = s.Assembly.Label()
		s.Pioneer = bool(u.Fields.Pioneer)
	}
	return s
}

// Participants lists every user ordered by last name with their count from load.
func (d *Directory) Participants(load map[string]int) []ParticipantStat {
	users := d.SortedByLastName()
	stats := make([]ParticipantStat, 0, len(users))
	for _, u := range users {
		stats = append(stats, d.stat(u.ID, load[u.ID]))
	}
	return stats
}

// RankActive orders the participants of load by descending count, then name,
// then id. limit <= 0 returns all of them. Ids missing from the directory are
// kept with an empty name.
func (d *Directory) RankActive(load map[string]int, limit int) []ParticipantStat {
	stats := make([]ParticipantStat, 0, len(load))
	for id, n := range load {
		if n > 0 {
			stats = append(stats, d.stat(id, n))
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].ID < stats[j].ID
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

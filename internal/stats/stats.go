// Package stats derives aggregate statistics from an entry's raw
// report list. Nothing here is ever persisted: counts are recomputed
// on demand from the reports, so they cannot drift from the underlying
// data even when reports are added by another write path.
package stats

import (
	"sort"

	"github.com/steveyegge/faultline/internal/types"
)

// Stats summarizes one entry's reports.
type Stats struct {
	TotalReports int `json:"total_reports"`

	// UniqueActors counts distinct installation IDs / machine names.
	// Reports without an actor ID do not contribute.
	UniqueActors int `json:"unique_actors"`

	// Contacts, Versions, and Machines are sorted and deduplicated.
	Contacts []string `json:"contacts,omitempty"`
	Versions []string `json:"versions,omitempty"`
	Machines []string `json:"machines,omitempty"`

	ReplyCount   int `json:"reply_count"`
	CommentCount int `json:"comment_count"`
}

// Compute derives Stats from the entry's reports. Pure function; the
// entry is not modified.
func Compute(entry *types.Entry) Stats {
	actors := make(map[string]struct{})
	contacts := make(map[string]struct{})
	versions := make(map[string]struct{})
	machines := make(map[string]struct{})

	var s Stats
	for i := range entry.Reports {
		r := &entry.Reports[i]
		if r.ActorID != "" {
			actors[r.ActorID] = struct{}{}
		}
		if r.Contact != "" {
			contacts[r.Contact] = struct{}{}
		}
		if r.Version != "" {
			versions[r.Version] = struct{}{}
		}
		if r.Machine != "" {
			machines[r.Machine] = struct{}{}
		}
		if r.Reply != nil {
			s.ReplyCount++
		}
		if r.Comment != "" {
			s.CommentCount++
		}
	}

	s.TotalReports = len(entry.Reports)
	s.UniqueActors = len(actors)
	s.Contacts = sortedKeys(contacts)
	s.Versions = sortedKeys(versions)
	s.Machines = sortedKeys(machines)
	return s
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package history

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/steveyegge/faultline/internal/types"
)

// storeV1 is the first-generation document: one summarized record per
// key, with stored counters instead of raw reports.
type storeV1 struct {
	SchemaVersion   int            `json:"schema_version"`
	Category        types.Category `json:"category"`
	LastUpdated     time.Time      `json:"last_updated,omitzero"`
	RetentionMonths int            `json:"retention_months"`

	Entries map[string]*entryV1 `json:"entries"`

	MachineHealth map[string]*types.MachineHealth `json:"machine_health,omitempty"`
}

// entryV1 is the summarized v1 aggregate. Individual reports were not
// retained, only derived counts and value sets.
type entryV1 struct {
	Key           string         `json:"key"`
	Category      types.Category `json:"category"`
	Fingerprint   string         `json:"fingerprint,omitempty"`
	Signature     string         `json:"signature,omitempty"`
	ExceptionType string         `json:"exception_type,omitempty"`
	TestName      string         `json:"test_name,omitempty"`
	FirstSeen     time.Time      `json:"first_seen"`
	LastSeen      time.Time      `json:"last_seen"`

	TotalReports int      `json:"total_reports"`
	UniqueUsers  int      `json:"unique_users"`
	Emails       []string `json:"emails,omitempty"`
	Versions     []string `json:"versions,omitempty"`

	Fix   *types.FixRecord   `json:"fix,omitempty"`
	Issue *types.IssueRecord `json:"issue,omitempty"`
}

// upgradeV1 converts a v1 document to the current shape in one pass so
// no downstream read site ever branches on schema.
func upgradeV1(data []byte) (*Store, error) {
	var old storeV1
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("failed to parse v1 store: %w", err)
	}

	store := &Store{
		SchemaVersion:   CurrentSchemaVersion,
		Category:        old.Category,
		LastUpdated:     old.LastUpdated,
		RetentionMonths: old.RetentionMonths,
		Entries:         make(map[string]*types.Entry, len(old.Entries)),
		MachineHealth:   old.MachineHealth,
	}
	if store.MachineHealth == nil {
		store.MachineHealth = make(map[string]*types.MachineHealth)
	}

	for key, oldEntry := range old.Entries {
		store.Entries[key] = upgradeEntryV1(key, oldEntry)
	}

	if len(old.Entries) > 0 {
		log.Printf("history: upgraded %d v1 entries to schema v%d",
			len(old.Entries), CurrentSchemaVersion)
	}
	return store, nil
}

// upgradeEntryV1 expands a summarized v1 entry into the v2 shape.
//
// V1 never retained individual reports, so they cannot be recovered;
// instead the summary is expanded into synthetic reports that
// reproduce it exactly when recomputed: the report count, unique actor
// count, and email/version sets of the original summary all survive a
// round trip through stats.Compute. Synthetic reports are recognizable
// by their "legacy-" source IDs; the first carries first_seen, the
// rest last_seen, preserving the date invariants.
func upgradeEntryV1(key string, old *entryV1) *types.Entry {
	entry := &types.Entry{
		Key:           key,
		Category:      old.Category,
		Fingerprint:   old.Fingerprint,
		Signature:     old.Signature,
		ExceptionType: old.ExceptionType,
		TestName:      old.TestName,
		FirstSeen:     old.FirstSeen,
		LastSeen:      old.LastSeen,
		Fix:           old.Fix,
		Issue:         old.Issue,
	}
	if entry.Key == "" {
		entry.Key = old.Fingerprint
	}

	count := old.TotalReports
	if count < old.UniqueUsers {
		count = old.UniqueUsers
	}
	if count < len(old.Emails) {
		count = len(old.Emails)
	}
	if count < len(old.Versions) {
		count = len(old.Versions)
	}

	entry.Reports = make([]types.Report, count)
	for i := range entry.Reports {
		r := &entry.Reports[i]
		r.SourceID = fmt.Sprintf("legacy-%d", i+1)
		if i == 0 {
			r.Date = old.FirstSeen
		} else {
			r.Date = old.LastSeen
		}
		if i < old.UniqueUsers {
			r.ActorID = fmt.Sprintf("legacy-actor-%d", i+1)
		}
		if i < len(old.Emails) {
			r.Contact = old.Emails[i]
		}
		if i < len(old.Versions) {
			r.Version = old.Versions[i]
		}
	}
	return entry
}

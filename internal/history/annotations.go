package history

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/steveyegge/faultline/internal/types"
)

// NotFoundError is returned when an annotation targets a key that has
// no entry in the store. Annotations can only attach to an
// already-observed bug; the remediation is to run ingestion first.
type NotFoundError struct {
	Key      string
	Category types.Category
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s history entry for key %q; run a merge or backfill first to populate history",
		e.Category, e.Key)
}

// RecordFix attaches a fix record to the entry at key, overwriting any
// previous fix (last write wins). Returns the updated entry, or a
// *NotFoundError when the key has never been observed.
func RecordFix(store *Store, key string, fix *types.FixRecord) (*types.Entry, error) {
	entry, ok := store.Entries[key]
	if !ok {
		return nil, &NotFoundError{Key: key, Category: store.Category}
	}
	if fix.RecordedDate.IsZero() {
		fix.RecordedDate = time.Now()
	}
	entry.Fix = fix
	return entry, nil
}

// RecordIssue attaches an issue record to the entry at key, overwriting
// any previous issue. Returns the updated entry, or a *NotFoundError
// when the key has never been observed.
func RecordIssue(store *Store, key string, issue *types.IssueRecord) (*types.Entry, error) {
	if err := issue.Validate(); err != nil {
		return nil, fmt.Errorf("invalid issue record for key %q: %w", key, err)
	}
	entry, ok := store.Entries[key]
	if !ok {
		return nil, &NotFoundError{Key: key, Category: store.Category}
	}
	if issue.RecordedDate.IsZero() {
		issue.RecordedDate = time.Now()
	}
	entry.Issue = issue
	return entry, nil
}

// Annotations is the human-supplied metadata extracted from a store
// before a full rebuild, keyed the same way as the entries it came
// from.
type Annotations struct {
	Fixes  map[string]*types.FixRecord
	Issues map[string]*types.IssueRecord
}

// Empty reports whether there is nothing to reapply.
func (a Annotations) Empty() bool {
	return len(a.Fixes) == 0 && len(a.Issues) == 0
}

// ExtractAnnotations collects every fix and issue record from the
// outgoing store. Called before a backfill discards the store so
// manual annotations are never lost to a rebuild.
func ExtractAnnotations(store *Store) Annotations {
	ann := Annotations{
		Fixes:  make(map[string]*types.FixRecord),
		Issues: make(map[string]*types.IssueRecord),
	}
	for key, entry := range store.Entries {
		if entry.Fix != nil {
			ann.Fixes[key] = entry.Fix
		}
		if entry.Issue != nil {
			ann.Issues[key] = entry.Issue
		}
	}
	return ann
}

// ReapplyResult reports what happened to preserved annotations after a
// rebuild.
type ReapplyResult struct {
	FixesApplied  int `json:"fixes_applied"`
	IssuesApplied int `json:"issues_applied"`

	// DroppedKeys lists annotation keys that no longer exist in the
	// rebuilt store. Rare, and worth surfacing rather than silently
	// discarding: it usually means the bug aged out entirely or the
	// normalizer changed its fingerprint.
	DroppedKeys []string `json:"dropped_keys,omitempty"`
}

// ReapplyAnnotations applies preserved annotations to a freshly
// rebuilt store. An annotation lands only when its key still exists
// post-rebuild; the rest are reported as dropped.
func ReapplyAnnotations(store *Store, ann Annotations) ReapplyResult {
	var result ReapplyResult
	dropped := make(map[string]struct{})

	for key, fix := range ann.Fixes {
		if entry, ok := store.Entries[key]; ok {
			entry.Fix = fix
			result.FixesApplied++
		} else {
			dropped[key] = struct{}{}
		}
	}
	for key, issue := range ann.Issues {
		if entry, ok := store.Entries[key]; ok {
			entry.Issue = issue
			result.IssuesApplied++
		} else {
			dropped[key] = struct{}{}
		}
	}

	for key := range dropped {
		result.DroppedKeys = append(result.DroppedKeys, key)
	}
	sort.Strings(result.DroppedKeys)

	if len(result.DroppedKeys) > 0 {
		log.Printf("history: dropped %d annotation(s) whose keys vanished in rebuild: %v",
			len(result.DroppedKeys), result.DroppedKeys)
	}
	return result
}

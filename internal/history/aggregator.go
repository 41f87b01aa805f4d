package history

import (
	"log"
	"strings"
	"time"

	"github.com/steveyegge/faultline/internal/fingerprint"
	"github.com/steveyegge/faultline/internal/ingest"
	"github.com/steveyegge/faultline/internal/types"
)

// MergeResult summarizes one merge pass.
type MergeResult struct {
	// Created is the number of new entries (first-ever fingerprints).
	Created int `json:"created"`

	// Appended is the number of reports added to existing entries.
	Appended int `json:"appended"`

	// Unparseable is the number of occurrences whose trace produced no
	// frames; they all landed in the sentinel bucket.
	Unparseable int `json:"unparseable"`

	// Skipped is the number of occurrences rejected by validation.
	Skipped int `json:"skipped"`
}

// Merge folds a batch of newly observed occurrences into the store.
// For each occurrence it computes the identity key (fingerprint for
// exceptions, test+fingerprint for failures, test name for leaks and
// hangs), creates the entry on first observation, appends a report,
// and advances first/last seen.
//
// Merge appends unconditionally: it does not check whether a source ID
// was already recorded for the key. Overlapping date windows or a
// re-run backfill will double-count; submitting each occurrence at
// most once is the ingestion caller's responsibility.
func Merge(store *Store, occurrences []types.Occurrence, runDate time.Time, cfg fingerprint.Config) MergeResult {
	var result MergeResult

	for i := range occurrences {
		occ := &occurrences[i]
		if err := occ.Validate(store.Category); err != nil {
			log.Printf("history: skipping occurrence %q: %v", occ.SourceID, err)
			result.Skipped++
			continue
		}

		var sig fingerprint.Signature
		if store.Category.HasTrace() {
			sig = fingerprint.Normalize(occ.StackTrace, cfg)
			if sig.FrameCount == 0 && occ.SourceID != "" {
				store.UnparseableSourceIDs = append(store.UnparseableSourceIDs, occ.SourceID)
				result.Unparseable++
			}
		}

		key := entryKey(store.Category, occ, sig)
		entry, ok := store.Entries[key]
		if !ok {
			entry = newEntry(store.Category, key, occ, sig)
			store.Entries[key] = entry
			result.Created++
		} else {
			result.Appended++
		}

		entry.Reports = append(entry.Reports, reportFrom(occ))
		if occ.Date.After(entry.LastSeen) {
			entry.LastSeen = occ.Date
		}
		if occ.Date.Before(entry.FirstSeen) {
			// Out-of-order submission; keep first_seen honest.
			entry.FirstSeen = occ.Date
		}

		updateMachineHealth(store, occ)
	}

	return result
}

// entryKey applies the per-category keying rule.
func entryKey(category types.Category, occ *types.Occurrence, sig fingerprint.Signature) string {
	switch category {
	case types.CategoryException:
		return sig.Fingerprint
	case types.CategoryFailure:
		return types.FailureKey(occ.TestName, sig.Fingerprint)
	default:
		return occ.TestName
	}
}

// newEntry builds the aggregate for a key's first observation.
func newEntry(category types.Category, key string, occ *types.Occurrence, sig fingerprint.Signature) *types.Entry {
	entry := &types.Entry{
		Key:       key,
		Category:  category,
		TestName:  occ.TestName,
		FirstSeen: occ.Date,
		LastSeen:  occ.Date,
	}
	if category.HasTrace() {
		entry.Fingerprint = sig.Fingerprint
		entry.Signature = sig.Summary()
		entry.ExceptionType = exceptionType(occ)
	}
	return entry
}

// exceptionType derives the display exception class, preferring the
// report title and falling back to the trace's first line.
func exceptionType(occ *types.Occurrence) string {
	if occ.Title != "" {
		return ingest.ExceptionType(occ.Title)
	}
	first, _, _ := strings.Cut(strings.TrimSpace(occ.StackTrace), "\n")
	if head, _, found := strings.Cut(first, ":"); found {
		return strings.TrimSpace(head)
	}
	return ""
}

// reportFrom copies the retained fields of an occurrence.
func reportFrom(occ *types.Occurrence) types.Report {
	return types.Report{
		SourceID:    occ.SourceID,
		Date:        occ.Date,
		Version:     occ.Version,
		ActorID:     occ.ActorID,
		Contact:     occ.Contact,
		Comment:     occ.Comment,
		Reply:       occ.Reply,
		Machine:     occ.Machine,
		Folder:      occ.Folder,
		GitHash:     occ.GitHash,
		LeakType:    occ.LeakType,
		LeakBytes:   occ.LeakBytes,
		LeakHandles: occ.LeakHandles,
	}
}

// updateMachineHealth bumps the per-machine counter for the store's
// category. Exception reports carry no machine name and are ignored.
func updateMachineHealth(store *Store, occ *types.Occurrence) {
	if occ.Machine == "" {
		return
	}

	health, ok := store.MachineHealth[occ.Machine]
	if !ok {
		health = &types.MachineHealth{}
		store.MachineHealth[occ.Machine] = health
	}

	switch store.Category {
	case types.CategoryFailure:
		health.Failures++
	case types.CategoryLeak:
		health.Leaks++
	case types.CategoryHang:
		health.Hangs++
	}
	if occ.Date.After(health.LastSeen) {
		health.LastSeen = occ.Date
	}
}

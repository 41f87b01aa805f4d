// Package faultline is a fingerprinted failure-history engine. It
// groups raw failure occurrences (crash reports, nightly test
// failures, leaks, hangs) that represent the same underlying bug,
// maintains a durable versioned aggregate per bug across runs,
// attaches human-supplied fix and issue metadata, and classifies each
// aggregate as needing attention or already handled — including
// regressions, where a fixed bug is re-observed in a version at or
// after its recorded fix.
//
// The engine has no network or CLI surface. Ingestion collaborators
// hand it already-extracted Occurrence records; reporting
// collaborators read back entries with stats, scores, and
// classifications and render them however they like.
//
// Every mutating call runs the whole load→mutate→save cycle under an
// exclusive per-store lock, with the save done as an atomic file
// replacement, so independent invocations (daily merge, ad hoc
// backfill, annotation) cannot corrupt or lose updates.
package faultline

import (
	"fmt"
	"sort"
	"time"

	"github.com/steveyegge/faultline/internal/config"
	"github.com/steveyegge/faultline/internal/fingerprint"
	"github.com/steveyegge/faultline/internal/history"
	"github.com/steveyegge/faultline/internal/ingest"
	"github.com/steveyegge/faultline/internal/stats"
	"github.com/steveyegge/faultline/internal/triage"
	"github.com/steveyegge/faultline/internal/types"
)

// Re-exported domain types. The engine's data model lives in internal
// packages alongside the code that maintains its invariants; these
// aliases are the public names collaborators use.
type (
	Category      = types.Category
	Occurrence    = types.Occurrence
	Report        = types.Report
	Reply         = types.Reply
	Entry         = types.Entry
	FixRecord     = types.FixRecord
	BranchFix     = types.BranchFix
	IssueRecord   = types.IssueRecord
	MachineHealth = types.MachineHealth

	Config         = config.Config
	Signature      = fingerprint.Signature
	ParsedBody     = ingest.ParsedBody
	Stats          = stats.Stats
	Classification = triage.Classification
	Reason         = triage.Reason

	MergeResult   = history.MergeResult
	ReapplyResult = history.ReapplyResult
	NotFoundError = history.NotFoundError
)

const (
	CategoryException = types.CategoryException
	CategoryFailure   = types.CategoryFailure
	CategoryLeak      = types.CategoryLeak
	CategoryHang      = types.CategoryHang

	ReasonRegression = triage.ReasonRegression
	ReasonFixed      = triage.ReasonFixed
	ReasonTracked    = triage.ReasonTracked
	ReasonNew        = triage.ReasonNew
	ReasonEmail      = triage.ReasonEmail
	ReasonRecurring  = triage.ReasonRecurring
)

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config { return config.DefaultConfig() }

// LoadConfig builds the effective configuration from defaults, an
// optional YAML file, and FAULTLINE_* environment overrides.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// ParseBody extracts structured fields (installation ID, version,
// contact, comment, stack trace) from a raw crash-report body.
func ParseBody(body string) ParsedBody { return ingest.ParseBody(body) }

// Normalize computes the deterministic signature for raw stack-trace
// text using the engine's fingerprint configuration.
func Normalize(raw string, cfg Config) Signature {
	return fingerprint.Normalize(raw, cfg.Fingerprint())
}

// Engine is the entry point for all store mutations and queries. One
// Engine serves all categories; each category has its own store
// document under the configured store directory.
type Engine struct {
	cfg Config
}

// New creates an engine with the given configuration.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// RunResult summarizes one ingestion run.
type RunResult struct {
	Merge history.MergeResult `json:"merge"`

	// AgedOut is the number of entries removed by retention.
	AgedOut int `json:"aged_out"`

	// TrackedEntries is the store size after the run.
	TrackedEntries int `json:"tracked_entries"`

	// Reapplied is set only for backfill runs.
	Reapplied *history.ReapplyResult `json:"reapplied,omitempty"`
}

// MergeRun performs an incremental daily run: merge the batch into the
// existing store, age out stale entries, and persist. The caller must
// submit each occurrence at most once across all runs.
func (e *Engine) MergeRun(category Category, occurrences []Occurrence, runDate time.Time) (RunResult, error) {
	var result RunResult
	err := e.withStore(category, func(store *history.Store) error {
		result.Merge = history.Merge(store, occurrences, runDate, e.cfg.Fingerprint())
		result.AgedOut = history.AgeOut(store, runDate)
		result.TrackedEntries = len(store.Entries)
		return nil
	}, runDate)
	return result, err
}

// Backfill rebuilds a category's store from scratch out of the
// complete available history. Fix and issue annotations from the
// outgoing store are extracted first and reapplied to any key that
// still exists post-rebuild; the result reports how many were applied
// and which keys were dropped.
func (e *Engine) Backfill(category Category, occurrences []Occurrence, runDate time.Time) (RunResult, error) {
	path := e.cfg.StorePath(category)

	lockPath, err := history.AcquireLock(path, e.cfg.LockHolder)
	if err != nil {
		return RunResult{}, err
	}
	defer history.ReleaseLock(lockPath)

	old, err := history.Load(path, category, e.cfg.RetentionMonths)
	if err != nil {
		return RunResult{}, err
	}
	preserved := history.ExtractAnnotations(old)

	store := history.NewStore(category, e.cfg.RetentionMonths)
	var result RunResult
	result.Merge = history.Merge(store, occurrences, runDate, e.cfg.Fingerprint())

	reapplied := history.ReapplyAnnotations(store, preserved)
	result.Reapplied = &reapplied
	result.TrackedEntries = len(store.Entries)

	store.MarkBackfill(len(occurrences), runDate)
	if err := history.Save(store, path, runDate); err != nil {
		return RunResult{}, err
	}
	return result, nil
}

// RecordFix attaches a fix record to the entry at key. Returns a
// *NotFoundError when the key has never been observed in this
// category.
func (e *Engine) RecordFix(category Category, key string, fix FixRecord) (*Entry, error) {
	return e.annotate(category, func(store *history.Store) (*Entry, error) {
		return history.RecordFix(store, key, &fix)
	})
}

// RecordIssue attaches an issue record to the entry at key. Returns a
// *NotFoundError when the key has never been observed in this
// category.
func (e *Engine) RecordIssue(category Category, key string, issue IssueRecord) (*Entry, error) {
	return e.annotate(category, func(store *history.Store) (*Entry, error) {
		return history.RecordIssue(store, key, &issue)
	})
}

// EntryView is one entry with its derived stats and triage decision,
// ready for an external reporter.
type EntryView struct {
	Entry          *Entry         `json:"entry"`
	Stats          Stats          `json:"stats"`
	Score          int            `json:"score"`
	Classification Classification `json:"classification"`
	Annotations    []string       `json:"annotations,omitempty"`
}

// Snapshot loads a category's store and returns all entries with
// stats, scores, and classifications, sorted by score descending with
// ties broken by report count then key. asOf is the query date used
// for "new today" annotations; classification regression checks use
// each entry's own observed versions.
func (e *Engine) Snapshot(category Category, asOf time.Time) ([]EntryView, error) {
	path := e.cfg.StorePath(category)
	store, err := history.Load(path, category, e.cfg.RetentionMonths)
	if err != nil {
		return nil, err
	}

	views := make([]EntryView, 0, len(store.Entries))
	for _, entry := range store.Entries {
		s := stats.Compute(entry)
		views = append(views, EntryView{
			Entry:          entry,
			Stats:          s,
			Score:          triage.Score(entry),
			Classification: triage.Classify(entry, s.Versions),
			Annotations:    triage.Annotations(entry, asOf),
		})
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].Score != views[j].Score {
			return views[i].Score > views[j].Score
		}
		if views[i].Stats.TotalReports != views[j].Stats.TotalReports {
			return views[i].Stats.TotalReports > views[j].Stats.TotalReports
		}
		return views[i].Entry.Key < views[j].Entry.Key
	})
	return views, nil
}

// withStore runs fn over the category's store inside the exclusive
// lock, persisting afterwards.
func (e *Engine) withStore(category Category, fn func(*history.Store) error, asOf time.Time) error {
	path := e.cfg.StorePath(category)

	lockPath, err := history.AcquireLock(path, e.cfg.LockHolder)
	if err != nil {
		return err
	}
	defer history.ReleaseLock(lockPath)

	store, err := history.Load(path, category, e.cfg.RetentionMonths)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	return history.Save(store, path, asOf)
}

// annotate is withStore specialized for annotation calls that return
// the updated entry.
func (e *Engine) annotate(category Category, fn func(*history.Store) (*Entry, error)) (*Entry, error) {
	var entry *Entry
	err := e.withStore(category, func(store *history.Store) error {
		var err error
		entry, err = fn(store)
		return err
	}, time.Now())
	if err != nil {
		return nil, err
	}
	return entry, nil
}

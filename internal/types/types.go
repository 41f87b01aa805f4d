package types

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies which kind of failure stream an entry belongs to.
// Each category has its own persisted store and its own keying rule:
// exceptions key by fingerprint, test failures by test name plus
// fingerprint, leaks and hangs by test name alone.
type Category string

const (
	CategoryException Category = "exception"
	CategoryFailure   Category = "failure"
	CategoryLeak      Category = "leak"
	CategoryHang      Category = "hang"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryException, CategoryFailure, CategoryLeak, CategoryHang:
		return true
	}
	return false
}

// HasTrace reports whether occurrences in this category carry a stack
// trace that contributes to their identity key.
func (c Category) HasTrace() bool {
	return c == CategoryException || c == CategoryFailure
}

// Reply is a human response attached to a single report, typically a
// developer answering the user who filed the crash.
type Reply struct {
	Text   string    `json:"text"`
	Date   time.Time `json:"date,omitzero"`
	Author string    `json:"author,omitempty"`
}

// Occurrence is one raw failure observation as supplied by the
// ingestion collaborator. It is consumed by the aggregator and never
// persisted standalone; the retained form is Report.
type Occurrence struct {
	// SourceID identifies the upstream record (row ID, run ID).
	// The engine does not deduplicate SourceIDs across merges; callers
	// must submit each occurrence at most once.
	SourceID string `json:"source_id"`

	// Date is when the occurrence was observed upstream.
	Date time.Time `json:"date"`

	// ActorID identifies the affected installation or machine.
	ActorID string `json:"actor_id,omitempty"`

	Version string `json:"version,omitempty"`
	Contact string `json:"contact,omitempty"`
	Comment string `json:"comment,omitempty"`
	Reply   *Reply `json:"reply,omitempty"`

	// Title is the upstream report title, used to derive the exception
	// type for display ("System.IO.IOException | ...").
	Title string `json:"title,omitempty"`

	// StackTrace is the raw trace text. Empty for leak/hang categories.
	StackTrace string `json:"stack_trace,omitempty"`

	// Nightly test fields. TestName is required for failure, leak, and
	// hang categories and unused for exceptions.
	TestName string `json:"test_name,omitempty"`
	Machine  string `json:"machine,omitempty"`
	Folder   string `json:"folder,omitempty"`
	GitHash  string `json:"git_hash,omitempty"`

	// Leak detail, set only for leak occurrences.
	LeakType    string `json:"leak_type,omitempty"`
	LeakBytes   int64  `json:"leak_bytes,omitempty"`
	LeakHandles int64  `json:"leak_handles,omitempty"`
}

// Validate checks if the occurrence has valid field values for the
// given category.
func (o *Occurrence) Validate(category Category) error {
	if !category.IsValid() {
		return fmt.Errorf("invalid category: %s", category)
	}
	if o.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if category != CategoryException && strings.TrimSpace(o.TestName) == "" {
		return fmt.Errorf("test_name is required for %s occurrences", category)
	}
	return nil
}

// Report is the persisted form of a single occurrence, retained inside
// its entry so derived statistics can always be recomputed from raw
// data instead of drifting in stored counters.
type Report struct {
	SourceID string    `json:"source_id,omitempty"`
	Date     time.Time `json:"date"`
	Version  string    `json:"version,omitempty"`
	ActorID  string    `json:"actor_id,omitempty"`
	Contact  string    `json:"contact,omitempty"`
	Comment  string    `json:"comment,omitempty"`
	Reply    *Reply    `json:"reply,omitempty"`

	Machine string `json:"machine,omitempty"`
	Folder  string `json:"folder,omitempty"`
	GitHash string `json:"git_hash,omitempty"`

	LeakType    string `json:"leak_type,omitempty"`
	LeakBytes   int64  `json:"leak_bytes,omitempty"`
	LeakHandles int64  `json:"leak_handles,omitempty"`
}

// BranchFix describes a fix landing on one branch.
type BranchFix struct {
	Branch string    `json:"branch,omitempty"`
	PR     string    `json:"pr"`
	Commit string    `json:"commit,omitempty"`
	Merged time.Time `json:"merged,omitzero"`
}

// FixRecord records that a bug has been fixed. Master is the canonical
// landing; Release is set when the fix was also cherry-picked to a
// release branch. FirstFixedVersion, when it parses as a version tuple,
// drives regression detection: a report from a version at or after it
// reclassifies the entry as a regression.
//
// Recording a fix for a key that already has one overwrites it (last
// write wins).
type FixRecord struct {
	RecordedDate      time.Time  `json:"recorded_date,omitzero"`
	Master            BranchFix  `json:"master"`
	Release           *BranchFix `json:"release,omitempty"`
	FirstFixedVersion string     `json:"first_fixed_version,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

// IssueRecord records that a tracker issue exists for a bug.
type IssueRecord struct {
	Number       int       `json:"number"`
	RecordedDate time.Time `json:"recorded_date,omitzero"`
	URL          string    `json:"url"`
	Notes        string    `json:"notes,omitempty"`
}

// Validate checks if the issue record has valid field values
func (r *IssueRecord) Validate() error {
	if r.Number <= 0 {
		return fmt.Errorf("issue number must be positive (got %d)", r.Number)
	}
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// Entry is the durable aggregate of every occurrence sharing one
// identity key. It is created on first observation, grown by the
// aggregator, annotated by the annotation manager, and deleted only by
// retention.
type Entry struct {
	// Key is the entry's identity in the store: the fingerprint for
	// exceptions, "testname|fingerprint" for failures, the test name
	// for leaks and hangs.
	Key string `json:"key"`

	Category Category `json:"category"`

	// Fingerprint and Signature summarize the normalized stack trace.
	// Empty for leak/hang entries, which key on test name alone.
	Fingerprint string `json:"fingerprint,omitempty"`
	Signature   string `json:"signature,omitempty"`

	// ExceptionType is the exception class from the first report's
	// title or trace, kept for display only.
	ExceptionType string `json:"exception_type,omitempty"`

	TestName string `json:"test_name,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// Reports is append-only across runs; it is never truncated except
	// by deleting the whole entry.
	Reports []Report `json:"reports"`

	Fix   *FixRecord   `json:"fix,omitempty"`
	Issue *IssueRecord `json:"issue,omitempty"`
}

// Validate checks if the entry has valid field values and that its
// date invariants hold.
func (e *Entry) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("key is required")
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", e.Category)
	}
	if e.FirstSeen.After(e.LastSeen) {
		return fmt.Errorf("first_seen (%s) is after last_seen (%s)",
			e.FirstSeen.Format(time.DateOnly), e.LastSeen.Format(time.DateOnly))
	}
	for i := range e.Reports {
		if e.Reports[i].Date.After(e.LastSeen) {
			return fmt.Errorf("report %d date (%s) is after last_seen (%s)",
				i, e.Reports[i].Date.Format(time.DateOnly), e.LastSeen.Format(time.DateOnly))
		}
	}
	return nil
}

// MachineHealth accumulates per-machine occurrence counters across the
// nightly categories, used to spot lab machines that fail everything.
type MachineHealth struct {
	Failures int       `json:"failures"`
	Leaks    int       `json:"leaks"`
	Hangs    int       `json:"hangs"`
	LastSeen time.Time `json:"last_seen,omitzero"`
}

// FailureKey builds the store key for a test failure entry.
func FailureKey(testName, fingerprint string) string {
	return testName + "|" + fingerprint
}

package triage

import (
	"fmt"
	"time"

	"github.com/steveyegge/faultline/internal/stats"
	"github.com/steveyegge/faultline/internal/types"
	"github.com/steveyegge/faultline/internal/version"
)

// Reason explains a classification outcome.
type Reason string

const (
	// ReasonRegression: a fix is recorded yet a report arrived from a
	// version at or after the first fixed version. Needs attention.
	ReasonRegression Reason = "regression"

	// ReasonFixed: a fix is recorded and no post-fix report exists.
	ReasonFixed Reason = "fixed"

	// ReasonTracked: no fix, but a tracker issue exists.
	ReasonTracked Reason = "tracked"

	// ReasonNew: first observed in the current run.
	ReasonNew Reason = "new"

	// ReasonEmail: recurring, and at least one report has a contact to
	// follow up with.
	ReasonEmail Reason = "email"

	// ReasonRecurring: recurring with no fix, issue, or contact.
	ReasonRecurring Reason = "recurring"
)

// IsValid checks if the reason value is valid
func (r Reason) IsValid() bool {
	switch r {
	case ReasonRegression, ReasonFixed, ReasonTracked, ReasonNew, ReasonEmail, ReasonRecurring:
		return true
	}
	return false
}

// Classification is the attention decision for one entry.
type Classification struct {
	NeedsAttention bool   `json:"needs_attention"`
	Reason         Reason `json:"reason"`
	Detail         string `json:"detail"`
}

// Classify determines whether an entry needs human attention, and if
// not, why it is already handled. observedToday holds the version
// strings seen in the current run's reports for this entry; they drive
// regression detection against the recorded fix.
//
// The decision table is evaluated strictly in precedence order:
// regression, fixed, tracked, new, email, recurring. No other states
// exist, and nothing is persisted — calling Classify twice on an
// unmodified entry yields identical results.
func Classify(entry *types.Entry, observedToday []string) Classification {
	if entry.Fix != nil {
		pr := entry.Fix.Master.PR
		if pr == "" {
			pr = "unknown PR"
		}

		fixedTuple := version.Parse(entry.Fix.FirstFixedVersion)
		if fixedTuple != nil {
			for _, v := range observedToday {
				if version.AtLeast(v, fixedTuple) {
					return Classification{
						NeedsAttention: true,
						Reason:         ReasonRegression,
						Detail: fmt.Sprintf("report from %s, at or after fix in %s (%s)",
							v, pr, entry.Fix.FirstFixedVersion),
					}
				}
			}
		}

		// All observed versions are pre-fix or unparseable; with no
		// parseable fix version, trust the recorded fix.
		detail := fmt.Sprintf("fixed in %s", pr)
		if !entry.Fix.Master.Merged.IsZero() {
			detail += fmt.Sprintf(" (merged %s)", entry.Fix.Master.Merged.Format(time.DateOnly))
		}
		return Classification{Reason: ReasonFixed, Detail: detail}
	}

	if entry.Issue != nil {
		return Classification{
			Reason: ReasonTracked,
			Detail: fmt.Sprintf("tracked as issue #%d", entry.Issue.Number),
		}
	}

	s := stats.Compute(entry)

	if entry.FirstSeen.Equal(entry.LastSeen) {
		return Classification{
			NeedsAttention: true,
			Reason:         ReasonNew,
			Detail:         "first seen this run",
		}
	}

	if len(s.Contacts) > 0 {
		return Classification{
			NeedsAttention: true,
			Reason:         ReasonEmail,
			Detail:         fmt.Sprintf("contact available (%d address(es))", len(s.Contacts)),
		}
	}

	return Classification{
		NeedsAttention: true,
		Reason:         ReasonRecurring,
		Detail:         fmt.Sprintf("%d reports from %d actors", s.TotalReports, s.UniqueActors),
	}
}

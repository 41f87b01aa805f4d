package triage

import (
	"fmt"
	"time"

	"github.com/steveyegge/faultline/internal/stats"
	"github.com/steveyegge/faultline/internal/types"
	"github.com/steveyegge/faultline/internal/version"
)

// Annotations produces the human-readable status lines for an entry,
// in display order, for the external reporter to render. runDate is
// the current aggregation run date; an entry first seen on runDate is
// flagged as new.
//
// Unlike Classify, which picks the single highest-precedence state,
// annotations are cumulative: a fixed bug that is also multi-user gets
// both lines.
func Annotations(entry *types.Entry, runDate time.Time) []string {
	s := stats.Compute(entry)
	var lines []string

	if sameDay(entry.FirstSeen, runDate) {
		lines = append(lines, "NEW - first seen today")
	}

	if len(s.Contacts) > 0 {
		lines = append(lines, fmt.Sprintf("Has contact (%d address(es) for follow-up)", len(s.Contacts)))
	}

	if s.UniqueActors > 1 {
		lines = append(lines, fmt.Sprintf("%d total reports from %d actors since %s",
			s.TotalReports, s.UniqueActors, entry.FirstSeen.Format(time.DateOnly)))
	}

	if entry.Issue != nil {
		lines = append(lines, fmt.Sprintf("TRACKED - issue #%d (%s)", entry.Issue.Number, entry.Issue.URL))
	}

	if entry.Fix != nil {
		line := fmt.Sprintf("KNOWN - fixed in %s", entry.Fix.Master.PR)
		if !entry.Fix.Master.Merged.IsZero() {
			line += fmt.Sprintf(" (merged %s)", entry.Fix.Master.Merged.Format(time.DateOnly))
		}
		if rel := entry.Fix.Release; rel != nil {
			line += fmt.Sprintf(" + %s on %s", rel.PR, rel.Branch)
		}
		lines = append(lines, line)

		// A report from a version at or after the fix suggests the fix
		// did not hold.
		if fixedTuple := version.Parse(entry.Fix.FirstFixedVersion); fixedTuple != nil {
			for _, v := range s.Versions {
				if version.AtLeast(v, fixedTuple) {
					lines = append(lines, fmt.Sprintf("REGRESSION? report from %s (after fix in %s)",
						v, entry.Fix.FirstFixedVersion))
					break
				}
			}
		}
	}

	return lines
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// Package triage decides which failure aggregates deserve human
// attention and ranks them. Everything here is a pure function of the
// entry: classification and scores are recomputed fresh on every query
// and never persisted.
package triage

import (
	"github.com/steveyegge/faultline/internal/stats"
	"github.com/steveyegge/faultline/internal/types"
)

// reportCap bounds how much raw volume contributes to the score, so
// one noisy machine cannot dominate the ranking.
const reportCap = 10

// Score ranks an entry for triage. Higher score = higher priority.
//
// Formula: 10 × unique actors + 20 if any contact is present +
// min(total reports, 10). User breadth dominates; a contact to follow
// up with is a fixed actionability bonus; volume is capped.
//
// Deterministic with no randomness, so it works as a stable sort key;
// ties are broken by the caller (e.g. by report count).
func Score(entry *types.Entry) int {
	s := stats.Compute(entry)

	score := s.UniqueActors * 10
	if len(s.Contacts) > 0 {
		score += 20
	}
	if s.TotalReports < reportCap {
		score += s.TotalReports
	} else {
		score += reportCap
	}
	return score
}

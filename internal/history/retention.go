package history

import (
	"log"
	"time"
)

// daysPerMonth approximates a month for retention math.
const daysPerMonth = 30

// AgeOut removes every entry whose last_seen precedes the retention
// cutoff relative to runDate. Deletion is total: the entry and all its
// reports are discarded, not archived. Returns the number of entries
// removed.
//
// This bounds store growth for categories with unbounded operational
// history; an entry that reappears later simply starts over with a new
// first_seen.
func AgeOut(store *Store, runDate time.Time) int {
	cutoff := runDate.AddDate(0, 0, -store.RetentionMonths*daysPerMonth)

	removed := 0
	for key, entry := range store.Entries {
		if entry.LastSeen.Before(cutoff) {
			delete(store.Entries, key)
			removed++
		}
	}

	if removed > 0 {
		log.Printf("history: aged out %d %s entries not seen since %s",
			removed, store.Category, cutoff.Format(time.DateOnly))
	}
	return removed
}

package types

import (
	"encoding/json"
	"time"
)

// legacyFixRecord is the flat v1 fix shape, written before fixes
// tracked master and release landings separately.
type legacyFixRecord struct {
	PRNumber       string `json:"pr_number"`
	MergeDate      string `json:"merge_date,omitempty"`
	FixedInVersion string `json:"fixed_in_version,omitempty"`
	Commit         string `json:"commit,omitempty"`
	RecordedDate   string `json:"recorded_date,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// UnmarshalJSON accepts both the current fix shape and the legacy v1
// flat shape. Legacy records are upgraded once here, at decode time, so
// every read site sees only the current shape.
func (f *FixRecord) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if _, legacy := probe["pr_number"]; legacy {
		var old legacyFixRecord
		if err := json.Unmarshal(data, &old); err != nil {
			return err
		}
		*f = upgradeLegacyFix(old)
		return nil
	}

	type current FixRecord
	var cur current
	if err := json.Unmarshal(data, &cur); err != nil {
		return err
	}
	*f = FixRecord(cur)
	return nil
}

// upgradeLegacyFix converts a v1 flat fix record to the current shape.
// The v1 record only ever described the master landing.
func upgradeLegacyFix(old legacyFixRecord) FixRecord {
	return FixRecord{
		RecordedDate: parseLegacyDate(old.RecordedDate),
		Master: BranchFix{
			PR:     old.PRNumber,
			Commit: old.Commit,
			Merged: parseLegacyDate(old.MergeDate),
		},
		FirstFixedVersion: old.FixedInVersion,
		Notes:             old.Notes,
	}
}

// parseLegacyDate parses the YYYY-MM-DD strings v1 stored. Anything
// else (including the "Unknown" placeholder) maps to the zero time.
func parseLegacyDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

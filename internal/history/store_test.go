package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/faultline/internal/stats"
	"github.com/steveyegge/faultline/internal/types"
)

func TestLoadMissingFileReturnsFreshStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exception-history.json")

	store, err := Load(path, types.CategoryException, 9)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, store.SchemaVersion)
	assert.Equal(t, types.CategoryException, store.Category)
	assert.Equal(t, 9, store.RetentionMonths)
	assert.Empty(t, store.Entries)
	assert.NotNil(t, store.Entries)
	assert.NotNil(t, store.MachineHealth)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "exception-history.json")

	store := NewStore(types.CategoryException, 9)
	store.Entries["a1b2c3d4e5f6"] = &types.Entry{
		Key:           "a1b2c3d4e5f6",
		Category:      types.CategoryException,
		Fingerprint:   "a1b2c3d4e5f6",
		Signature:     "Foo.Bar → Foo.Baz",
		ExceptionType: "System.NullReferenceException",
		FirstSeen:     day(1),
		LastSeen:      day(5),
		Reports: []types.Report{
			{SourceID: "101", Date: day(1), ActorID: "install-a", Version: "25.1.0.100"},
			{SourceID: "102", Date: day(5), ActorID: "install-b", Contact: "user@example.org", Comment: "crashed on import"},
		},
		Fix: &types.FixRecord{
			Master:            types.BranchFix{Branch: "master", PR: "3514", Commit: "deadbeef", Merged: day(3)},
			Release:           &types.BranchFix{Branch: "release/25.1", PR: "3520", Merged: day(4)},
			FirstFixedVersion: "25.1.0.142",
			Notes:             "guarded the collection",
			RecordedDate:      day(4),
		},
		Issue: &types.IssueRecord{
			Number:       2210,
			URL:          "https://github.com/ProteoWizard/pwiz/issues/2210",
			RecordedDate: day(2),
		},
	}
	store.UnparseableSourceIDs = []string{"990"}
	store.MarkBackfill(1200, day(6))

	require.NoError(t, Save(store, path, day(6)))

	loaded, err := Load(path, types.CategoryException, 9)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, loaded.SchemaVersion)
	assert.True(t, loaded.LastUpdated.Equal(day(6)))
	assert.Equal(t, 1200, loaded.BackfillCount)
	assert.Equal(t, store.BackfillRunID, loaded.BackfillRunID)
	assert.Equal(t, []string{"990"}, loaded.UnparseableSourceIDs)

	entry, ok := loaded.Entries["a1b2c3d4e5f6"]
	require.True(t, ok)
	assert.Equal(t, store.Entries["a1b2c3d4e5f6"].Signature, entry.Signature)
	require.Len(t, entry.Reports, 2)
	assert.Equal(t, "user@example.org", entry.Reports[1].Contact)

	// Annotations survive the round trip field for field.
	require.NotNil(t, entry.Fix)
	assert.Equal(t, "3514", entry.Fix.Master.PR)
	assert.True(t, entry.Fix.Master.Merged.Equal(day(3)))
	assert.Equal(t, "deadbeef", entry.Fix.Master.Commit)
	require.NotNil(t, entry.Fix.Release)
	assert.Equal(t, "3520", entry.Fix.Release.PR)
	assert.Equal(t, "25.1.0.142", entry.Fix.FirstFixedVersion)
	require.NotNil(t, entry.Issue)
	assert.Equal(t, 2210, entry.Issue.Number)
}

func TestLoadCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failure-history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := Load(path, types.CategoryFailure, 9)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, store.SchemaVersion)
	assert.Empty(t, store.Entries)
}

func TestLoadUnknownSchemaStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exception-history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 99}`), 0o644))

	store, err := Load(path, types.CategoryException, 9)
	require.NoError(t, err)
	assert.Empty(t, store.Entries)
}

func TestLoadUpgradesV1Document(t *testing.T) {
	doc := `{
  "schema_version": 1,
  "category": "exception",
  "retention_months": 9,
  "entries": {
    "a1b2c3d4e5f6": {
      "key": "a1b2c3d4e5f6",
      "category": "exception",
      "fingerprint": "a1b2c3d4e5f6",
      "signature": "Foo.Bar → Foo.Baz",
      "exception_type": "System.IO.IOException",
      "first_seen": "2025-02-01T00:00:00Z",
      "last_seen": "2025-07-15T00:00:00Z",
      "total_reports": 7,
      "unique_users": 3,
      "emails": ["a@example.org", "b@example.org"],
      "versions": ["25.1.0.100", "25.1.0.142"],
      "fix": {
        "pr_number": "3300",
        "merge_date": "2025-06-01",
        "fixed_in_version": "25.1.0.150"
      }
    }
  }
}`
	path := filepath.Join(t.TempDir(), "exception-history.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store, err := Load(path, types.CategoryException, 9)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, store.SchemaVersion)

	entry, ok := store.Entries["a1b2c3d4e5f6"]
	require.True(t, ok)
	assert.Equal(t, "System.IO.IOException", entry.ExceptionType)

	// The summarized counters survive the expansion into synthetic
	// reports exactly.
	s := stats.Compute(entry)
	assert.Equal(t, 7, s.TotalReports)
	assert.Equal(t, 3, s.UniqueActors)
	assert.ElementsMatch(t, []string{"a@example.org", "b@example.org"}, s.Contacts)
	assert.ElementsMatch(t, []string{"25.1.0.100", "25.1.0.142"}, s.Versions)
	assert.True(t, entry.FirstSeen.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, entry.LastSeen.Equal(time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)))
	for _, r := range entry.Reports {
		assert.Contains(t, r.SourceID, "legacy-")
	}

	// The v1 flat fix shape is upgraded to the branch form.
	require.NotNil(t, entry.Fix)
	assert.Equal(t, "3300", entry.Fix.Master.PR)
	assert.True(t, entry.Fix.Master.Merged.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "25.1.0.150", entry.Fix.FirstFixedVersion)

	// Writing back persists at the current schema; the next load takes
	// the v2 path.
	require.NoError(t, Save(store, path, day(20)))
	again, err := Load(path, types.CategoryException, 9)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Compute(again.Entries["a1b2c3d4e5f6"]).TotalReports)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leak-history.json")

	store := NewStore(types.CategoryLeak, 9)
	store.Entries["TestA"] = &types.Entry{Key: "TestA", Category: types.CategoryLeak, TestName: "TestA", FirstSeen: day(1), LastSeen: day(1)}
	require.NoError(t, Save(store, path, day(1)))

	delete(store.Entries, "TestA")
	store.Entries["TestB"] = &types.Entry{Key: "TestB", Category: types.CategoryLeak, TestName: "TestB", FirstSeen: day(2), LastSeen: day(2)}
	require.NoError(t, Save(store, path, day(2)))

	loaded, err := Load(path, types.CategoryLeak, 9)
	require.NoError(t, err)
	assert.NotContains(t, loaded.Entries, "TestA")
	assert.Contains(t, loaded.Entries, "TestB")
}

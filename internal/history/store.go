package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/steveyegge/faultline/internal/types"
)

const (
	// SchemaVersionSummary (v1) stored one summarized record per key.
	SchemaVersionSummary = 1

	// SchemaVersionReports (v2) stores the full list of individual
	// reports per key, so derived stats never drift from raw data.
	SchemaVersionReports = 2

	// CurrentSchemaVersion is the version new and upgraded stores use.
	CurrentSchemaVersion = SchemaVersionReports
)

// Store is the single source of truth for one category's failure
// history. It round-trips losslessly through a single JSON document.
type Store struct {
	SchemaVersion   int            `json:"schema_version"`
	Category        types.Category `json:"category"`
	LastUpdated     time.Time      `json:"last_updated,omitzero"`
	RetentionMonths int            `json:"retention_months"`

	// Backfill metadata records the most recent full rebuild: when it
	// ran, how many source records it consumed, and a run ID for
	// correlating logs.
	BackfillDate  time.Time `json:"backfill_date,omitzero"`
	BackfillCount int       `json:"backfill_count,omitempty"`
	BackfillRunID string    `json:"backfill_run_id,omitempty"`

	Entries map[string]*types.Entry `json:"entries"`

	// MachineHealth counts occurrences per machine across the nightly
	// categories. Unused for exception stores.
	MachineHealth map[string]*types.MachineHealth `json:"machine_health,omitempty"`

	// UnparseableSourceIDs lists source records whose traces produced
	// no frames. They all share the sentinel fingerprint; the list is
	// kept so someone can go look at the originals.
	UnparseableSourceIDs []string `json:"unparseable_source_ids,omitempty"`
}

// NewStore returns a fresh empty store at the current schema version.
func NewStore(category types.Category, retentionMonths int) *Store {
	return &Store{
		SchemaVersion:   CurrentSchemaVersion,
		Category:        category,
		RetentionMonths: retentionMonths,
		Entries:         make(map[string]*types.Entry),
		MachineHealth:   make(map[string]*types.MachineHealth),
	}
}

// MarkBackfill stamps the store with metadata for a full rebuild.
func (s *Store) MarkBackfill(sourceCount int, when time.Time) {
	s.BackfillDate = when
	s.BackfillCount = sourceCount
	s.BackfillRunID = uuid.NewString()
}

// Load reads the store at path. A missing file is not an error: the
// caller gets a fresh empty store at the current schema version. A
// file that exists but fails to parse is logged and replaced with a
// fresh store — losing history is preferable to blocking ingestion.
// Read I/O failures other than absence are returned.
func Load(path string, category types.Category, retentionMonths int) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewStore(category, retentionMonths), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history store %s: %w", path, err)
	}

	store, err := decode(data)
	if err != nil {
		log.Printf("history: store %s is corrupt, starting fresh: %v", path, err)
		return NewStore(category, retentionMonths), nil
	}

	// Older documents predate these fields.
	if store.Category == "" {
		store.Category = category
	}
	if store.RetentionMonths == 0 {
		store.RetentionMonths = retentionMonths
	}
	if store.Entries == nil {
		store.Entries = make(map[string]*types.Entry)
	}
	if store.MachineHealth == nil {
		store.MachineHealth = make(map[string]*types.MachineHealth)
	}
	return store, nil
}

// decode parses a store document, upgrading v1 documents to the
// current shape.
func decode(data []byte) (*Store, error) {
	var header struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse store header: %w", err)
	}

	switch header.SchemaVersion {
	case SchemaVersionSummary:
		return upgradeV1(data)
	case SchemaVersionReports:
		var store Store
		if err := json.Unmarshal(data, &store); err != nil {
			return nil, fmt.Errorf("failed to parse v2 store: %w", err)
		}
		return &store, nil
	default:
		return nil, fmt.Errorf("unknown schema version %d", header.SchemaVersion)
	}
}

// Save persists the store atomically: the document is written to a
// temporary file and renamed over the previous one, so a crash
// mid-write cannot corrupt the last good state. Errors are returned to
// the caller — the run's in-memory results must never be silently
// dropped.
func Save(store *Store, path string, asOf time.Time) error {
	store.LastUpdated = asOf

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history store: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history directory %s: %w", dir, err)
		}
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save history store %s: %w", path, err)
	}
	return nil
}

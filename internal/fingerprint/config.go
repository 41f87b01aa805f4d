package fingerprint

import "fmt"

// Config holds configuration for stack-trace normalization
type Config struct {
	// MaxFrames is the number of leading meaningful frames that make up
	// the signature. More frames = finer grouping (one bug can split
	// across fingerprints when deep frames differ); fewer frames =
	// coarser grouping (distinct bugs can share a fingerprint).
	// Default: 5
	MaxFrames int

	// SkipPrefixes lists frame prefixes (matched case-insensitively)
	// belonging to non-diagnostic layers: language runtime internals
	// and generated plumbing that appear in many unrelated traces.
	// Frames matching a prefix are dropped before the signature is
	// taken, unless dropping them would leave no frames at all.
	SkipPrefixes []string
}

// DefaultConfig returns the default normalization configuration.
//
// The skip list covers the .NET runtime layers that dominate crash
// reports without identifying the bug: framework collections, WPF
// dispatch plumbing, and mscorlib glue.
func DefaultConfig() Config {
	return Config{
		MaxFrames: 5,
		SkipPrefixes: []string{
			"system.",
			"microsoft.",
			"ms.internal.",
			"mscorlib",
		},
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxFrames <= 0 {
		return fmt.Errorf("max_frames must be positive (got %d)", c.MaxFrames)
	}
	if c.MaxFrames > 50 {
		return fmt.Errorf("max_frames too large (got %d, max 50)", c.MaxFrames)
	}
	return nil
}

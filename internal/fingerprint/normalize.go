package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"regexp"
	"strings"
)

// SentinelFingerprint is the fingerprint assigned to occurrences whose
// trace yields no recognizable frames. All unparseable traces share it
// so they aggregate into one bucket that can be flagged for
// investigation.
const SentinelFingerprint = "unparseable"

// fingerprintLen is the number of hex characters kept from the hash.
const fingerprintLen = 12

// Signature is the deterministic identity derived from a stack trace.
type Signature struct {
	// Fingerprint is a short stable identifier computed purely from
	// Frames. FrameCount 0 implies the sentinel fingerprint.
	Fingerprint string `json:"fingerprint"`

	// Frames is the bounded, normalized prefix of meaningful frames,
	// ordered innermost first. Volatile tokens are already stripped.
	Frames []string `json:"frames"`

	// FrameCount is len(Frames); zero marks an unparseable trace.
	FrameCount int `json:"frame_count"`
}

// Summary joins the signature frames for display.
func (s Signature) Summary() string {
	if s.FrameCount == 0 {
		return "(unknown)"
	}
	return strings.Join(s.Frames, " → ")
}

var (
	// frameLine matches one ".NET-style" frame: "at Ns.Type.Method(args)".
	frameLine = regexp.MustCompile(`^\s*at\s+(.*)$`)

	// fileSuffix matches the trailing source location: " in C:\path\File.cs:line 123".
	// Only the last path segment is diagnostic; line numbers are dropped.
	fileSuffix = regexp.MustCompile(`\s+in\s+(\S+?)(?::line\s+\d+)?\s*$`)

	// hexAddress matches memory addresses and raw pointers.
	hexAddress = regexp.MustCompile(`0x[0-9a-fA-F]+`)

	// instanceID matches runtime object-instance markers like "#38271".
	instanceID = regexp.MustCompile(`#\d+`)

	// whitespace collapses runs of spaces and tabs.
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize converts raw stack-trace text into its Signature using the
// given configuration. It is pure and never fails; see the package
// documentation for the degradation rules.
func Normalize(raw string, cfg Config) Signature {
	frames := extractFrames(raw)
	if len(frames) == 0 {
		return Signature{Fingerprint: SentinelFingerprint}
	}

	kept := filterFrames(frames, cfg.SkipPrefixes)
	if len(kept) == 0 {
		// Every frame was runtime plumbing. Grouping by the plumbing
		// beats collapsing distinct bugs into the sentinel bucket.
		kept = frames
	}

	if len(kept) > cfg.MaxFrames {
		kept = kept[:cfg.MaxFrames]
	}

	return Signature{
		Fingerprint: fingerprintOf(kept),
		Frames:      kept,
		FrameCount:  len(kept),
	}
}

// extractFrames pulls candidate frames out of the raw text and strips
// volatile tokens from each.
func extractFrames(raw string) []string {
	var frames []string
	for _, line := range strings.Split(raw, "\n") {
		m := frameLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		frame := cleanFrame(m[1])
		if frame != "" {
			frames = append(frames, frame)
		}
	}
	return frames
}

// cleanFrame strips the tokens that vary between machines and builds:
// absolute source paths (keeping the file name), line numbers, memory
// addresses, and instance IDs. Whitespace runs collapse to one space.
func cleanFrame(frame string) string {
	if m := fileSuffix.FindStringSubmatch(frame); m != nil {
		file := path.Base(strings.ReplaceAll(m[1], `\`, "/"))
		frame = fileSuffix.ReplaceAllString(frame, "") + " in " + file
	}
	frame = hexAddress.ReplaceAllString(frame, "")
	frame = instanceID.ReplaceAllString(frame, "")
	frame = whitespace.ReplaceAllString(frame, " ")
	return strings.TrimSpace(frame)
}

// filterFrames drops frames belonging to the configured non-diagnostic
// layers. Matching is case-insensitive.
func filterFrames(frames []string, skipPrefixes []string) []string {
	var kept []string
	for _, frame := range frames {
		lower := strings.ToLower(frame)
		skip := false
		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(lower, strings.ToLower(prefix)) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, frame)
		}
	}
	return kept
}

// fingerprintOf hashes the canonical (lowercased) form of the frames.
// Case differences inside frame tokens never change the fingerprint.
func fingerprintOf(frames []string) string {
	canonical := strings.ToLower(strings.Join(frames, "\n"))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

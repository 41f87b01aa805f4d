// Package ingest extracts structured fields from raw crash-report
// bodies. Reports arrive as a free-text header (installation ID,
// product version, optional user comments and contact email) followed
// by a separator line and the stack trace.
package ingest

import (
	"regexp"
	"strings"
)

// stackTraceSeparator divides the report header from the trace.
const stackTraceSeparator = "--------------------"

// maxCommentLen bounds stored user comments.
const maxCommentLen = 300

var (
	installationIDPattern = regexp.MustCompile(
		`Installation ID:\s*([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})`)

	// versionPattern matches "<product> version: 25.1.0.237-7401c644b4 (64-bit)".
	versionPattern = regexp.MustCompile(
		`version:\s*(\d+\.\d+\.\d+\.\d+(?:-[0-9a-fA-F]+)?)\s*\((\d+-bit)\)`)

	emailPattern = regexp.MustCompile(
		`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// userCommentsPattern captures free text between "User comments:"
	// and the next structured field.
	userCommentsPattern = regexp.MustCompile(
		`(?s)User comments:\s*(.*?)\s*(?:Skyline version:|version:|Installation ID:|$)`)
)

// ParsedBody holds the structured fields extracted from one report body.
type ParsedBody struct {
	// InstallationID is the GUID identifying the user's installation.
	InstallationID string

	// Version is the product version string, hash suffix included.
	Version string

	// Bitness is "64-bit" or "32-bit".
	Bitness string

	// Email is the user's contact address, when one appears in the
	// header. Addresses inside the trace are ignored.
	Email string

	// Comment is the user's description, collapsed to a single line
	// and truncated.
	Comment string

	// StackTrace is everything after the separator line.
	StackTrace string
}

// ParseBody extracts structured data from a raw report body. Pure and
// never fails; missing fields stay empty.
func ParseBody(body string) ParsedBody {
	var p ParsedBody

	if m := installationIDPattern.FindStringSubmatch(body); m != nil {
		p.InstallationID = m[1]
	}
	if m := versionPattern.FindStringSubmatch(body); m != nil {
		p.Version = m[1]
		p.Bitness = m[2]
	}

	header := body
	if i := strings.Index(body, stackTraceSeparator); i >= 0 {
		header = body[:i]
		p.StackTrace = strings.TrimSpace(body[i+len(stackTraceSeparator):])
	}

	if m := emailPattern.FindString(header); m != "" {
		p.Email = m
	}
	if m := userCommentsPattern.FindStringSubmatch(header); m != nil {
		p.Comment = normalizeComment(m[1])
	}

	return p
}

// normalizeComment collapses whitespace and newlines to single spaces
// and truncates long comments.
func normalizeComment(raw string) string {
	normalized := strings.Join(strings.Fields(raw), " ")
	if len(normalized) > maxCommentLen {
		normalized = normalized[:maxCommentLen] + "..."
	}
	return normalized
}

// ExceptionType extracts the exception class from a report title of
// the form "System.IO.IOException | message".
func ExceptionType(title string) string {
	head, _, _ := strings.Cut(title, "|")
	return strings.TrimSpace(head)
}

// Package version parses free-form dotted version strings into
// comparable integer tuples. Build versions look like "25.1.0.237" or
// "25.1.0.237-7401c644b4" with a trailing commit-hash suffix; neither
// shape is semver, so comparison is plain lexicographic tuple order.
package version

import (
	"strconv"
	"strings"
)

// Parse converts a version string into an integer tuple. The part
// after the first "-" (commit hash or build metadata) is discarded
// before splitting on dots.
//
// Returns nil for empty or unparseable strings rather than an error:
// an unknown version is neither before nor after any fix, and callers
// treat it as unordered.
func Parse(s string) []int {
	if s == "" {
		return nil
	}
	base, _, _ := strings.Cut(s, "-")
	parts := strings.Split(base, ".")
	tuple := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		tuple = append(tuple, n)
	}
	return tuple
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater
// than b in lexicographic tuple order. A shorter tuple that is a
// prefix of a longer one compares less ("25.1" < "25.1.0").
func Compare(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// AtLeast reports whether version string s parses and is >= the given
// tuple. It is the regression-detection primitive: a report from a
// version at or after the first fixed version means the fix did not
// hold.
func AtLeast(s string, min []int) bool {
	tuple := Parse(s)
	if tuple == nil || min == nil {
		return false
	}
	return Compare(tuple, min) >= 0
}

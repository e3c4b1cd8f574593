package util

import "strings"

// DefaultString returns fallback when v is empty or whitespace-only.
//
//	DefaultString("work", "-") → "work"
//	DefaultString("  ", "-")   → "-"
func DefaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// EmptyDash renders blank table cells as "-" so that an unset value (no
// User in a Host block, no default profile) is visibly distinct from a
// column that was dropped.
func EmptyDash(s string) string {
	return DefaultString(s, "-")
}

// HasWhitespace reports whether s contains any space, tab or newline.
func HasWhitespace(s string) bool {
	return strings.ContainsAny(s, " \t\r\n")
}

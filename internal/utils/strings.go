package utils

import "fmt"

const (
	// DefaultMaxStringLength is the default maximum length for truncated strings.
	DefaultMaxStringLength = 500
)

// TruncateString shortens s to at most maxLen characters, appending a
// suffix that records the original total length so callers know data was
// omitted. If maxLen is zero or negative, DefaultMaxStringLength is used.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}

// CapString hard-caps s at maxLen bytes with no suffix. Used where the
// result feeds a token-budgeted prompt and the marker itself would waste
// budget.
func CapString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

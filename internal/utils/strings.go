package utils

import "fmt"

// DefaultMaxStringLength is the truncation length used for error previews.
const DefaultMaxStringLength = 500

// TruncateString shortens s to maxLen bytes and records the original length.
// A non-positive maxLen falls back to DefaultMaxStringLength.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}

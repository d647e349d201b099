// Package utils provides shared text, math, and logging helpers.
package utils

// Truncate shortens s to maxLen bytes and appends "..." when it was cut.
// A zero or negative maxLen disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

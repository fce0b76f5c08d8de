// Package text has small string helpers shared across the audit trail.
package text

// Truncate clips s to max bytes with an ellipsis marker.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

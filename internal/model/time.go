package model

import (
	"fmt"
	"time"
)

// timestampLayout is RFC 3339 UTC with fixed millisecond precision.
// Fixed width keeps lexicographic order equal to chronological order,
// which the relational backend relies on for string range queries.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t as the canonical ISO-8601 timestamp string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp string, with or without
// fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

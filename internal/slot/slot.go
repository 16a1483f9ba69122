// Package slot canonicalizes the (date, time-range) pair that identifies a
// capacity partition within an event, so formatting differences between
// submissions ("2025.05.01" vs "2025-05-01", "10:00~11:00" vs "10:00-11:00")
// never fragment capacity counts.
package slot

import (
	"strings"
	"time"
)

// Key identifies one capacity partition. Two keys are equal iff all three
// fields are equal, which Go's == gives us for free on this struct.
type Key struct {
	EventID string
	Date    string // YYYY-MM-DD
	Time    string // HH:mm-HH:mm
}

// NewKey builds a Key from raw request values, normalizing both parts.
func NewKey(eventID, date, timeRange string) Key {
	return Key{
		EventID: eventID,
		Date:    NormalizeDate(date),
		Time:    NormalizeTime(timeRange),
	}
}

// NormalizeDate canonicalizes a calendar date to YYYY-MM-DD.
// Dot separators are accepted as an alias for dashes.
func NormalizeDate(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ".", "-")
}

// NormalizeDateTime canonicalizes a time.Time to its ISO date portion.
func NormalizeDateTime(t time.Time) string {
	return t.Format("2006-01-02")
}

// NormalizeTime canonicalizes a time range to HH:mm-HH:mm.
// A tilde separator is accepted as an alias for a dash; the format itself is
// validated at event-authoring time, not here.
func NormalizeTime(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "~", "-")
}

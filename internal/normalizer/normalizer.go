// Package normalizer canonicalizes the loosely formatted timestamps carried
// by incoming events into UTC instants.
package normalizer

import "time"

// Normalize parses s as an RFC 3339 timestamp (a literal "Z" suffix is UTC)
// and returns the instant in UTC. Any parse failure, including an empty
// string, degrades to the current UTC time. It never returns an error: a
// bad timestamp must not fail ingestion.
func Normalize(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

package utils

import "time"

// InLocation converts t to the named IANA zone (e.g. "Europe/London").
// Unknown or empty names fall back to UTC.
func InLocation(t time.Time, name string) time.Time {
	if name == "" {
		return t.UTC()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return t.UTC() // Fallback to UTC if the zone is not available
	}
	return t.In(loc)
}

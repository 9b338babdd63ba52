package release

import (
	"strings"
	"time"
)

// DateLayout is the canonical stored form of a release date.
const DateLayout = "2006-01-02"

// acceptedDateLayouts are tried in order by NormalizeDate.
var acceptedDateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// NormalizeDate converts a date input to YYYY-MM-DD.
// Timestamps keep the calendar day they were written in; they are not shifted to UTC,
// so "2024-03-15T00:30:00+02:00" stays 2024-03-15.
func NormalizeDate(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", invalid("releaseDate", "release date is required")
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", invalid("releaseDate", "release date must be a valid date (YYYY-MM-DD)")
}

// ParseDate reads a stored release date as UTC midnight.
func ParseDate(stored string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, stored, time.UTC)
	if err != nil {
		return time.Time{}, invalid("releaseDate", "stored release date is malformed")
	}
	return t, nil
}
